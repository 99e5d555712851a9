//go:build integration
// +build integration

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/reelhub/discovery/internal/config"
	"github.com/reelhub/discovery/internal/models"
)

func setupTestRabbitMQ(t *testing.T) (*config.RabbitMQConfig, func()) {
	t.Helper()
	ctx := context.Background()

	rabbitmqContainer, err := rabbitmq.Run(ctx,
		"rabbitmq:3.13-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start rabbitmq container: %v", err)
	}

	host, err := rabbitmqContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get host: %v", err)
	}

	port, err := rabbitmqContainer.MappedPort(ctx, "5672/tcp")
	if err != nil {
		t.Fatalf("Failed to get port: %v", err)
	}

	cfg := &config.RabbitMQConfig{
		Enabled:    true,
		Host:       host,
		Port:       port.Int(),
		User:       "guest",
		Password:   "guest",
		Exchange:   "test.interactions",
		Queue:      "test.interactions.raw",
		RoutingKey: "interaction.recorded",
	}

	cleanup := func() {
		if err := rabbitmqContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return cfg, cleanup
}

func TestMessagePublisher_LogInteraction(t *testing.T) {
	cfg, cleanup := setupTestRabbitMQ(t)
	defer cleanup()

	mp, err := NewMessagePublisher(cfg)
	require.NoError(t, err)
	defer mp.Close()

	interaction := models.NewInteraction(42, models.InteractionLike, "10.0.0.7", "integration", map[string]string{"source": "feed"})
	require.NoError(t, mp.LogInteraction(context.Background(), interaction))

	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Password, cfg.Host, cfg.Port))
	require.NoError(t, err)
	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	msg, ok, err := ch.Get(cfg.Queue, true)
	require.NoError(t, err)
	require.True(t, ok, "expected a message on %s", cfg.Queue)

	assert.Equal(t, interaction.ID.String(), msg.MessageId)
	assert.Equal(t, "like", msg.Type)

	var got models.Interaction
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, interaction.VideoID, got.VideoID)
	assert.Equal(t, "feed", got.Metadata["source"])
}

func TestMessagePublisher_IsHealthy(t *testing.T) {
	cfg, cleanup := setupTestRabbitMQ(t)
	defer cleanup()

	mp, err := NewMessagePublisher(cfg)
	require.NoError(t, err)

	assert.True(t, mp.IsHealthy())

	require.NoError(t, mp.Close())
	assert.False(t, mp.IsHealthy())
}

func TestMessagePublisher_ClosedConnection(t *testing.T) {
	cfg, cleanup := setupTestRabbitMQ(t)
	defer cleanup()

	mp, err := NewMessagePublisher(cfg)
	require.NoError(t, err)
	defer mp.Close()

	require.NoError(t, mp.conn.Close())

	err = mp.LogInteraction(context.Background(), models.NewInteraction(1, models.InteractionView, "", "", nil))
	assert.Error(t, err)
}
