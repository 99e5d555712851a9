// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/reelhub/discovery/internal/db"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	RabbitMQ    RabbitMQConfig
	Redis       RedisConfig
	Logging     LoggingConfig
	Database    DatabaseConfig
	Server      ServerConfig
	Admin       AdminConfig
	Maintenance MaintenanceConfig
}

// ServerConfig contains HTTP server configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ServerConfig struct {
	Port            int
	Mode            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// RedisConfig points at the Redis instance backing the tag index and the
// maintenance task queue. An empty URL keeps both in process.
type RedisConfig struct {
	URL string
}

// RabbitMQConfig contains RabbitMQ connection and exchange configuration for
// interaction events.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled    bool
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// AdminConfig contains the API keys accepted on admin routes.
type AdminConfig struct {
	APIKeys []string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// MaintenanceConfig controls the scheduled tag index rebuild and interaction
// retention cleanup.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type MaintenanceConfig struct {
	InteractionRetentionDays int
	TagIndexInterval         string
	CleanupInterval          string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	// APP_DATABASE_HOST maps to database.host
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Admin.APIKeys = parseAPIKeys(cfg.Admin.APIKeys)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database minconnections (%d) exceeds maxconnections (%d)",
			c.Database.MinConnections, c.Database.MaxConnections)
	}
	if c.Maintenance.InteractionRetentionDays < 1 {
		return fmt.Errorf("interaction retention must be at least one day, got %d",
			c.Maintenance.InteractionRetentionDays)
	}
	return nil
}

// Pool converts the database section into pool settings.
func (d DatabaseConfig) Pool() *db.Config {
	return &db.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Name,
		SSLMode:         d.SSLMode,
		MaxConns:        int32(d.MaxConnections),
		MinConns:        int32(d.MinConnections),
		MaxConnLifetime: d.MaxLifetime,
		MaxConnIdleTime: d.MaxIdleTime,
	}
}

// parseAPIKeys accepts either a list or a single comma separated string, which
// is how viper hands over APP_ADMIN_APIKEYS.
func parseAPIKeys(raw []string) []string {
	keys := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, key := range strings.Split(entry, ",") {
			if trimmed := strings.TrimSpace(key); trimmed != "" {
				keys = append(keys, trimmed)
			}
		}
	}
	return keys
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "reelhub")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 5)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Redis
	viper.SetDefault("redis.url", "")

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "reelhub.interactions")
	viper.SetDefault("rabbitmq.queue", "reelhub.interactions.raw")
	viper.SetDefault("rabbitmq.routingkey", "interaction.recorded")

	// Admin
	viper.SetDefault("admin.apikeys", []string{})

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")

	// Maintenance
	viper.SetDefault("maintenance.interactionretentiondays", 90)
	viper.SetDefault("maintenance.tagindexinterval", "@every 15m")
	viper.SetDefault("maintenance.cleanupinterval", "@daily")
}
