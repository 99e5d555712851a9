package queue

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		redisURL string
		addr     string
		password string
		db       int
		tls      bool
		wantErr  bool
	}{
		{name: "bare host and port", redisURL: "localhost:6379", addr: "localhost:6379"},
		{name: "redis scheme", redisURL: "redis://localhost:6379", addr: "localhost:6379"},
		{name: "password", redisURL: "redis://:secret@cache:6379", addr: "cache:6379", password: "secret"},
		{name: "password and database", redisURL: "redis://:secret@cache.internal:6379/3", addr: "cache.internal:6379", password: "secret", db: 3},
		{name: "escaped password", redisURL: "redis://:p%40ss%21@localhost:6379/0", addr: "localhost:6379", password: "p@ss!"},
		{name: "trailing slash", redisURL: "redis://localhost:6379/", addr: "localhost:6379"},
		{name: "tls", redisURL: "rediss://:pw@secure:6380/1", addr: "secure:6380", password: "pw", db: 1, tls: true},
		{name: "empty", redisURL: "", wantErr: true},
		{name: "unsupported scheme", redisURL: "http://localhost:6379", wantErr: true},
		{name: "database not a number", redisURL: "redis://localhost:6379/tags", wantErr: true},
		{name: "missing host", redisURL: "redis://:pw@/0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedisURL(tt.redisURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.addr, got.Addr)
			assert.Equal(t, tt.password, got.Password)
			assert.Equal(t, tt.db, got.DB)
			if tt.tls {
				require.NotNil(t, got.TLSConfig)
				assert.Equal(t, uint16(tls.VersionTLS12), got.TLSConfig.MinVersion)
			} else {
				assert.Nil(t, got.TLSConfig)
			}
		})
	}
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient("redis://:secret@cache:6379/2")
	require.NoError(t, err)
	defer client.Close()

	opts := client.Options()
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = NewRedisClient("ftp://cache")
	assert.Error(t, err)
}
