package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/upb/ai-product-council/config"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		obs     config.ObservabilityConfig
		wantErr string
	}{
		{name: "default json logger", obs: config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"}},
		{name: "development console logger", obs: config.ObservabilityConfig{LogLevel: "debug", LogFormat: "console"}},
		{name: "defaults when not set", obs: config.ObservabilityConfig{}},
		{name: "invalid log level", obs: config.ObservabilityConfig{LogLevel: "invalid"}, wantErr: "invalid log level"},
		{name: "invalid log format", obs: config.ObservabilityConfig{LogLevel: "info", LogFormat: "xml"}, wantErr: "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initLogger(tt.obs)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Nil(t, logger)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			_ = logger.Sync()
		})
	}
}

func TestInitTracing(t *testing.T) {
	t.Run("disabled returns a no-op shutdown", func(t *testing.T) {
		shutdown, err := initTracing(&config.Config{}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})

	t.Run("enabled installs the stdout exporter", func(t *testing.T) {
		cfg := &config.Config{
			Version: "1.0.0",
			Observability: config.ObservabilityConfig{
				TracingEnabled:    true,
				TracingSampleRate: 1,
				ServiceName:       "ai-product-council",
			},
		}
		shutdown, err := initTracing(cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})
}

func TestNewServer(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
	}

	srv := newServer(cfg, http.NotFoundHandler())

	assert.Equal(t, "127.0.0.1:8000", srv.Addr)
	assert.Equal(t, 30*time.Second, srv.ReadTimeout)
	assert.Equal(t, 5*time.Minute, srv.WriteTimeout)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
}
