package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperorhan/oilube/internal/alert"
	"github.com/emperorhan/oilube/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestAlertFromConfig(t *testing.T) {
	t.Run("no sinks", func(t *testing.T) {
		a := alertFromConfig(config.AlertConfig{}, discardLogger())
		assert.IsType(t, &alert.NoopAlerter{}, a)
	})

	t.Run("slack and webhook", func(t *testing.T) {
		a := alertFromConfig(config.AlertConfig{
			SlackWebhookURL: "https://hooks.slack.example/x",
			WebhookURL:      "https://alerts.example/hook",
			CooldownSec:     60,
		}, discardLogger())
		assert.IsType(t, &alert.MultiAlerter{}, a)
	})
}

func TestOpenStores_Memory(t *testing.T) {
	st, err := openStores(config.DBConfig{Driver: config.StoreDriverMemory}, discardLogger())
	require.NoError(t, err)
	defer st.Close()

	assert.Nil(t, st.db)
	assert.NotNil(t, st.snapshots)
	assert.NotNil(t, st.cursors)
	assert.NotNil(t, st.writer)

	cur, err := st.cursors.Get(context.Background(), "simulated")
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	_, err := openStores(config.DBConfig{Driver: "sqlite"}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRunServer_ShutsDownOnCancel(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, port, handler, discardLogger()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
}
