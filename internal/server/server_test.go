package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmrzaf/sdcatalog/internal/config"
	"github.com/mmrzaf/sdcatalog/internal/domain"
	"github.com/mmrzaf/sdcatalog/internal/logging"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DBDriver:       config.DriverSQLite,
		SQLitePath:     filepath.Join(t.TempDir(), "nested", "catalogue.sqlite"),
		DBMaxOpenConns: 1,
		BindAddr:       "127.0.0.1:0",
		LogLevel:       "error",
		DefaultStatus:  domain.TaskStatusRunning,
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.DefaultStatus = "bogus"

	_, err := Open(context.Background(), cfg, logging.NewLogger("error"))
	assert.ErrorContains(t, err, "default task status")
}

func TestServeUntilCancelled(t *testing.T) {
	logger := logging.NewLogger("error")
	deps, err := Open(context.Background(), sqliteConfig(t), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveListener(ctx, ln, deps.Router(logger), logger) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthcheck")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
