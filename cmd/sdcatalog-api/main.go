package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmrzaf/sdcatalog/internal/config"
	"github.com/mmrzaf/sdcatalog/internal/logging"
	"github.com/mmrzaf/sdcatalog/internal/server"
)

func main() {
	cfg := config.Load()

	flag.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "Metadata store driver (postgres|sqlite)")
	dsn := flag.String("db", "", "Metadata database DSN, or file path for sqlite")
	flag.StringVar(&cfg.BindAddr, "bind", cfg.BindAddr, "Bind address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also write logs to this rotated file")
	flag.BoolVar(&cfg.StrictTransition, "strict-transitions", cfg.StrictTransition, "Reject out-of-order task status updates")
	flag.Parse()

	if *dsn != "" {
		if cfg.DBDriver == config.DriverSQLite {
			cfg.SQLitePath = *dsn
		} else {
			cfg.DBDSN = *dsn
		}
	}

	base := logging.NewFileLogger(cfg.LogLevel, cfg.LogFile)
	defer func() { _ = base.Sync() }()
	logger := base.WithComponent("api_main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := server.Open(ctx, cfg, base)
	if err != nil {
		logger.Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "open_store"})
		os.Exit(1)
	}
	defer deps.Close()

	if err := server.Serve(ctx, cfg.BindAddr, deps.Router(base), base.WithComponent("server")); err != nil {
		logger.Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "listen"})
		_ = deps.Close()
		os.Exit(1)
	}
}
