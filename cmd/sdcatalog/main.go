package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmrzaf/sdcatalog/internal/config"
	"github.com/mmrzaf/sdcatalog/internal/infra/store"
	"github.com/mmrzaf/sdcatalog/internal/logging"
	"github.com/mmrzaf/sdcatalog/internal/server"
)

// cli holds settings shared by every subcommand. Flags override the values
// loaded from the environment.
type cli struct {
	cfg    *config.Config
	dsn    string
	logger *logging.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.Load()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	c := &cli{cfg: cfg}

	rootCmd := &cobra.Command{
		Use:          "sdcatalog",
		Short:        "Dataset catalogue and synthetic task registry",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.dsn != "" {
				if c.cfg.DBDriver == config.DriverSQLite {
					c.cfg.SQLitePath = c.dsn
				} else {
					c.cfg.DBDSN = c.dsn
				}
			}
			// stdout carries command output.
			c.logger = logging.NewLoggerWithWriter(c.cfg.LogLevel, cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.cfg.DBDriver, "driver", cfg.DBDriver, "Metadata store driver (postgres|sqlite)")
	rootCmd.PersistentFlags().StringVar(&c.dsn, "db", "", "Metadata database DSN, or file path for sqlite")
	rootCmd.PersistentFlags().StringVar(&c.cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")

	rootCmd.AddCommand(c.serveCmd())
	rootCmd.AddCommand(c.migrateCmd())
	rootCmd.AddCommand(c.datasetCmd())
	rootCmd.AddCommand(c.taskCmd())
	return rootCmd
}

func (c *cli) open(cmd *cobra.Command) (*server.Deps, error) {
	return server.Open(cmd.Context(), c.cfg, c.logger)
}

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()
			return server.Serve(cmd.Context(), c.cfg.BindAddr, deps.Router(c.logger), c.logger.WithComponent("server"))
		},
	}
	cmd.Flags().StringVar(&c.cfg.BindAddr, "bind", c.cfg.BindAddr, "Bind address")
	cmd.Flags().BoolVar(&c.cfg.StrictTransition, "strict-transitions", c.cfg.StrictTransition, "Reject out-of-order task status updates")
	return cmd
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			v, err := store.CurrentVersion(cmd.Context(), deps.DB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d (latest %d)\n", v, store.LatestVersion(c.cfg.DBDriver))
			return nil
		},
	}
}
