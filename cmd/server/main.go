// Package main runs the GophShelf development server: an in-memory
// implementation of the category API for local work against the client.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atinyakov/GophShelf/internal/config"
	"github.com/atinyakov/GophShelf/internal/logger"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func newRootCmd() *cobra.Command {
	var (
		addr     string
		certFile string
		keyFile  string
	)

	root := &cobra.Command{
		Use:     "server",
		Short:   "Run the in-memory GophShelf API for local development",
		Long:    "Options come from GOPHSHELF_* environment variables; flags override them.",
		Version: fmt.Sprintf("%s (built %s)", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A")),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ParseServer(nil)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("tls-cert") {
				cfg.CertFile = certFile
			}
			if flags.Changed("tls-key") {
				cfg.KeyFile = keyFile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := logger.New()
			if err := log.Init(cfg.LogLevel); err != nil {
				return err
			}
			defer func() { _ = log.Log.Sync() }()
			log.Log.Info("build",
				zap.String("version", cmp.Or(version, "N/A")),
				zap.String("date", cmp.Or(buildDate, "N/A")),
			)
			if cfg.TokenSecret == "" {
				log.Log.Warn("GOPHSHELF_TOKEN_SECRET not set, tokens will not survive a restart")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, log.Log, nil)
		},
	}

	root.SilenceUsage = true
	root.Flags().StringVar(&addr, "addr", "", "listen address (GOPHSHELF_SERVER_ADDR)")
	root.Flags().StringVar(&certFile, "tls-cert", "", "TLS certificate file (GOPHSHELF_TLS_CERT)")
	root.Flags().StringVar(&keyFile, "tls-key", "", "TLS key file (GOPHSHELF_TLS_KEY)")
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
