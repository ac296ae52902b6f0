// Command client is the interactive GophShelf client: it signs in against the
// API and manages the user's categories from a terminal shell.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
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

var exampleUsage = strings.TrimSpace(`
  client --url http://localhost:5000/api
  client --store sqlite --state-dir ~/.gophshelf
  client --url https://localhost:5000/api --ca certs/ca.crt --watch
`)

func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func newRootCmd() *cobra.Command {
	cfg := config.DefaultClient()
	var cfgPath string

	root := &cobra.Command{
		Use:     "client",
		Short:   "Manage your GophShelf categories from the terminal",
		Example: exampleUsage,
		Version: fmt.Sprintf("%s (built %s) %s/%s", getVersion(), cmp.Or(buildDate, "N/A"), runtime.GOOS, runtime.GOARCH),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = config.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && config.FileExists(cfgFile) {
				fc, err := config.LoadFile(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := config.ApplyFile(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// GOPHSHELF_* override the file, flags override both
			if err := config.ApplyEnv(&cfg, changed, nil); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := logger.New()
			if err := log.Init(cfg.LogLevel); err != nil {
				return err
			}
			defer func() { _ = log.Log.Sync() }()
			log.Log.Debug("configuration",
				zap.String("url", cfg.BaseURL),
				zap.String("asset_url", cfg.AssetURL),
				zap.String("store", cfg.Store),
				zap.String("state_dir", cfg.StateDir),
				zap.Bool("watch", cfg.Watch),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), log.Log)
		},
	}

	root.SilenceUsage = true
	root.Flags().StringVar(&cfgPath, "config", "", "config file path (default $HOME/.gophshelf/config.toml)")
	root.Flags().StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "API base URL")
	root.Flags().StringVar(&cfg.AssetURL, "asset-url", cfg.AssetURL, "hosted image base URL (derived from --url when empty)")
	root.Flags().StringVar(&cfg.CAFile, "ca", cfg.CAFile, "extra CA certificate to trust")
	root.Flags().StringVar(&cfg.Store, "store", cfg.Store, "credential store: file, sqlite or postgres")
	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for local client state (default $HOME/.gophshelf)")
	root.Flags().StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "database DSN for the sqlite or postgres store")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP request timeout (0 leaves it to the transport)")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "follow sign-ins and sign-outs made by other clients (file store only)")
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
