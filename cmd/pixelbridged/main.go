// Command pixelbridged serves the pixelbridge command socket over the
// built-in engine. Host applications embed the server directly instead and
// call its Start/Stop from their own plugin lifecycle.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pixelbridge/pixelbridge/internal/config"
	"github.com/pixelbridge/pixelbridge/internal/dispatch"
	"github.com/pixelbridge/pixelbridge/internal/engine"
	"github.com/pixelbridge/pixelbridge/internal/handle"
	"github.com/pixelbridge/pixelbridge/internal/logger"
	"github.com/pixelbridge/pixelbridge/internal/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "pixelbridged",
		Short:   "Command bridge daemon for driving an image editor over a local socket",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		listen     string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the command server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				configPath = config.Path()
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				host, port, err := net.SplitHostPort(listen)
				if err != nil {
					return fmt.Errorf("invalid --listen address %q: %w", listen, err)
				}
				cfg.Server.Host = host
				if cfg.Server.Port, err = strconv.Atoi(port); err != nil {
					return fmt.Errorf("invalid --listen port %q: %w", port, err)
				}
			}
			level := cfg.Logging.Level
			if verbose {
				level = "debug"
			}
			logger.Configure(level)

			handles := handle.NewTable(cfg.Handles.TTL())
			defer handles.Close()

			table, err := dispatch.NewTable(engine.New().Root(), handles)
			if err != nil {
				return err
			}
			logger.Debug("dispatch table built", "operations", len(table.Paths()))

			srv := server.New(cfg, table)
			if err := srv.Start(); err != nil {
				return err
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
				logger.Info("shutting down")
				srv.Stop()
			case <-srv.Done():
				// Stopped by a client shutdown command.
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file path (default "+config.Path()+")")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address override, host:port")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log every command at debug level")
	return cmd
}
