package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sinhabinayak2207/extrawork/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr      string
		heartbeat time.Duration
		maxUpload int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, addr, heartbeat, maxUpload)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.host:server.port)")
	cmd.Flags().DurationVar(&heartbeat, "heartbeat", 25*time.Second, "Event stream keep-alive interval")
	cmd.Flags().Int64Var(&maxUpload, "max-upload", 10<<20, "Largest accepted image upload in bytes")
	return cmd
}

func runServe(ctx context.Context, addr string, heartbeat time.Duration, maxUpload int64) error {
	rt, err := openRuntime(ctx, runtimeOptions{serve: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			warn("shutdown: %v", err)
		}
	}()

	authn, err := newAuthenticator()
	if err != nil {
		return err
	}

	opts := server.Options{
		Service:   rt.svc,
		Auth:      authn,
		Logger:    rt.log,
		MaxUpload: maxUpload,
		Heartbeat: heartbeat,
	}
	if cfg.Assets.Backend == "local" {
		opts.AssetsDir = cfg.Assets.Local.Dir
	}
	if addr == "" {
		addr = cfg.Server.Addr()
	}

	rt.log.Info("listening", zap.String("addr", addr),
		zap.String("remote", cfg.Remote.Backend), zap.String("assets", cfg.Assets.Backend))
	return server.New(opts).Run(ctx, addr)
}
