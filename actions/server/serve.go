package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/PiotrWarzachowski/social-uploader/internal/api"
	"github.com/PiotrWarzachowski/social-uploader/internal/app"
)

const shutdownTimeout = 30 * time.Second

// ServeCommand runs the HTTP API.
var ServeCommand = &cli.Command{
	Name:  "serve",
	Usage: "Run the upload HTTP API",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "Listen host (overrides HOST)",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Listen port (overrides PORT)",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "Enable debug output",
		},
	},
	Action: serveAction,
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	env, err := app.Load(cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.Config
	if h := cmd.String("host"); h != "" {
		cfg.Server.Host = h
	}
	if p := cmd.Int("port"); p != 0 {
		cfg.Server.Port = int(p)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := env.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open upload store: %w", err)
	}
	defer store.Close()

	driver, err := env.YouTubeDriver()
	if err != nil {
		return fmt.Errorf("failed to prepare YouTube driver: %w", err)
	}

	reels, err := env.ReelProvider()
	if err != nil {
		return fmt.Errorf("failed to prepare Instagram provider: %w", err)
	}

	srv := api.New(api.Options{
		BodyLimitMB: cfg.Server.BodyLimitMB,
		UploadDir:   cfg.UploadDir,
		SessionsDir: cfg.SessionsDir,
	}, store, driver, reels, env.Logger)

	env.Logger.Info("starting server",
		"addr", cfg.Addr(),
		"version", api.Version,
		"upload_dir", cfg.UploadDir,
		"sessions_dir", cfg.SessionsDir,
		"storage", cfg.Storage.Backend,
		"headless", cfg.Browser.Headless,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Listen(cfg.Addr())
	})

	g.Go(func() error {
		<-gctx.Done()
		env.Logger.Info("shutting down server")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	env.Logger.Info("server stopped")
	return nil
}
