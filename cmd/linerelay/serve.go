package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/darekasanga/linerelay/internal/config"
	"github.com/darekasanga/linerelay/internal/handlers"
	"github.com/darekasanga/linerelay/internal/line"
	"github.com/darekasanga/linerelay/internal/logger"
	"github.com/darekasanga/linerelay/internal/relay"
	"github.com/darekasanga/linerelay/internal/server"
	"github.com/darekasanga/linerelay/internal/store"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLineClient,
			providePublisher,
			provideQueue,
			providePipeline,
			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(handlers.NewWebhookHandler),
			provideServerHandler(handlers.NewFileManagerHandler),
			provideServer,
		),
		fx.Invoke(
			startWorker,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideLineClient(log *slog.Logger, cfg config.Config) *line.Client {
	return line.NewClient(log, cfg.Line)
}

func providePublisher(log *slog.Logger, cfg config.Config) *store.Publisher {
	return store.NewPublisher(log, cfg.GitHub)
}

func provideQueue(log *slog.Logger, cfg config.Config) *relay.Queue {
	return relay.NewQueue(log, cfg.Queue.Buffer)
}

func providePipeline(log *slog.Logger, cfg config.Config, client *line.Client, publisher *store.Publisher) *relay.Pipeline {
	return relay.NewPipeline(log, client, client, publisher, cfg.GitHub, cfg.Image)
}

type serverParams struct {
	fx.In

	Logger   *slog.Logger
	Cfg      config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(p serverParams) *server.Server {
	return server.NewServer(p.Logger, p.Cfg.Server.Addr, p.Handlers...)
}

// startWorker runs the single relay worker for the lifetime of the app. Jobs
// already started are allowed to finish before shutdown completes.
func startWorker(lc fx.Lifecycle, queue *relay.Queue, pipeline *relay.Pipeline) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				queue.Run(ctx, pipeline.Process)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("server listening", slog.String("addr", cfg.Server.Addr))
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server stopped", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
