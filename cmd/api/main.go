package main

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"accounts/config"
	"accounts/internal/delivery"
	"accounts/internal/delivery/http"
	"accounts/internal/delivery/http/middleware"
	"accounts/internal/delivery/http/router/handler"
	"accounts/internal/infra/auth"
	logs "accounts/internal/infra/log"
	"accounts/internal/infra/metrics"
	"accounts/internal/infra/persistence/postgres"
	"accounts/internal/usecase/impl"
)

type startServerParams struct {
	fx.In

	Logger     *slog.Logger
	Shutdowner fx.Shutdowner
	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
		infraModule(),
		accountModule(),
		httpModule(),
		fx.Invoke(startServer),
	).Run()
}

func infraModule() fx.Option {
	return fx.Module("infra",
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			metrics.NewRegistry,
			postgres.New,
			postgres.NewTransactionManager,
		),
	)
}

func accountModule() fx.Option {
	return fx.Module("account",
		fx.Provide(
			auth.NewPasswordHasher,
			auth.NewJWTService,
			impl.NewAccountService,
		),
	)
}

func httpModule() fx.Option {
	return fx.Module("http",
		fx.Provide(
			middleware.NewAuthMiddleware,
			handler.NewAccountHandler,
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// startServer runs every delivery in the background. A delivery that stops
// with an error takes the whole application down with exit code 1.
func startServer(ctx context.Context, params startServerParams) {
	for _, d := range params.Deliveries {
		go func() {
			if err := d.Serve(ctx); err != nil {
				params.Logger.Error("Delivery stopped", slog.Any("error", err))
				if shutdownErr := params.Shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
					params.Logger.Error("Failed to request shutdown", slog.Any("error", shutdownErr))
				}
			}
		}()
	}
}
