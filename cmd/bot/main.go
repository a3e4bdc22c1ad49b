package main

import (
	"context"
	"log"

	"pip_secure/internal/modules/config"
	"pip_secure/internal/modules/events"
	"pip_secure/internal/modules/health"
	"pip_secure/internal/modules/telegram"
	"pip_secure/internal/runner"
	"pip_secure/pkg/logger"
	"pip_secure/pkg/tracing"

	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			logger.SetServiceName(cfg.ServiceName)
			tracing.SetServiceName(cfg.ServiceName)
			if err := logger.Init(cfg.LogLevel); err != nil {
				return err
			}

			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host:     cfg.Tracing.Host,
				Port:     cfg.Tracing.Port,
				Disabled: cfg.Tracing.Disabled || cfg.Tracing.Host == "",
			})
			if err != nil {
				// трейсинг опциональный: без агента едем дальше
				logger.Warn("tracing disabled: %v", err)
				return nil
			}
			// закрытие репортера на остановке, иначе хвост спанов пропадает
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					closeTracer()
					return nil
				},
			})
			return nil
		}),
		events.Module(),
		health.Module(),
		runner.Module(),
		telegram.Module(),
	)
	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	<-app.Done()
	if err := app.Stop(context.Background()); err != nil {
		logger.Error("shutdown: %v", err)
	}
}
