package main

import (
	"context"
	"log"

	"pip_secure/internal/config"
	"pip_secure/internal/notify"
	"pip_secure/internal/runner"
	"pip_secure/pkg/logger"

	"go.uber.org/fx"
)

// single — мониторинг одного счёта из .env, без yaml, health и журнала.
func main() {
	app := fx.New(
		fx.Provide(
			config.Load,
			// Notifier: если TELEGRAM_* нет — используем stdout
			func(cfg *config.Config) notify.Notifier {
				if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
					if tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID); err == nil {
						return tg
					}
				}
				return notify.NewStdout()
			},
			func() *runner.Manager {
				return runner.NewManager(runner.Deps{})
			},
		),
		fx.Invoke(
			func(cfg *config.Config) error {
				logger.SetServiceName("pip_secure_single")
				return logger.Init(cfg.LogLevel)
			},
			func(lc fx.Lifecycle, m *runner.Manager, cfg *config.Config, n notify.Notifier) {
				lc.Append(fx.Hook{
					OnStart: func(_ context.Context) error {
						if err := m.RunForAccount(context.Background(), cfg.AccountSettings(), n); err != nil {
							return err
						}
						logger.Info("single account %d started", cfg.Login)
						return nil
					},
					OnStop: func(ctx context.Context) error {
						m.StopAll(ctx)
						logger.Sync()
						return nil
					},
				})
			},
		),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}
