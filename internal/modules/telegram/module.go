package telegram

import (
	"context"

	"pip_secure/internal/modules/config"
	"pip_secure/internal/modules/events"
	"pip_secure/internal/modules/telegram/service"
	"pip_secure/internal/notify"
	"pip_secure/internal/runner"
	"pip_secure/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		// Без токена/чата деградируем в stdout-нотифайер — сервис работает,
		// просто без телеграма.
		fx.Provide(
			func(cfg *config.Config, m *runner.Manager, c *events.Counters) (notify.Notifier, error) {
				if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
					logger.Warn("[TG] token/chat_id not set, falling back to stdout notifier")
					return notify.NewStdout(), nil
				}
				return service.NewTelegram(cfg, m, c)
			},
		),
		fx.Invoke(
			func(lc fx.Lifecycle, n notify.Notifier, ctx context.Context) {
				t, ok := n.(*service.Telegram)
				if !ok {
					return
				}
				lc.Append(fx.Hook{
					OnStart: func(_ context.Context) error {
						t.Start(ctx)
						return nil
					},
					OnStop: func(_ context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
