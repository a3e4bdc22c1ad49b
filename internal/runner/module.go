package runner

import (
	"context"

	"pip_secure/internal/models"
	"pip_secure/internal/modules/config"
	"pip_secure/internal/modules/events"
	healthsvc "pip_secure/internal/modules/health/service"
	"pip_secure/internal/notify"
	"pip_secure/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			func(evs chan<- models.SecuringEvent, state *healthsvc.State, counters *events.Counters) *Manager {
				return NewManager(Deps{
					Events:   evs,
					Beat:     state,
					Counters: counters,
				})
			},
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			m *Manager,
			cfg *config.Config,
			state *healthsvc.State,
			n notify.Notifier,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					started := 0
					for _, a := range cfg.EnabledAccounts() {
						if err := m.RunForAccount(ctx, a, n); err != nil {
							// битый аккаунт пропускаем, остальные стартуют
							logger.Error("[RUNNER] account %d not started: %v", a.Login, err)
							n.Sendf("⚠️ Аккаунт %d (%s) не запущен: %v", a.Login, a.Name, err)
							continue
						}
						started++
					}
					state.SetReady(true)
					logger.Info("[RUNNER] started %d/%d accounts", started, len(cfg.EnabledAccounts()))
					n.Sendf("🚀 pip_secure запущен: %d счётов на мониторинге", started)
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					m.StopAll(stopCtx)
					return nil
				},
			})
		}),
	)
}
