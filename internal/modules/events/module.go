package events

import (
	"context"

	"pip_secure/internal/models"
	"pip_secure/internal/modules/config"

	"go.uber.org/fx"
)

func newEventsChan() chan models.SecuringEvent {
	return make(chan models.SecuringEvent, 1024)
}
func asSendOnlyEvents(ch chan models.SecuringEvent) chan<- models.SecuringEvent { return ch }
func asRecvOnlyEvents(ch chan models.SecuringEvent) <-chan models.SecuringEvent { return ch }

func Module() fx.Option {
	return fx.Module("events",
		fx.Provide(
			newEventsChan,    // chan models.SecuringEvent
			asSendOnlyEvents, // chan<- models.SecuringEvent
			asRecvOnlyEvents, // <-chan models.SecuringEvent
			NewCounters,
			func(cfg *config.Config, c *Counters) *Journal {
				return NewJournal(cfg.Events.JournalPath, cfg.Events.SummaryEvery.Std(), c)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, j *Journal, evs <-chan models.SecuringEvent, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					if err := j.Open(); err != nil {
						return err
					}
					go j.Run(ctx, evs)
					return nil
				},
				OnStop: func(_ context.Context) error {
					return j.Close()
				},
			})
		}),
	)
}
