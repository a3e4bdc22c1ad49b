package accounts

import (
	"context"
	"time"

	"pip_secure/internal/models"
	"pip_secure/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// RunCycle — один полный проход: снапшот -> группировка -> решение -> стопы.
// Ошибка возвращается только по снапшоту (обрыв связи с мостом), всё остальное
// деградирует на уровне группы/участника и цикл не валит.
func (s *AccountSession) RunCycle(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "poll_cycle")
	span.SetTag("account", s.Settings.Login)
	defer span.Finish()

	snapSpan, snapCtx := opentracing.StartSpanFromContext(ctx, "snapshot")
	positions, err := s.Terminal.OpenPositions(snapCtx)
	snapSpan.Finish()
	if err != nil {
		return err
	}

	s.warmSymbols(ctx, positions)

	groupSpan, _ := opentracing.StartSpanFromContext(ctx, "grouping")
	clusters := groupSnapshot(positions, s.Settings.Group)
	groups := s.Tracker.Reconcile(clusters)
	groupSpan.Finish()

	s.Counters.CountCycle(s.Settings.Login)
	s.Counters.CountGroups(s.Settings.Login, len(groups))

	byTicket := make(map[int64]models.Position, len(positions))
	for _, p := range positions {
		byTicket[p.Ticket] = p
	}

	for _, g := range s.Tracker.PendingDecision() {
		members := make([]models.Position, 0, len(g.Tickets))
		for _, tk := range g.Tickets {
			if p, ok := byTicket[tk]; ok {
				members = append(members, p)
			}
		}
		if len(members) == 0 {
			continue
		}

		trigger, reason := s.Policy.Evaluate(g, members, s.Settings.Secure)
		if !trigger {
			continue
		}

		first := s.Tracker.MarkTriggered(g.ID)
		logger.Info("[CYCLE] account=%d group=%s %s/%s triggered: %s",
			s.Settings.Login, g.ID, g.Symbol, g.Side, reason)

		// начатые модификации доводим до ответа даже на shutdown: полугруппа
		// в безубытке хуже, чем группа, засекьюренная на следующем рестарте
		execSpan, execCtx := opentracing.StartSpanFromContext(context.WithoutCancel(ctx), "execution")
		s.secureGroup(execCtx, g, members)
		if first {
			s.manageSecondLevel(execCtx, g, positions)
		}
		execSpan.Finish()
	}

	if s.Beat != nil {
		s.Beat.TouchCycle(s.Settings.Login, time.Now())
	}
	return nil
}
