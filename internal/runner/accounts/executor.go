package accounts

import (
	"context"
	"errors"
	"time"

	"pip_secure/internal/helper"
	"pip_secure/internal/models"
	terminal "pip_secure/internal/modules/terminal/service"
	"pip_secure/pkg/logger"
)

// secureGroup двигает стоп каждого участника к его собственному входу.
// Отказ одного участника не прерывает ни группу, ни цикл; уже подтверждённые
// участники не переотправляются. Возвращённое событие уже записано в историю
// и отдано в журнал.
func (s *AccountSession) secureGroup(ctx context.Context, g *models.PositionGroup, members []models.Position) models.SecuringEvent {
	login := s.Settings.Login
	ev := models.SecuringEvent{
		Account: login,
		GroupID: g.ID,
		Symbol:  g.Symbol,
		Time:    time.Now(),
	}

	digits := s.digitsFor(g.Symbol)
	eps := helper.DigitsEps(digits)

	for _, p := range members {
		// подтверждён в прошлом цикле — не трогаем
		if s.Tracker.IsMemberSecured(g.ID, p.Ticket) {
			continue
		}

		target := helper.RoundToDigits(p.OpenPrice, digits)

		// идемпотентная предпроверка по живому стопу из этого же снапшота:
		// стоп уже на входе или лучше — запрос не шлём вовсе
		if slAtOrBetter(p, target, eps) {
			ev.Skipped = append(ev.Skipped, p.Ticket)
			s.Tracker.MarkMemberSecured(g.ID, p.Ticket)
			continue
		}

		if err := s.modifyWithRetry(ctx, p.Ticket, target, p.TP); err != nil {
			ev.Failed = append(ev.Failed, p.Ticket)
			logger.Error("[SECURE] account=%d group=%s ticket=%d kind=%s: %v",
				login, g.ID, p.Ticket, terminal.KindOf(err), err)
			continue
		}

		ev.Modified = append(ev.Modified, p.Ticket)
		s.Tracker.MarkMemberSecured(g.ID, p.Ticket)
		logger.Info("[SECURE] account=%d group=%s ticket=%d SL -> %.5f (entry)",
			login, g.ID, p.Ticket, target)
	}

	switch {
	case len(ev.Failed) == 0 && len(ev.Modified)+len(ev.Skipped) > 0:
		ev.Outcome = models.OutcomeSuccess
	case len(ev.Modified)+len(ev.Skipped) > 0:
		ev.Outcome = models.OutcomePartial
		ev.Detail = "some members not secured, retry next cycle"
	default:
		ev.Outcome = models.OutcomeFailure
		ev.Detail = "no member secured"
	}

	s.Tracker.RecordEvent(g.ID, ev)
	s.emit(ev)
	if s.Beat != nil && len(ev.Modified) > 0 {
		s.Beat.AddSecured(login, len(ev.Modified))
	}
	s.notifyOutcome(g, ev)

	return ev
}

// modifyWithRetry шлёт modify с ретраями только на Transient-отказы:
// requote/invalid price ждут свежих цен следующего цикла, reject — политика
// брокера, повтор в цикле бессмыслен.
func (s *AccountSession) modifyWithRetry(ctx context.Context, ticket int64, sl, tp float64) error {
	retries := s.Settings.Secure.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := s.Settings.Secure.RetryBackoff.Std()
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := s.Terminal.ModifyStopLoss(callCtx, ticket, sl, tp)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		var te *terminal.TradeError
		if errors.As(err, &te) && te.Kind != terminal.KindTransient {
			return err
		}

		if attempt == retries-1 {
			break
		}
		s.Counters.CountRetry(s.Settings.Login)
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}

// slAtOrBetter: для buy стоп не ниже цели, для sell — не выше; ноль значит
// "стопа нет".
func slAtOrBetter(p models.Position, target, eps float64) bool {
	if p.SL <= 0 {
		return false
	}
	if p.Side == models.SideSell {
		return p.SL <= target+eps
	}
	return p.SL >= target-eps
}

func (s *AccountSession) notifyOutcome(g *models.PositionGroup, ev models.SecuringEvent) {
	switch ev.Outcome {
	case models.OutcomeSuccess:
		s.Notifier.Sendf("🛡 [%d] %s: группа из %d поз. в безубытке (modified: %s, skipped: %s)",
			s.Settings.Login, g.Symbol, g.Size(),
			helper.FormatTickets(ev.Modified), helper.FormatTickets(ev.Skipped))
	case models.OutcomePartial:
		s.Notifier.Sendf("⚠️ [%d] %s: группа в безубытке частично (ok: %s, failed: %s), ретрай в следующем цикле",
			s.Settings.Login, g.Symbol,
			helper.FormatTickets(ev.Modified), helper.FormatTickets(ev.Failed))
	case models.OutcomeFailure:
		s.Notifier.Sendf("❗️ [%d] %s: не удалось обезопасить группу (failed: %s)",
			s.Settings.Login, g.Symbol, helper.FormatTickets(ev.Failed))
	}
}
