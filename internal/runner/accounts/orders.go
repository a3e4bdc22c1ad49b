package accounts

import (
	"context"
	"time"

	"pip_secure/internal/helper"
	"pip_secure/internal/models"
	"pip_secure/pkg/logger"
)

// manageSecondLevel применяет правила "второго эшелона" после первого
// срабатывания группы. Вторая цена живёт либо в отложках, либо уже в рынке:
// нашлись отложки того же символа и направления — снимаем их (правило 1),
// не нашлись — переводим открытые позиции второй цены на вход группы
// (правило 2). Вызывается ровно один раз на группу — на цикле, где условие
// сработало впервые.
func (s *AccountSession) manageSecondLevel(ctx context.Context, g *models.PositionGroup, snapshot []models.Position) {
	rules := s.Settings.Secure
	if !rules.ManagePendingOrders && !rules.SecureSecondPrice {
		return
	}

	orders, err := s.Terminal.PendingOrders(ctx)
	if err != nil {
		logger.Error("[ORDERS] account=%d group=%s pending orders: %v", s.Settings.Login, g.ID, err)
		return
	}

	var matched []models.PendingOrder
	for _, o := range orders {
		if o.Symbol == g.Symbol && o.Side() == g.Side {
			matched = append(matched, o)
		}
	}

	switch {
	case len(matched) > 0:
		if rules.ManagePendingOrders {
			s.deleteGroupPendings(ctx, g, matched)
		}
	default:
		if rules.SecureSecondPrice {
			s.secureSecondPrice(ctx, g, snapshot)
		}
	}
}

// deleteGroupPendings снимает отложки того же символа и направления, что и
// группа: раз первый уровень уже в безубытке, доливка по худшей цене не нужна.
// На каждый ордер две попытки — удаление не торговая модификация, третьей не надо.
func (s *AccountSession) deleteGroupPendings(ctx context.Context, g *models.PositionGroup, orders []models.PendingOrder) {
	var deleted, failed []int64
	for _, o := range orders {
		var delErr error
		for attempt := 0; attempt < 2; attempt++ {
			callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			delErr = s.Terminal.DeleteOrder(callCtx, o.Ticket)
			cancel()
			if delErr == nil {
				break
			}
		}
		if delErr != nil {
			failed = append(failed, o.Ticket)
			logger.Error("[ORDERS] account=%d group=%s delete order %d: %v",
				s.Settings.Login, g.ID, o.Ticket, delErr)
			continue
		}
		deleted = append(deleted, o.Ticket)
	}

	if len(deleted) == 0 && len(failed) == 0 {
		return
	}
	logger.Info("[ORDERS] account=%d group=%s pendings deleted=%s failed=%s",
		s.Settings.Login, g.ID, helper.FormatTickets(deleted), helper.FormatTickets(failed))
	if len(deleted) > 0 {
		s.Notifier.Sendf("🧹 [%d] %s: сняты отложки %s после срабатывания группы",
			s.Settings.Login, g.Symbol, helper.FormatTickets(deleted))
	}
}

// secureSecondPrice переводит в безубыток позиции того же символа и направления,
// не вошедшие в группу (вторая цена доливки). Их стоп ставится на вход группы,
// а не на их собственный: свою цену они ещё не отбили.
func (s *AccountSession) secureSecondPrice(ctx context.Context, g *models.PositionGroup, snapshot []models.Position) {
	member := make(map[int64]bool, len(g.Tickets))
	for _, t := range g.Tickets {
		member[t] = true
	}

	digits := s.digitsFor(g.Symbol)
	eps := helper.DigitsEps(digits)
	target := helper.RoundToDigits(g.OpenPrice, digits)

	ev := models.SecuringEvent{
		Account: s.Settings.Login,
		GroupID: g.ID,
		Symbol:  g.Symbol,
		Time:    time.Now(),
		Detail:  "second price secured at group entry",
	}

	for _, p := range snapshot {
		if p.Symbol != g.Symbol || p.Side != g.Side || member[p.Ticket] {
			continue
		}
		if slAtOrBetter(p, target, eps) {
			ev.Skipped = append(ev.Skipped, p.Ticket)
			continue
		}

		if err := s.modifyWithRetry(ctx, p.Ticket, target, p.TP); err != nil {
			ev.Failed = append(ev.Failed, p.Ticket)
			logger.Error("[ORDERS] account=%d group=%s second-price ticket=%d: %v",
				s.Settings.Login, g.ID, p.Ticket, err)
			continue
		}
		ev.Modified = append(ev.Modified, p.Ticket)
		logger.Info("[ORDERS] account=%d group=%s second-price ticket=%d SL -> %.5f (group entry)",
			s.Settings.Login, g.ID, p.Ticket, target)
	}

	// второй цены может не быть вовсе — тогда и события нет
	if len(ev.Modified)+len(ev.Skipped)+len(ev.Failed) == 0 {
		return
	}

	switch {
	case len(ev.Failed) == 0:
		ev.Outcome = models.OutcomeSuccess
	case len(ev.Modified)+len(ev.Skipped) > 0:
		ev.Outcome = models.OutcomePartial
	default:
		ev.Outcome = models.OutcomeFailure
	}

	s.emit(ev)
	if len(ev.Modified) > 0 {
		s.Notifier.Sendf("🛡 [%d] %s: позиции второй цены %s переведены на вход группы",
			s.Settings.Login, g.Symbol, helper.FormatTickets(ev.Modified))
	}
}
