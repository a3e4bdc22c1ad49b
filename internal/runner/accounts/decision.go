package accounts

import (
	"fmt"
	"math"
	"sort"

	"pip_secure/internal/models"
)

// SecurePolicy решает, пора ли группе в безубыток. Политика подключаемая:
// правило "сигнал один — риск снимаем совместно" бизнесовое, не
// архитектурное, и заменяется без касания группировки и исполнителя.
type SecurePolicy interface {
	Evaluate(g *models.PositionGroup, members []models.Position, rules models.SecureRules) (trigger bool, reason string)
}

// PolicyFor — фабрика по имени из конфига. Неизвестное имя — ошибка
// конфигурации, аккаунт с ней не стартует.
func PolicyFor(rules models.SecureRules) (SecurePolicy, error) {
	switch rules.Policy {
	case "", models.PolicyActivation:
		return activationPolicy{}, nil
	case models.PolicyTPProgress:
		return tpProgressPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown secure policy %q", rules.Policy)
	}
}

// thresholdFor — порог активации в пипсах с пер-символьным оверрайдом.
// Порог <= 0 выключает срабатывание по символу.
func thresholdFor(rules models.SecureRules, symbol string) float64 {
	if v, ok := rules.ActivationBySymbol[symbol]; ok {
		return v
	}
	return rules.ActivationPips
}

// activationPolicy: триггер по лучшему участнику. Движение каждого считается
// от его собственного входа; как только лучший прошёл порог, кандидатами на
// безубыток становятся все участники группы. Синглтон меряется сам по себе.
type activationPolicy struct{}

func (activationPolicy) Evaluate(g *models.PositionGroup, members []models.Position, rules models.SecureRules) (bool, string) {
	if len(members) == 0 {
		return false, ""
	}

	thr := thresholdFor(rules, g.Symbol)
	if thr <= 0 {
		return false, ""
	}

	pip := PipSize(g.Symbol)
	best := math.Inf(-1)
	var bestTicket int64
	for _, p := range members {
		if gained := p.FavorablePips(pip); gained > best {
			best = gained
			bestTicket = p.Ticket
		}
	}

	if best < thr {
		return false, ""
	}
	return true, fmt.Sprintf("best member %d at %+.1f pips >= %.1f", bestTicket, best, thr)
}

// tpProgressPolicy: триггер по близости к ближайшему тейку группы (TP1).
// Для buy TP1 — наименьший тейк, для sell — наибольший. Срабатывает, когда
// до TP1 осталось <= TPTriggerPips или пройдено >= TPTriggerProgress пути.
// Группа без единого тейка откатывается на правило активации.
type tpProgressPolicy struct{}

func (tpProgressPolicy) Evaluate(g *models.PositionGroup, members []models.Position, rules models.SecureRules) (bool, string) {
	withTP := make([]models.Position, 0, len(members))
	for _, p := range members {
		if p.TP > 0 {
			withTP = append(withTP, p)
		}
	}
	if len(withTP) == 0 {
		return activationPolicy{}.Evaluate(g, members, rules)
	}

	sort.Slice(withTP, func(i, j int) bool {
		if g.Side == models.SideSell {
			return withTP[i].TP > withTP[j].TP
		}
		return withTP[i].TP < withTP[j].TP
	})
	tp1 := withTP[0]

	pip := PipSize(g.Symbol)
	if pip <= 0 {
		return false, ""
	}

	var pipsToTP, totalPips float64
	if tp1.Side == models.SideSell {
		pipsToTP = (tp1.PriceCurrent - tp1.TP) / pip
		totalPips = (tp1.OpenPrice - tp1.TP) / pip
	} else {
		pipsToTP = (tp1.TP - tp1.PriceCurrent) / pip
		totalPips = (tp1.TP - tp1.OpenPrice) / pip
	}

	if rules.TPTriggerPips > 0 && pipsToTP <= rules.TPTriggerPips {
		return true, fmt.Sprintf("member %d within %.1f pips of TP1", tp1.Ticket, pipsToTP)
	}

	if rules.TPTriggerProgress > 0 && totalPips > 0.1 {
		progress := tp1.FavorablePips(pip) / totalPips
		if progress >= rules.TPTriggerProgress {
			return true, fmt.Sprintf("member %d at %.0f%% of TP1 distance", tp1.Ticket, progress*100)
		}
	}

	return false, ""
}
