package accounts

import (
	"testing"
	"time"

	"pip_secure/internal/models"
)

func groupOf(ps ...models.Position) *models.PositionGroup {
	g := &models.PositionGroup{
		ID:     "g1",
		Symbol: ps[0].Symbol,
		Side:   ps[0].Side,
		State:  models.GroupUnsecured,
	}
	for _, p := range ps {
		g.Tickets = append(g.Tickets, p.Ticket)
	}
	return g
}

func TestActivationTriggersOnBestMember(t *testing.T) {
	r := models.SecureRules{Policy: models.PolicyActivation, ActivationPips: 20}

	// +25 и +5 пипсов: лучший прошёл порог, триггер на всю группу
	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1025)
	p2 := pos(2, "EURUSD", models.SideBuy, time.Second, 1.1001, 1.1006)
	g := groupOf(p1, p2)

	policy := activationPolicy{}
	trigger, reason := policy.Evaluate(g, []models.Position{p1, p2}, r)
	if !trigger {
		t.Fatalf("best member at +25 pips must trigger at threshold 20")
	}
	if reason == "" {
		t.Fatalf("trigger must carry a reason")
	}
}

func TestActivationBelowThreshold(t *testing.T) {
	r := models.SecureRules{Policy: models.PolicyActivation, ActivationPips: 20}

	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1015)
	g := groupOf(p1)

	policy := activationPolicy{}
	if trigger, _ := policy.Evaluate(g, []models.Position{p1}, r); trigger {
		t.Fatalf("+15 pips must not trigger at threshold 20")
	}
}

func TestActivationSellDirection(t *testing.T) {
	r := models.SecureRules{Policy: models.PolicyActivation, ActivationPips: 20}

	// sell: профит при падении цены
	p1 := pos(1, "EURUSD", models.SideSell, 0, 1.1000, 1.0975)
	g := groupOf(p1)

	policy := activationPolicy{}
	if trigger, _ := policy.Evaluate(g, []models.Position{p1}, r); !trigger {
		t.Fatalf("sell 25 pips in profit must trigger")
	}

	p2 := pos(2, "EURUSD", models.SideSell, 0, 1.1000, 1.1025)
	g2 := groupOf(p2)
	if trigger, _ := policy.Evaluate(g2, []models.Position{p2}, r); trigger {
		t.Fatalf("sell 25 pips in drawdown must not trigger")
	}
}

func TestActivationPerSymbolOverride(t *testing.T) {
	r := models.SecureRules{
		Policy:             models.PolicyActivation,
		ActivationPips:     20,
		ActivationBySymbol: map[string]float64{"XAUUSD": 150},
	}

	// +120 пипсов золота: выше общего порога, ниже пер-символьного
	p1 := pos(1, "XAUUSD", models.SideBuy, 0, 2300.00, 2301.20)
	g := groupOf(p1)

	policy := activationPolicy{}
	if trigger, _ := policy.Evaluate(g, []models.Position{p1}, r); trigger {
		t.Fatalf("per-symbol threshold must win over the default")
	}
}

func TestActivationZeroThresholdDisables(t *testing.T) {
	r := models.SecureRules{Policy: models.PolicyActivation, ActivationPips: 0}

	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.2000)
	g := groupOf(p1)

	policy := activationPolicy{}
	if trigger, _ := policy.Evaluate(g, []models.Position{p1}, r); trigger {
		t.Fatalf("zero threshold disables the symbol")
	}
}

func TestTPProgressWithinPips(t *testing.T) {
	r := models.SecureRules{Policy: models.PolicyTPProgress, TPTriggerPips: 10, ActivationPips: 20}

	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1042)
	p1.TP = 1.1050 // до TP1 8 пипсов
	g := groupOf(p1)

	policy := tpProgressPolicy{}
	if trigger, _ := policy.Evaluate(g, []models.Position{p1}, r); !trigger {
		t.Fatalf("8 pips to TP1 must trigger at TPTriggerPips=10")
	}
}

func TestTPProgressByShare(t *testing.T) {
	r := models.SecureRules{Policy: models.PolicyTPProgress, TPTriggerProgress: 0.7}

	// пройдено 40 из 50 пипсов пути = 80%
	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1040)
	p1.TP = 1.1050
	g := groupOf(p1)

	policy := tpProgressPolicy{}
	if trigger, _ := policy.Evaluate(g, []models.Position{p1}, r); !trigger {
		t.Fatalf("80%% of TP distance must trigger at 0.7")
	}

	p1.PriceCurrent = 1.1030 // 60%
	if trigger, _ := policy.Evaluate(g, []models.Position{p1}, r); trigger {
		t.Fatalf("60%% of TP distance must not trigger at 0.7")
	}
}

func TestTPProgressPicksNearestTP(t *testing.T) {
	r := models.SecureRules{Policy: models.PolicyTPProgress, TPTriggerPips: 10}

	// TP1 группы — наименьший тейк для buy
	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1042)
	p1.TP = 1.1050
	p2 := pos(2, "EURUSD", models.SideBuy, time.Second, 1.1001, 1.1042)
	p2.TP = 1.1200
	g := groupOf(p1, p2)

	policy := tpProgressPolicy{}
	trigger, reason := policy.Evaluate(g, []models.Position{p1, p2}, r)
	if !trigger {
		t.Fatalf("nearest TP at 8 pips must trigger")
	}
	if reason == "" {
		t.Fatalf("trigger must carry a reason")
	}
}

func TestTPProgressFallsBackWithoutTPs(t *testing.T) {
	r := models.SecureRules{Policy: models.PolicyTPProgress, TPTriggerPips: 10, ActivationPips: 20}

	// тейков нет — откат на правило активации
	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1025)
	g := groupOf(p1)

	policy := tpProgressPolicy{}
	if trigger, _ := policy.Evaluate(g, []models.Position{p1}, r); !trigger {
		t.Fatalf("no TPs must fall back to activation and trigger at +25")
	}
}

func TestPolicyForUnknownName(t *testing.T) {
	if _, err := PolicyFor(models.SecureRules{Policy: "nope"}); err == nil {
		t.Fatalf("unknown policy must be a config error")
	}
	if _, err := PolicyFor(models.SecureRules{}); err != nil {
		t.Fatalf("empty policy must default to activation: %v", err)
	}
}
