package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"pip_secure/internal/models"
	terminal "pip_secure/internal/modules/terminal/service"
)

func TestRunCycleSecuresTriggeredGroup(t *testing.T) {
	term := newFakeTerminal()
	s := newTestSession(t, testSettings(), term)

	// лучший участник +25 пипсов — триггер; оба уходят на свои входы
	term.positions = []models.Position{
		pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1025),
		pos(2, "EURUSD", models.SideBuy, 2*time.Second, 1.1002, 1.1027),
	}

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	calls := term.modifyCalls()
	if len(calls) != 2 {
		t.Fatalf("want 2 modify calls, got %d", len(calls))
	}
	want := map[int64]float64{1: 1.1000, 2: 1.1002}
	for _, c := range calls {
		if c.SL != want[c.Ticket] {
			t.Errorf("ticket %d: SL=%v, want own entry %v", c.Ticket, c.SL, want[c.Ticket])
		}
	}

	groups := s.Tracker.Snapshot()
	if len(groups) != 1 || groups[0].State != models.GroupSecured {
		t.Fatalf("group must be secured after the cycle")
	}
}

func TestRunCycleBelowThresholdDoesNothing(t *testing.T) {
	term := newFakeTerminal()
	s := newTestSession(t, testSettings(), term)

	term.positions = []models.Position{
		pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1010),
	}

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(term.modifyCalls()) != 0 {
		t.Fatalf("+10 pips at threshold 20: want no modifies")
	}
}

func TestRunCycleSecondCycleIsIdempotent(t *testing.T) {
	term := newFakeTerminal()
	s := newTestSession(t, testSettings(), term)

	term.positions = []models.Position{
		pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1025),
	}

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	term.resetCalls()

	// тот же снапшот (стоп уже на входе после первого цикла)
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle 2: %v", err)
	}
	if len(term.modifyCalls()) != 0 {
		t.Fatalf("secured group must not be touched again, got %d calls", len(term.modifyCalls()))
	}
}

func TestRunCycleConnectionErrorBubblesUp(t *testing.T) {
	term := newFakeTerminal()
	s := newTestSession(t, testSettings(), term)
	term.posErr = terminal.ErrConnection

	err := s.RunCycle(context.Background())
	if !errors.Is(err, terminal.ErrConnection) {
		t.Fatalf("want ErrConnection, got %v", err)
	}
}

func TestRunCycleConnectionLossKeepsState(t *testing.T) {
	term := newFakeTerminal()
	s := newTestSession(t, testSettings(), term)

	term.positions = []models.Position{
		pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1010),
	}
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	id := s.Tracker.Snapshot()[0].ID

	// обрыв связи: состояние трекера не трогается
	term.posErr = terminal.ErrConnection
	if err := s.RunCycle(context.Background()); !errors.Is(err, terminal.ErrConnection) {
		t.Fatalf("want ErrConnection, got %v", err)
	}
	groups := s.Tracker.Snapshot()
	if len(groups) != 1 || groups[0].ID != id {
		t.Fatalf("groups must survive a connection loss")
	}

	term.posErr = nil
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle 3: %v", err)
	}
	if got := s.Tracker.Snapshot()[0].ID; got != id {
		t.Fatalf("group id changed across reconnect: %s -> %s", id, got)
	}
}

func TestRunCycleDeletesPendingOrdersOnFirstTrigger(t *testing.T) {
	settings := testSettings()
	settings.Secure.ManagePendingOrders = true
	term := newFakeTerminal()
	s := newTestSession(t, settings, term)

	term.positions = []models.Position{
		pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1025),
	}
	term.orders = []models.PendingOrder{
		{Ticket: 100, Symbol: "EURUSD", Type: models.OrderBuyLimit, Price: 1.0950},
		{Ticket: 101, Symbol: "EURUSD", Type: models.OrderSellStop, Price: 1.0900}, // другое направление
		{Ticket: 102, Symbol: "GBPUSD", Type: models.OrderBuyLimit, Price: 1.2950}, // другой символ
	}

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(term.deleted) != 1 || term.deleted[0] != 100 {
		t.Fatalf("only same symbol+side pendings must go, deleted=%v", term.deleted)
	}
}

func TestRunCycleSecuresSecondPriceAtGroupEntry(t *testing.T) {
	settings := testSettings()
	settings.Secure.SecureSecondPrice = true
	term := newFakeTerminal()
	s := newTestSession(t, settings, term)

	// вторая цена открыта сильно позже — отдельная группа, свой триггер (+10) не прошла
	term.positions = []models.Position{
		pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1025),
		pos(9, "EURUSD", models.SideBuy, 600*time.Second, 1.1015, 1.1025),
	}

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	calls := term.modifyCalls()
	var second *modifyCall
	for i := range calls {
		if calls[i].Ticket == 9 {
			second = &calls[i]
		}
	}
	if second == nil {
		t.Fatalf("second-price position must be secured, calls=%v", calls)
	}
	if second.SL != 1.1000 {
		t.Fatalf("second price SL=%v, want group entry 1.1000", second.SL)
	}
}
