package accounts

import (
	"testing"
	"time"

	"pip_secure/internal/models"
)

func cluster(ps ...models.Position) []models.Position { return ps }

func TestTrackerStableIdentityAcrossCycles(t *testing.T) {
	tr := NewTracker(111)
	c := cluster(
		pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1000),
		pos(2, "EURUSD", models.SideBuy, time.Second, 1.1001, 1.1001),
	)

	g1 := tr.Reconcile([][]models.Position{c})
	g2 := tr.Reconcile([][]models.Position{c})

	if len(g1) != 1 || len(g2) != 1 {
		t.Fatalf("want one group per cycle, got %d then %d", len(g1), len(g2))
	}
	if g1[0].ID != g2[0].ID {
		t.Fatalf("identical snapshot must keep group id: %s vs %s", g1[0].ID, g2[0].ID)
	}
}

func TestTrackerIdentitySurvivesPartialClose(t *testing.T) {
	tr := NewTracker(111)
	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1000)
	p2 := pos(2, "EURUSD", models.SideBuy, time.Second, 1.1001, 1.1001)

	g1 := tr.Reconcile([][]models.Position{cluster(p1, p2)})
	id := g1[0].ID

	// тикет 2 закрылся — группа живёт под тем же id
	g2 := tr.Reconcile([][]models.Position{cluster(p1)})
	if len(g2) != 1 || g2[0].ID != id {
		t.Fatalf("group must keep id after partial close")
	}
	if g2[0].Size() != 1 {
		t.Fatalf("group size must shrink to 1, got %d", g2[0].Size())
	}
}

func TestTrackerRetiresClosedGroups(t *testing.T) {
	tr := NewTracker(111)
	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1000)

	tr.Reconcile([][]models.Position{cluster(p1)})
	groups := tr.Reconcile(nil)
	if len(groups) != 0 {
		t.Fatalf("all positions closed, want 0 groups, got %d", len(groups))
	}
	if len(tr.Snapshot()) != 0 {
		t.Fatalf("snapshot must be empty after retirement")
	}
}

func TestTrackerNewMemberResetsSecured(t *testing.T) {
	tr := NewTracker(111)
	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1000)
	p2 := pos(2, "EURUSD", models.SideBuy, time.Second, 1.1001, 1.1001)

	g := tr.Reconcile([][]models.Position{cluster(p1)})
	tr.MarkMemberSecured(g[0].ID, 1)

	g = tr.Reconcile([][]models.Position{cluster(p1)})
	if g[0].State != models.GroupSecured {
		t.Fatalf("single secured member must mean secured group")
	}

	// доливка: новый участник возвращает группу в работу
	g = tr.Reconcile([][]models.Position{cluster(p1, p2)})
	if g[0].State != models.GroupUnsecured {
		t.Fatalf("new member must reset group to unsecured")
	}
	if !tr.IsMemberSecured(g[0].ID, 1) {
		t.Fatalf("old member's secured mark must survive")
	}
}

func TestTrackerMergeOnBridge(t *testing.T) {
	tr := NewTracker(111)
	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1000)
	p2 := pos(2, "EURUSD", models.SideBuy, 300*time.Second, 1.1001, 1.1001)

	// два отдельных сигнала
	g := tr.Reconcile([][]models.Position{cluster(p1), cluster(p2)})
	if len(g) != 2 {
		t.Fatalf("want 2 groups before bridge, got %d", len(g))
	}
	oldest := g[0].ID
	tr.MarkMemberSecured(g[1].ID, 2)

	// мостовая позиция слила кластеры — идентичность самой старой группы
	bridge := pos(3, "EURUSD", models.SideBuy, 150*time.Second, 1.1000, 1.1000)
	g = tr.Reconcile([][]models.Position{cluster(p1, bridge, p2)})
	if len(g) != 1 {
		t.Fatalf("bridge must merge groups, got %d", len(g))
	}
	if g[0].ID != oldest {
		t.Fatalf("merge must keep oldest id %s, got %s", oldest, g[0].ID)
	}
	if !tr.IsMemberSecured(g[0].ID, 2) {
		t.Fatalf("secured marks must union on merge")
	}
}

func TestTrackerMergeTieBreaksOnOpenTime(t *testing.T) {
	early := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1000)
	late := pos(2, "EURUSD", models.SideBuy, 300*time.Second, 1.1001, 1.1001)
	bridge := pos(3, "EURUSD", models.SideBuy, 150*time.Second, 1.1000, 1.1000)

	// обе группы заведены одним циклом (общий CreatedAt) — старшинство при
	// слиянии обязано решаться ранним входом, а не порядком кластеров и не uuid
	for _, clusters := range [][][]models.Position{
		{cluster(early), cluster(late)},
		{cluster(late), cluster(early)},
	} {
		tr := NewTracker(111)
		g := tr.Reconcile(clusters)
		if len(g) != 2 {
			t.Fatalf("want 2 groups before bridge, got %d", len(g))
		}
		// Reconcile сортирует по OpenTime: g[0] — группа раннего входа
		earlyID := g[0].ID

		g = tr.Reconcile([][]models.Position{cluster(early, bridge, late)})
		if len(g) != 1 {
			t.Fatalf("bridge must merge groups, got %d", len(g))
		}
		if g[0].ID != earlyID {
			t.Fatalf("merge must keep the group with the earliest entry, want %s got %s", earlyID, g[0].ID)
		}
	}
}

func TestTrackerPendingDecisionOncePerCycle(t *testing.T) {
	tr := NewTracker(111)
	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1000)

	tr.Reconcile([][]models.Position{cluster(p1)})
	if n := len(tr.PendingDecision()); n != 1 {
		t.Fatalf("first call: want 1 pending, got %d", n)
	}
	if n := len(tr.PendingDecision()); n != 0 {
		t.Fatalf("same cycle: want 0 pending, got %d", n)
	}

	tr.Reconcile([][]models.Position{cluster(p1)})
	if n := len(tr.PendingDecision()); n != 1 {
		t.Fatalf("next cycle: want 1 pending again, got %d", n)
	}
}

func TestTrackerMarkTriggeredFiresOnce(t *testing.T) {
	tr := NewTracker(111)
	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1000)

	g := tr.Reconcile([][]models.Position{cluster(p1)})
	if !tr.MarkTriggered(g[0].ID) {
		t.Fatalf("first trigger must return true")
	}
	if tr.MarkTriggered(g[0].ID) {
		t.Fatalf("second trigger must return false")
	}
}

func TestTrackerHistory(t *testing.T) {
	tr := NewTracker(111)
	p1 := pos(1, "EURUSD", models.SideBuy, 0, 1.1000, 1.1000)

	g := tr.Reconcile([][]models.Position{cluster(p1)})
	tr.RecordEvent(g[0].ID, models.SecuringEvent{GroupID: g[0].ID, Outcome: models.OutcomePartial})
	tr.RecordEvent(g[0].ID, models.SecuringEvent{GroupID: g[0].ID, Outcome: models.OutcomeSuccess})

	h := tr.History(g[0].ID)
	if len(h) != 2 {
		t.Fatalf("want 2 events in history, got %d", len(h))
	}
	if h[0].Outcome != models.OutcomePartial || h[1].Outcome != models.OutcomeSuccess {
		t.Fatalf("history order broken: %v %v", h[0].Outcome, h[1].Outcome)
	}
}
