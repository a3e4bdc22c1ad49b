package accounts

import (
	"sort"
	"sync"
	"time"

	"pip_secure/internal/models"
	"pip_secure/pkg/logger"

	"github.com/google/uuid"
)

// Tracker — единственное изменяемое состояние движка. Живёт на один аккаунт,
// только в памяти процесса: после рестарта группы пересобираются из живого
// состояния брокера. Обрыв соединения состояние не трогает.
type Tracker struct {
	mu sync.Mutex

	login   int64
	groups  map[string]*models.PositionGroup
	history map[string][]models.SecuringEvent

	// защита "не больше одного решения по группе за цикл"
	cycle   uint64
	decided map[string]uint64
}

func NewTracker(login int64) *Tracker {
	return &Tracker{
		login:   login,
		groups:  make(map[string]*models.PositionGroup),
		history: make(map[string][]models.SecuringEvent),
		decided: make(map[string]uint64),
	}
}

// Reconcile сверяет пересчитанные с нуля кластеры с группами прошлого цикла.
// Кластер наследует идентичность группы, с которой пересекается хотя бы одним
// тикетом; новые участники приходят незасекьюренными. Кластер, перекрывший
// несколько групп (мостовая позиция), склеивает их: побеждает самая старая.
// Группы, все позиции которых закрылись, выбывают.
func (t *Tracker) Reconcile(clusters [][]models.Position) []*models.PositionGroup {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cycle++
	now := time.Now()
	next := make(map[string]*models.PositionGroup, len(clusters))

	for _, cluster := range clusters {
		tickets := make([]int64, 0, len(cluster))
		inCluster := make(map[int64]bool, len(cluster))
		for _, p := range cluster {
			tickets = append(tickets, p.Ticket)
			inCluster[p.Ticket] = true
		}

		matches := t.overlapping(inCluster)

		var g *models.PositionGroup
		switch len(matches) {
		case 0:
			g = &models.PositionGroup{
				ID:             uuid.NewString(),
				SecuredTickets: make(map[int64]bool),
				CreatedAt:      now,
			}
		case 1:
			g = matches[0]
		default:
			// merge-on-overlap: идентичность самой старой группы, отметки
			// секьюра объединяются. Группы, заведённые одним Reconcile,
			// делят CreatedAt — тогда старшинство решает время открытия
			// самого раннего участника, а не случайный uuid
			sort.Slice(matches, func(i, j int) bool {
				if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
					return matches[i].CreatedAt.Before(matches[j].CreatedAt)
				}
				if !matches[i].OpenTime.Equal(matches[j].OpenTime) {
					return matches[i].OpenTime.Before(matches[j].OpenTime)
				}
				return matches[i].ID < matches[j].ID
			})
			g = matches[0]
			for _, other := range matches[1:] {
				for tk := range other.SecuredTickets {
					g.SecuredTickets[tk] = true
				}
				if !other.TriggeredAt.IsZero() &&
					(g.TriggeredAt.IsZero() || other.TriggeredAt.Before(g.TriggeredAt)) {
					g.TriggeredAt = other.TriggeredAt
				}
				t.retire(other.ID)
				logger.Info("[TRACKER] account=%d group %s merged into %s (bridge position)",
					t.login, other.ID, g.ID)
			}
		}

		rep := earliest(cluster)
		g.Symbol = rep.Symbol
		g.Side = rep.Side
		g.OpenTime = rep.OpenTime
		g.OpenPrice = rep.OpenPrice
		g.Tickets = tickets

		// отметки закрывшихся участников выбрасываем
		for tk := range g.SecuredTickets {
			if !inCluster[tk] {
				delete(g.SecuredTickets, tk)
			}
		}

		// засекьюрена только группа, у которой подтверждён каждый текущий
		// участник: новый участник возвращает группу в Unsecured
		if g.AllSecured() {
			g.State = models.GroupSecured
		} else {
			g.State = models.GroupUnsecured
		}

		next[g.ID] = g
	}

	for id := range t.groups {
		if _, ok := next[id]; !ok {
			logger.Info("[TRACKER] account=%d group %s retired (all positions closed)", t.login, id)
			t.retire(id)
		}
	}
	t.groups = next

	return t.sortedLocked()
}

// overlapping — группы прошлого цикла, пересекающиеся с кластером по тикетам.
func (t *Tracker) overlapping(tickets map[int64]bool) []*models.PositionGroup {
	var out []*models.PositionGroup
	for _, g := range t.groups {
		for _, tk := range g.Tickets {
			if tickets[tk] {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

func (t *Tracker) retire(id string) {
	delete(t.groups, id)
	delete(t.history, id)
	delete(t.decided, id)
}

// PendingDecision — незасекьюренные группы, ещё не рассматривавшиеся в этом
// цикле. Цикл однопоточный, но защита держит at-most-once явно и проверяемо.
func (t *Tracker) PendingDecision() []*models.PositionGroup {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []*models.PositionGroup
	for _, g := range t.sortedLocked() {
		if g.State != models.GroupUnsecured {
			continue
		}
		if t.decided[g.ID] == t.cycle {
			continue
		}
		t.decided[g.ID] = t.cycle
		out = append(out, g)
	}
	return out
}

// MarkTriggered фиксирует первое срабатывание условия. true — именно первое:
// правила отложек (Rule 1/2) выполняются только на этом переходе.
func (t *Tracker) MarkTriggered(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, ok := t.groups[id]
	if !ok {
		return false
	}
	if !g.TriggeredAt.IsZero() {
		return false
	}
	g.TriggeredAt = time.Now()
	return true
}

func (t *Tracker) MarkMemberSecured(id string, ticket int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, ok := t.groups[id]
	if !ok {
		return
	}
	if g.SecuredTickets == nil {
		g.SecuredTickets = make(map[int64]bool)
	}
	g.SecuredTickets[ticket] = true
	if g.AllSecured() {
		g.State = models.GroupSecured
	}
}

func (t *Tracker) IsMemberSecured(id string, ticket int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, ok := t.groups[id]
	return ok && g.IsSecured(ticket)
}

// RecordEvent дописывает историю секьюра группы.
func (t *Tracker) RecordEvent(id string, ev models.SecuringEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.groups[id]; !ok {
		return
	}
	t.history[id] = append(t.history[id], ev)
}

func (t *Tracker) History(id string) []models.SecuringEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	evs := t.history[id]
	out := make([]models.SecuringEvent, len(evs))
	copy(out, evs)
	return out
}

// Snapshot — копии групп для /status и телеграма.
func (t *Tracker) Snapshot() []models.PositionGroup {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.PositionGroup, 0, len(t.groups))
	for _, g := range t.sortedLocked() {
		cp := *g
		cp.Tickets = append([]int64(nil), g.Tickets...)
		cp.SecuredTickets = make(map[int64]bool, len(g.SecuredTickets))
		for tk, v := range g.SecuredTickets {
			cp.SecuredTickets[tk] = v
		}
		out = append(out, cp)
	}
	return out
}

func (t *Tracker) sortedLocked() []*models.PositionGroup {
	out := make([]*models.PositionGroup, 0, len(t.groups))
	for _, g := range t.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenTime.Equal(out[j].OpenTime) {
			return out[i].OpenTime.Before(out[j].OpenTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
