package events

import (
	"sort"
	"sync"

	"pip_secure/internal/models"
)

// AccountCounters — счётчики активности одного аккаунта.
type AccountCounters struct {
	Cycles     int64
	GroupsSeen int64
	Secured    int64
	Partial    int64
	Failed     int64
	Skipped    int64
	Retries    int64
}

func (a *AccountCounters) add(b AccountCounters) {
	a.Cycles += b.Cycles
	a.GroupsSeen += b.GroupsSeen
	a.Secured += b.Secured
	a.Partial += b.Partial
	a.Failed += b.Failed
	a.Skipped += b.Skipped
	a.Retries += b.Retries
}

// Counters копит тотал за процесс и окно до следующей сводки. Все методы
// переживают nil-приёмник: cmd/single без журнала счётчики не заводит.
type Counters struct {
	mu     sync.Mutex
	total  map[int64]*AccountCounters
	window map[int64]*AccountCounters
}

func NewCounters() *Counters {
	return &Counters{
		total:  make(map[int64]*AccountCounters),
		window: make(map[int64]*AccountCounters),
	}
}

func (c *Counters) bump(login int64, d AccountCounters) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range []map[int64]*AccountCounters{c.total, c.window} {
		acc, ok := m[login]
		if !ok {
			acc = &AccountCounters{}
			m[login] = acc
		}
		acc.add(d)
	}
}

func (c *Counters) CountCycle(login int64)         { c.bump(login, AccountCounters{Cycles: 1}) }
func (c *Counters) CountGroups(login int64, n int) { c.bump(login, AccountCounters{GroupsSeen: int64(n)}) }
func (c *Counters) CountRetry(login int64)         { c.bump(login, AccountCounters{Retries: 1}) }

// Apply раскладывает завершённое событие секьюра по счётчикам.
func (c *Counters) Apply(ev models.SecuringEvent) {
	d := AccountCounters{Skipped: int64(len(ev.Skipped))}
	switch ev.Outcome {
	case models.OutcomeSuccess:
		d.Secured = int64(len(ev.Modified))
	case models.OutcomePartial:
		d.Secured = int64(len(ev.Modified))
		d.Partial = 1
	case models.OutcomeFailure:
		d.Failed = 1
	}
	c.bump(ev.Account, d)
}

// Snapshot — тотал за процесс, ключи отсортированы для стабильного вывода.
func (c *Counters) Snapshot() ([]int64, map[int64]AccountCounters) {
	if c == nil {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return copyCounters(c.total)
}

// WindowAndReset отдаёт окно с прошлой сводки и обнуляет его.
func (c *Counters) WindowAndReset() ([]int64, map[int64]AccountCounters) {
	if c == nil {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	logins, out := copyCounters(c.window)
	c.window = make(map[int64]*AccountCounters)
	return logins, out
}

func copyCounters(m map[int64]*AccountCounters) ([]int64, map[int64]AccountCounters) {
	logins := make([]int64, 0, len(m))
	out := make(map[int64]AccountCounters, len(m))
	for login, acc := range m {
		logins = append(logins, login)
		out[login] = *acc
	}
	sort.Slice(logins, func(i, j int) bool { return logins[i] < logins[j] })
	return logins, out
}
