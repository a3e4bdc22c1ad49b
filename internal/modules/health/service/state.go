package service

import (
	"sync"
	"sync/atomic"
	"time"
)

// AccountBeat — живость одного аккаунта для health-эндпоинтов и вотчдога.
type AccountBeat struct {
	Name         string        `json:"name"`
	PollInterval time.Duration `json:"-"`
	State        string        `json:"state"`
	LastCycle    int64         `json:"last_cycle_unix"` // unix seconds, 0 = цикла ещё не было
	Cycles       int64         `json:"cycles"`
	Secured      int64         `json:"secured"`
}

// State — общий heartbeat-приёмник процесса. Реализует accounts.Heartbeat;
// пишут оркестраторы, читают HTTP-хендлеры и вотчдог.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	mu       sync.Mutex
	accounts map[int64]*AccountBeat
}

func NewState() *State {
	s := &State{
		startedAt: time.Now(),
		accounts:  make(map[int64]*AccountBeat),
	}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

func (s *State) Register(login int64, name string, poll time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[login] = &AccountBeat{Name: name, PollInterval: poll, State: "DISCONNECTED"}
}

func (s *State) SetAccountState(login int64, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.accounts[login]; ok {
		b.State = state
	}
}

func (s *State) TouchCycle(login int64, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.accounts[login]; ok {
		b.LastCycle = t.Unix()
		b.Cycles++
	}
}

func (s *State) AddSecured(login int64, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.accounts[login]; ok {
		b.Secured += int64(n)
	}
}

// Accounts — копия для сериализации в /healthz.
func (s *State) Accounts() map[int64]AccountBeat {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int64]AccountBeat, len(s.accounts))
	for login, b := range s.accounts {
		out[login] = *b
	}
	return out
}
