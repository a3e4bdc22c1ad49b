package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"pip_secure/internal/models"
	"pip_secure/internal/modules/events"
	terminal "pip_secure/internal/modules/terminal/service"
	"pip_secure/internal/notify"
	"pip_secure/internal/runner/accounts"
	"pip_secure/pkg/logger"
)

// TerminalFactory собирает клиента моста под конкретный аккаунт. Подменяется
// в тестах фейком.
type TerminalFactory func(settings models.AccountSettings) accounts.TerminalAPI

func defaultTerminalFactory(settings models.AccountSettings) accounts.TerminalAPI {
	return terminal.NewClient(settings.BridgeURL, settings.Token, settings.Login)
}

// Deps — общие зависимости всех оркестраторов. Events/Beat/Counters
// опциональны: cmd/single запускает менеджера без журнала и health.
type Deps struct {
	Events      chan<- models.SecuringEvent
	Beat        accounts.Heartbeat
	Counters    *events.Counters
	NewTerminal TerminalFactory
}

// Manager держит по оркестратору на аккаунт. Падение одного аккаунта
// (включая панику в его горутине) не трогает остальных.
type Manager struct {
	deps Deps

	mu            sync.Mutex
	orchestrators map[int64]*Orchestrator
}

func NewManager(deps Deps) *Manager {
	if deps.NewTerminal == nil {
		deps.NewTerminal = defaultTerminalFactory
	}
	return &Manager{
		deps:          deps,
		orchestrators: make(map[int64]*Orchestrator),
	}
}

// RunForAccount стартует оркестратор для аккаунта (если ещё не запущен).
// Ошибка конфигурации возвращается сразу, до запуска горутины.
func (m *Manager) RunForAccount(ctx context.Context, settings models.AccountSettings, n notify.Notifier) error {
	session, err := accounts.NewSession(settings, m.deps.NewTerminal(settings), n)
	if err != nil {
		return fmt.Errorf("RunForAccount %d: %w", settings.Login, err)
	}
	session.Events = m.deps.Events
	session.Counters = m.deps.Counters
	session.Beat = m.deps.Beat

	m.mu.Lock()
	if _, running := m.orchestrators[settings.Login]; running {
		m.mu.Unlock()
		return fmt.Errorf("RunForAccount: orchestrator already running for account %d", settings.Login)
	}
	o := NewOrchestrator(session)
	m.orchestrators[settings.Login] = o
	m.mu.Unlock()

	go func() {
		defer func() {
			// паника одного аккаунта не валит процесс: снимаем оркестратор
			// и шумим во все стороны, остальные аккаунты живут
			if r := recover(); r != nil {
				logger.Error("[MANAGER] account=%d orchestrator panic: %v\n%s",
					settings.Login, r, debug.Stack())
				n.Sendf("🚨 [%d] %s: мониторинг упал с паникой, счёт без присмотра",
					settings.Login, settings.Name)
			}
			m.mu.Lock()
			delete(m.orchestrators, settings.Login)
			m.mu.Unlock()
		}()

		o.Start(ctx)
	}()

	return nil
}

// StopForAccount гасит оркестратор аккаунта и ждёт завершения его цикла.
func (m *Manager) StopForAccount(login int64) error {
	m.mu.Lock()
	o, ok := m.orchestrators[login]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("StopForAccount: orchestrator not running for account %d", login)
	}

	o.Stop()
	return nil
}

// StopAll параллельно гасит все оркестраторы, дожидание ограничено ctx.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	running := make([]*Orchestrator, 0, len(m.orchestrators))
	for _, o := range m.orchestrators {
		running = append(running, o)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, o := range running {
		wg.Add(1)
		go func(o *Orchestrator) {
			defer wg.Done()
			if err := o.StopWait(ctx); err != nil {
				logger.Warn("[MANAGER] account=%d stop: %v", o.session.Settings.Login, err)
			}
		}(o)
	}
	wg.Wait()
}

// AccountStatus — срез состояния аккаунта для /status и health.
type AccountStatus struct {
	Login  int64
	Name   string
	State  ConnState
	Groups []models.PositionGroup
}

func (m *Manager) StatusForAccount(login int64) (AccountStatus, bool) {
	m.mu.Lock()
	o, ok := m.orchestrators[login]
	m.mu.Unlock()
	if !ok {
		return AccountStatus{}, false
	}
	return AccountStatus{
		Login:  login,
		Name:   o.session.Settings.Name,
		State:  o.State(),
		Groups: o.session.Tracker.Snapshot(),
	}, true
}

// Statuses — по всем запущенным аккаунтам, отсортировано по логину.
func (m *Manager) Statuses() []AccountStatus {
	m.mu.Lock()
	logins := make([]int64, 0, len(m.orchestrators))
	for login := range m.orchestrators {
		logins = append(logins, login)
	}
	m.mu.Unlock()

	sort.Slice(logins, func(i, j int) bool { return logins[i] < logins[j] })

	out := make([]AccountStatus, 0, len(logins))
	for _, login := range logins {
		if st, ok := m.StatusForAccount(login); ok {
			out = append(out, st)
		}
	}
	return out
}

// WaitStates блокирует, пока все аккаунты не дойдут до want или не истечёт ctx.
// Нужен только тестам и cmd/single для аккуратного старта.
func (m *Manager) WaitStates(ctx context.Context, want ConnState) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		all := true
		for _, st := range m.Statuses() {
			if st.State != want {
				all = false
				break
			}
		}
		if all {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
