package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	terminal "pip_secure/internal/modules/terminal/service"
	"pip_secure/internal/runner/accounts"
	"pip_secure/pkg/logger"
)

type ConnState string

const (
	StateDisconnected ConnState = "DISCONNECTED"
	StateConnecting   ConnState = "CONNECTING"
	StatePolling      ConnState = "POLLING"
)

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
	minPoll      = 250 * time.Millisecond
)

// Orchestrator гоняет циклы одной сессии: коннект к мосту, поллинг по тикеру
// (плюс пинок из ws-стрима, если включён), реконнект с бэкоффом навсегда.
// Циклы строго последовательны — затянувшийся цикл просто сдвигает следующий.
type Orchestrator struct {
	session *accounts.AccountSession

	mu     sync.Mutex
	state  ConnState
	cancel context.CancelFunc
	done   chan struct{}

	// ws-события только будят поллер раньше тикера; сами данные всё равно
	// берутся снапшотом
	wake chan struct{}
}

func NewOrchestrator(session *accounts.AccountSession) *Orchestrator {
	return &Orchestrator{
		session: session,
		state:   StateDisconnected,
		done:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
	}
}

func (o *Orchestrator) State() ConnState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s ConnState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	if o.session.Beat != nil {
		o.session.Beat.SetAccountState(o.session.Settings.Login, string(s))
	}
}

// Start блокирует до отмены контекста или Stop. Ошибок не возвращает:
// недоступный терминал — рабочий режим, а не фатальный.
func (o *Orchestrator) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer cancel()
	defer close(o.done)

	s := o.session
	login := s.Settings.Login

	poll := s.Settings.PollInterval.Std()
	if poll < minPoll {
		logger.Warn("[ORCH] account=%d poll interval %s below minimum, clamped to %s",
			login, poll, minPoll)
		poll = minPoll
	}

	if s.Beat != nil {
		s.Beat.Register(login, s.Settings.Name, poll)
	}
	if s.Settings.EventStream {
		go o.watchEvents(ctx)
	}

	for {
		if ctx.Err() != nil {
			o.setState(StateDisconnected)
			return
		}

		if !o.connect(ctx) {
			return
		}

		o.setState(StatePolling)
		logger.Info("[ORCH] account=%d connected, polling every %s", login, poll)
		s.Notifier.Sendf("🔌 [%d] %s: терминал на связи, мониторинг запущен", login, s.Settings.Name)

		if disconnected := o.pollLoop(ctx, poll); !disconnected {
			o.setState(StateDisconnected)
			return
		}

		o.setState(StateDisconnected)
		logger.Warn("[ORCH] account=%d connection lost, reconnecting", login)
	}
}

// connect пингует мост с бэкоффом 1s..30s до успеха. false — контекст отменён.
func (o *Orchestrator) connect(ctx context.Context) bool {
	s := o.session
	o.setState(StateConnecting)

	backoff := reconnectMin
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := s.Terminal.Ping(pingCtx)
		cancel()
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		logger.Warn("[ORCH] account=%d ping failed, retry in %s: %v", s.Settings.Login, backoff, err)
		if s.CanSend("down", 10*time.Minute) {
			s.Notifier.Sendf("📴 [%d] %s: терминал недоступен, переподключаюсь", s.Settings.Login, s.Settings.Name)
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

// pollLoop крутит циклы до обрыва связи (true) или отмены контекста (false).
func (o *Orchestrator) pollLoop(ctx context.Context, poll time.Duration) bool {
	s := o.session
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if err := s.RunCycle(ctx); err != nil {
			if errors.Is(err, terminal.ErrConnection) {
				return true
			}
			// не connection-ошибка цикла — логируем и живём дальше
			logger.Error("[ORCH] account=%d cycle: %v", s.Settings.Login, err)
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		case <-o.wake:
		}
	}
}

// watchEvents слушает ws-стрим моста и будит поллер на каждое торговое событие.
func (o *Orchestrator) watchEvents(ctx context.Context) {
	for ev := range o.session.Terminal.StreamEvents(ctx) {
		logger.Info("[ORCH] account=%d ws event %s ticket=%d %s",
			o.session.Settings.Login, ev.Event, ev.Ticket, ev.Symbol)
		select {
		case o.wake <- struct{}{}:
		default:
		}
	}
}

// Stop гасит оркестратор и ждёт завершения текущего цикла.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-o.done
}

// StopWait — Stop с дедлайном на дожидание.
func (o *Orchestrator) StopWait(ctx context.Context) error {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
