package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pip_secure/internal/models"
	"pip_secure/internal/modules/events"
	"pip_secure/internal/notify"
	"pip_secure/pkg/logger"
)

// TerminalAPI — контракт моста терминала, потребляемый сессией. Боевой
// клиент живёт в internal/modules/terminal/service, тесты подставляют фейк.
type TerminalAPI interface {
	Ping(ctx context.Context) error
	OpenPositions(ctx context.Context) ([]models.Position, error)
	PendingOrders(ctx context.Context) ([]models.PendingOrder, error)
	ModifyStopLoss(ctx context.Context, ticket int64, sl float64, tp float64) error
	DeleteOrder(ctx context.Context, ticket int64) error
	SymbolInfo(ctx context.Context, symbol string) (models.SymbolInfo, error)
	StreamEvents(ctx context.Context) <-chan models.TradeEvent
}

// Heartbeat — приёмник живости для health-эндпоинтов. Может быть nil
// (cmd/single без HTTP).
type Heartbeat interface {
	Register(login int64, name string, poll time.Duration)
	SetAccountState(login int64, state string)
	TouchCycle(login int64, t time.Time)
	AddSecured(login int64, n int)
}

// ErrConfig — невалидные настройки аккаунта. Фатально только на старте этого
// аккаунта: менеджер его пропускает, остальные стартуют.
var ErrConfig = errors.New("invalid account configuration")

// AccountSession владеет всем состоянием одного аккаунта: трекером групп,
// кешем параметров символов и троттлингом нотификаций. Между аккаунтами
// ничего не разделяется.
type AccountSession struct {
	Settings models.AccountSettings
	Terminal TerminalAPI
	Notifier notify.Notifier
	Tracker  *Tracker
	Policy   SecurePolicy

	// опциональные приёмники наблюдаемости
	Events   chan<- models.SecuringEvent
	Counters *events.Counters
	Beat     Heartbeat

	symMu   sync.RWMutex
	symbols map[string]models.SymbolInfo

	sendMu   sync.Mutex
	lastSent map[string]time.Time
}

func NewSession(settings models.AccountSettings, term TerminalAPI, n notify.Notifier) (*AccountSession, error) {
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	policy, err := PolicyFor(settings.Secure)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if n == nil {
		n = notify.NewStdout()
	}

	return &AccountSession{
		Settings: settings,
		Terminal: term,
		Notifier: n,
		Tracker:  NewTracker(settings.Login),
		Policy:   policy,
		symbols:  make(map[string]models.SymbolInfo),
		lastSent: make(map[string]time.Time),
	}, nil
}

// ValidateSettings проверяет пороги аккаунта. Вызывается один раз на старте;
// после него настройки считаются неизменяемыми до конца процесса.
func ValidateSettings(s models.AccountSettings) error {
	switch {
	case s.Login <= 0:
		return fmt.Errorf("%w: login must be positive", ErrConfig)
	case s.BridgeURL == "":
		return fmt.Errorf("%w: bridge_url is empty (login=%d)", ErrConfig, s.Login)
	case s.PollInterval <= 0:
		return fmt.Errorf("%w: poll_interval must be positive (login=%d)", ErrConfig, s.Login)
	case s.Group.MaxTimeDelta <= 0:
		return fmt.Errorf("%w: group.max_time_delta must be positive (login=%d)", ErrConfig, s.Login)
	case s.Group.MaxPriceDelta <= 0:
		return fmt.Errorf("%w: group.max_price_delta must be positive (login=%d)", ErrConfig, s.Login)
	case s.Group.VolumeTolerance < 0 || s.Group.VolumeTolerance >= 1:
		return fmt.Errorf("%w: group.volume_tolerance must be in [0,1) (login=%d)", ErrConfig, s.Login)
	case s.Secure.ActivationPips < 0:
		return fmt.Errorf("%w: secure.activation_pips must not be negative (login=%d)", ErrConfig, s.Login)
	case s.Secure.MaxRetries < 0:
		return fmt.Errorf("%w: secure.max_retries must not be negative (login=%d)", ErrConfig, s.Login)
	}
	for sym, v := range s.Secure.ActivationBySymbol {
		if v < 0 {
			return fmt.Errorf("%w: secure.activation_by_symbol[%s] must not be negative (login=%d)",
				ErrConfig, sym, s.Login)
		}
	}
	if _, err := PolicyFor(s.Secure); err != nil {
		return fmt.Errorf("%w: %v (login=%d)", ErrConfig, err, s.Login)
	}
	return nil
}

// warmSymbols дотягивает параметры новых символов. Digits/point за сессию не
// меняются, поэтому кеш живёт до конца процесса; отказ не валит цикл.
func (s *AccountSession) warmSymbols(ctx context.Context, positions []models.Position) {
	for _, p := range positions {
		s.symMu.RLock()
		_, ok := s.symbols[p.Symbol]
		s.symMu.RUnlock()
		if ok {
			continue
		}

		info, err := s.Terminal.SymbolInfo(ctx, p.Symbol)
		if err != nil {
			s.logThrottled("syminfo:"+p.Symbol, 5*time.Minute,
				"[SESSION] account=%d symbol info %s: %v", s.Settings.Login, p.Symbol, err)
			continue
		}

		s.symMu.Lock()
		s.symbols[p.Symbol] = info
		s.symMu.Unlock()
	}
}

// digitsFor — точность символа из кеша; без кеша берём 5 знаков (консервативный
// эпсилон 1e-5 для идемпотентной проверки).
func (s *AccountSession) digitsFor(symbol string) int {
	s.symMu.RLock()
	defer s.symMu.RUnlock()
	if info, ok := s.symbols[symbol]; ok && info.Digits > 0 {
		return info.Digits
	}
	return 5
}

// CanSend — не чаще раза в interval на ключ, чтобы не заспамить телеграм
// повторяющимися алертами.
func (s *AccountSession) CanSend(key string, interval time.Duration) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if last, ok := s.lastSent[key]; ok && time.Since(last) < interval {
		return false
	}
	s.lastSent[key] = time.Now()
	return true
}

// logThrottled — то же для логов: повторяющиеся ошибки не заливают вывод.
func (s *AccountSession) logThrottled(key string, interval time.Duration, format string, args ...any) {
	if s.CanSend("log:"+key, interval) {
		logger.Error(format, args...)
	}
}

// emit отдаёт событие в журнал, не блокируя цикл: переполненный канал —
// проблема наблюдаемости, не торговли.
func (s *AccountSession) emit(ev models.SecuringEvent) {
	if s.Events == nil {
		return
	}
	select {
	case s.Events <- ev:
	default:
		logger.Warn("[SESSION] account=%d events channel full, dropping event group=%s",
			s.Settings.Login, ev.GroupID)
	}
}
