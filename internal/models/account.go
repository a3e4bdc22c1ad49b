package models

// GroupRules — пороги склейки позиций в группу одного сигнала.
type GroupRules struct {
	MaxTimeDelta  Duration `yaml:"max_time_delta"`  // окно по времени открытия
	MaxPriceDelta float64  `yaml:"max_price_delta"` // окно по цене открытия, в пипсах

	// 0 — выключено; иначе объёмы должны совпадать с точностью до доли,
	// например 0.2 => меньший объём не меньше 80% большего
	VolumeTolerance float64 `yaml:"volume_tolerance"`

	// пусто — выключено; иначе оба комментария должны содержать подстроку
	CommentPattern string `yaml:"comment_pattern"`
}

// SecureRules — когда и как двигаем стопы группы.
type SecureRules struct {
	// activation (порог по движению лучшего участника) | tp_progress (близость к TP1)
	Policy string `yaml:"policy"`

	ActivationPips     float64            `yaml:"activation_pips"`
	ActivationBySymbol map[string]float64 `yaml:"activation_by_symbol"`

	// параметры tp_progress
	TPTriggerPips     float64 `yaml:"tp_trigger_pips"`
	TPTriggerProgress float64 `yaml:"tp_trigger_progress"` // доля пути до TP, 0..1

	MaxRetries   int      `yaml:"max_retries"`
	RetryBackoff Duration `yaml:"retry_backoff"`

	ManagePendingOrders bool `yaml:"manage_pending_orders"` // зачистка отложек по сработавшей группе
	SecureSecondPrice   bool `yaml:"secure_second_price"`   // секьюрить позиции второй цены по входу группы
}

// AccountSettings — один торговый счёт. Неизменяемы на всё время работы процесса.
type AccountSettings struct {
	Login     int64  `yaml:"login"`
	Name      string `yaml:"name"`
	BridgeURL string `yaml:"bridge_url"`
	Token     string `yaml:"-"` // только из env, в yaml не живёт
	Enabled   bool   `yaml:"enabled"`

	PollInterval Duration `yaml:"poll_interval"`

	EventStream bool `yaml:"event_stream"` // ws-пинок вместо чистого поллинга

	Group  GroupRules  `yaml:"group"`
	Secure SecureRules `yaml:"secure"`
}

const (
	PolicyActivation = "activation"
	PolicyTPProgress = "tp_progress"
)
