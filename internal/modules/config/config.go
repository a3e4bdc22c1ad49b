package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"pip_secure/internal/models"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	healthAddrENV     = "HEALTH_ADDR"
	pollIntervalENV   = "PIPSECURE_POLL_INTERVAL"
	journalPathENV    = "PIPSECURE_JOURNAL"
)

// Config — весь процесс целиком: сервисные ручки, дефолты и список счетов.
// Токены мостов в yaml не живут и дотягиваются из env (BRIDGE_TOKEN_<LOGIN>).
type Config struct {
	ServiceName string `yaml:"service_name"`
	LogLevel    string `yaml:"log_level"`

	Health struct {
		Addr string `yaml:"addr"`
	} `yaml:"health"`

	Tracing struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Disabled bool   `yaml:"disabled"`
	} `yaml:"tracing"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Events struct {
		JournalPath  string          `yaml:"journal_path"`
		SummaryEvery models.Duration `yaml:"summary_every"`
	} `yaml:"events"`

	// Defaults наследуются каждым счётом, у которого поле не задано явно.
	Defaults struct {
		PollInterval models.Duration    `yaml:"poll_interval"`
		EventStream  bool               `yaml:"event_stream"`
		Group        models.GroupRules  `yaml:"group"`
		Secure       models.SecureRules `yaml:"secure"`
	} `yaml:"defaults"`

	Accounts []models.AccountSettings `yaml:"accounts"`
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		return nil, fmt.Errorf("NewConfig open: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	config := Config{
		ServiceName: "pip_secure",
		LogLevel:    getenvDefault("LOG_LEVEL", "info"),
	}
	config.Health.Addr = ":8080"
	config.Defaults.PollInterval = models.Duration(durationFromEnv(pollIntervalENV, "5s"))
	config.Defaults.Group.MaxTimeDelta = models.Duration(90 * time.Second)
	config.Defaults.Group.MaxPriceDelta = 20
	config.Defaults.Secure.Policy = models.PolicyActivation
	config.Defaults.Secure.ActivationPips = 20
	config.Defaults.Secure.MaxRetries = 3
	config.Defaults.Secure.RetryBackoff = models.Duration(500 * time.Millisecond)
	config.Events.SummaryEvery = models.Duration(5 * time.Minute)

	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("NewConfig decode: %w", err)
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if chat := os.Getenv(chatTelegramENV); chat != "" {
		if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
			config.Telegram.ChatID = id
		}
	}
	if addr := os.Getenv(healthAddrENV); addr != "" {
		config.Health.Addr = addr
	}
	if path := os.Getenv(journalPathENV); path != "" {
		config.Events.JournalPath = path
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyDefaults дозаполняет счета из Defaults и дотягивает токены мостов
// из env. Нулевое поле счёта значит "как у всех".
func (c *Config) ApplyDefaults() {
	for i := range c.Accounts {
		a := &c.Accounts[i]

		if a.PollInterval == 0 {
			a.PollInterval = c.Defaults.PollInterval
		}
		if !a.EventStream {
			a.EventStream = c.Defaults.EventStream
		}

		if a.Group.MaxTimeDelta == 0 {
			a.Group.MaxTimeDelta = c.Defaults.Group.MaxTimeDelta
		}
		if a.Group.MaxPriceDelta == 0 {
			a.Group.MaxPriceDelta = c.Defaults.Group.MaxPriceDelta
		}
		if a.Group.VolumeTolerance == 0 {
			a.Group.VolumeTolerance = c.Defaults.Group.VolumeTolerance
		}
		if a.Group.CommentPattern == "" {
			a.Group.CommentPattern = c.Defaults.Group.CommentPattern
		}

		if a.Secure.Policy == "" {
			a.Secure.Policy = c.Defaults.Secure.Policy
		}
		if a.Secure.ActivationPips == 0 {
			a.Secure.ActivationPips = c.Defaults.Secure.ActivationPips
		}
		if a.Secure.ActivationBySymbol == nil {
			a.Secure.ActivationBySymbol = c.Defaults.Secure.ActivationBySymbol
		}
		if a.Secure.TPTriggerPips == 0 {
			a.Secure.TPTriggerPips = c.Defaults.Secure.TPTriggerPips
		}
		if a.Secure.TPTriggerProgress == 0 {
			a.Secure.TPTriggerProgress = c.Defaults.Secure.TPTriggerProgress
		}
		if a.Secure.MaxRetries == 0 {
			a.Secure.MaxRetries = c.Defaults.Secure.MaxRetries
		}
		if a.Secure.RetryBackoff == 0 {
			a.Secure.RetryBackoff = c.Defaults.Secure.RetryBackoff
		}
		if !a.Secure.ManagePendingOrders {
			a.Secure.ManagePendingOrders = c.Defaults.Secure.ManagePendingOrders
		}
		if !a.Secure.SecureSecondPrice {
			a.Secure.SecureSecondPrice = c.Defaults.Secure.SecureSecondPrice
		}

		if a.Token == "" {
			a.Token = os.Getenv(fmt.Sprintf("BRIDGE_TOKEN_%d", a.Login))
		}
	}
}

// Validate ловит ошибки конфигурации на старте процесса целиком; поаккаунтные
// пороги валидирует сессия при запуске аккаунта.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("config: no accounts defined")
	}
	if c.Events.SummaryEvery < 0 {
		return fmt.Errorf("config: events.summary_every must not be negative")
	}

	seen := make(map[int64]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if seen[a.Login] {
			return fmt.Errorf("config: duplicate account login %d", a.Login)
		}
		seen[a.Login] = true
	}
	return nil
}

// EnabledAccounts — счета, которые реально запускаем.
func (c *Config) EnabledAccounts() []models.AccountSettings {
	out := make([]models.AccountSettings, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
