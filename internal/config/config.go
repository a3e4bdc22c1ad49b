package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"pip_secure/internal/models"
)

// Config — плоская env-конфигурация для cmd/single: один счёт, без yaml.
type Config struct {
	// Счёт / мост
	Login     int64  // .env: MT_LOGIN
	Name      string // .env: MT_NAME
	BridgeURL string // .env: BRIDGE_URL
	Token     string // .env: BRIDGE_TOKEN

	PollInterval time.Duration // .env: POLL_INTERVAL (5s)
	EventStream  bool          // .env: EVENT_STREAM

	// Группировка
	MaxTimeDelta    time.Duration // .env: GROUP_MAX_TIME_DELTA (90s)
	MaxPriceDelta   float64       // .env: GROUP_MAX_PRICE_DELTA (20 pips)
	VolumeTolerance float64       // .env: GROUP_VOLUME_TOLERANCE (0 = off)
	CommentPattern  string        // .env: GROUP_COMMENT_PATTERN

	// Секьюр
	Policy            string        // .env: SECURE_POLICY (activation|tp_progress)
	ActivationPips    float64       // .env: SECURE_ACTIVATION_PIPS (20)
	TPTriggerPips     float64       // .env: SECURE_TP_TRIGGER_PIPS
	TPTriggerProgress float64       // .env: SECURE_TP_TRIGGER_PROGRESS
	MaxRetries        int           // .env: SECURE_MAX_RETRIES (3)
	RetryBackoff      time.Duration // .env: SECURE_RETRY_BACKOFF (500ms)

	ManagePendingOrders bool // .env: MANAGE_PENDING_ORDERS
	SecureSecondPrice   bool // .env: SECURE_SECOND_PRICE

	// Telegram
	TelegramBotToken string // .env: TELEGRAM_BOT_TOKEN
	TelegramChatID   int64  // .env: TELEGRAM_CHAT_ID

	LogLevel string // .env: LOG_LEVEL
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{
		Name:              getenvDefault("MT_NAME", "single"),
		BridgeURL:         os.Getenv("BRIDGE_URL"),
		Token:             os.Getenv("BRIDGE_TOKEN"),
		PollInterval:      durationFromEnv("POLL_INTERVAL", "5s"),
		EventStream:       boolFromEnv("EVENT_STREAM", false),
		MaxTimeDelta:      durationFromEnv("GROUP_MAX_TIME_DELTA", "90s"),
		MaxPriceDelta:     floatFromEnv("GROUP_MAX_PRICE_DELTA", 20),
		VolumeTolerance:   floatFromEnv("GROUP_VOLUME_TOLERANCE", 0),
		CommentPattern:    os.Getenv("GROUP_COMMENT_PATTERN"),
		Policy:            getenvDefault("SECURE_POLICY", models.PolicyActivation),
		ActivationPips:    floatFromEnv("SECURE_ACTIVATION_PIPS", 20),
		TPTriggerPips:     floatFromEnv("SECURE_TP_TRIGGER_PIPS", 0),
		TPTriggerProgress: floatFromEnv("SECURE_TP_TRIGGER_PROGRESS", 0),
		MaxRetries:        intFromEnv("SECURE_MAX_RETRIES", 3),
		RetryBackoff:      durationFromEnv("SECURE_RETRY_BACKOFF", "500ms"),

		ManagePendingOrders: boolFromEnv("MANAGE_PENDING_ORDERS", false),
		SecureSecondPrice:   boolFromEnv("SECURE_SECOND_PRICE", false),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		LogLevel:         getenvDefault("LOG_LEVEL", "info"),
	}
	if v := os.Getenv("MT_LOGIN"); v != "" {
		if login, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Login = login
		}
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = id
		}
	}
	if cfg.Login == 0 {
		return nil, fmt.Errorf("MT_LOGIN is required")
	}
	if cfg.BridgeURL == "" {
		return nil, fmt.Errorf("BRIDGE_URL is required")
	}
	return cfg, nil
}

// AccountSettings конвертит плоскую конфигурацию в настройки счёта движка.
func (c *Config) AccountSettings() models.AccountSettings {
	return models.AccountSettings{
		Login:        c.Login,
		Name:         c.Name,
		BridgeURL:    c.BridgeURL,
		Token:        c.Token,
		Enabled:      true,
		PollInterval: models.Duration(c.PollInterval),
		EventStream:  c.EventStream,
		Group: models.GroupRules{
			MaxTimeDelta:    models.Duration(c.MaxTimeDelta),
			MaxPriceDelta:   c.MaxPriceDelta,
			VolumeTolerance: c.VolumeTolerance,
			CommentPattern:  c.CommentPattern,
		},
		Secure: models.SecureRules{
			Policy:              c.Policy,
			ActivationPips:      c.ActivationPips,
			TPTriggerPips:       c.TPTriggerPips,
			TPTriggerProgress:   c.TPTriggerProgress,
			MaxRetries:          c.MaxRetries,
			RetryBackoff:        models.Duration(c.RetryBackoff),
			ManagePendingOrders: c.ManagePendingOrders,
			SecureSecondPrice:   c.SecureSecondPrice,
		},
	}
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
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
