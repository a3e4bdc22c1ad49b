package service

import (
	"context"
	"fmt"

	"pip_secure/internal/modules/config"
	"pip_secure/internal/modules/events"
	"pip_secure/internal/runner"
	"pip_secure/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram — нотифайер и командный интерфейс оператора в одном чате:
// алерты секьюра уходят сюда же, где отвечают /status и /summary.
type Telegram struct {
	bot    *tgbot.BotAPI
	cfg    *config.Config
	chatID int64

	manager  *runner.Manager
	counters *events.Counters
}

func NewTelegram(cfg *config.Config, manager *runner.Manager, counters *events.Counters) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("NewTelegram: %w", err)
	}

	return &Telegram{
		bot:      b,
		cfg:      cfg,
		chatID:   cfg.Telegram.ChatID,
		manager:  manager,
		counters: counters,
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	m := tgbot.NewMessage(t.chatID, msg)
	m.ParseMode = tgbot.ModeMarkdown
	if _, err := t.bot.Send(m); err != nil {
		logger.Warn("[TG] send: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Start — long-polling команд до отмены контекста.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(upd)
			}
		}
	}()
}

func (t *Telegram) Stop() {
	if t != nil && t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
}
