package service

import (
	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleUpdate обслуживает команды оператора. Чужие чаты игнорируются:
// бот одного хозяина, авторизация по chat_id.
func (t *Telegram) handleUpdate(upd tgbot.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID != t.chatID || !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "status":
		t.Send(formatStatuses(t.manager.Statuses()))
	case "accounts":
		t.Send(formatAccounts(t.cfg))
	case "summary":
		logins, totals := t.counters.Snapshot()
		t.Send(formatSummary(logins, totals))
	case "help", "start":
		t.Send("Команды:\n" +
			"/status — состояние счетов и групп\n" +
			"/accounts — сконфигурированные счета\n" +
			"/summary — счётчики за время работы")
	}
}
