package service

import (
	"fmt"
	"strings"

	"pip_secure/internal/models"
	"pip_secure/internal/modules/config"
	"pip_secure/internal/modules/events"
	"pip_secure/internal/runner"
)

func formatStatuses(statuses []runner.AccountStatus) string {
	if len(statuses) == 0 {
		return "📭 Ни один счёт не запущен"
	}

	var b strings.Builder
	b.WriteString("*📊 Счета*\n")
	for _, st := range statuses {
		fmt.Fprintf(&b, "\n*%d* %s — `%s`\n", st.Login, st.Name, st.State)
		if len(st.Groups) == 0 {
			b.WriteString("  групп нет\n")
			continue
		}
		for _, g := range st.Groups {
			fmt.Fprintf(&b, "  %s %s x%d — %s\n",
				g.Symbol, g.Side, g.Size(), groupBadge(g))
		}
	}
	return b.String()
}

func groupBadge(g models.PositionGroup) string {
	if g.State == models.GroupSecured {
		return "🛡 в безубытке"
	}
	if !g.TriggeredAt.IsZero() {
		return "⏳ сработала, секьюрится"
	}
	return "наблюдаем"
}

func formatAccounts(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString("*⚙️ Конфигурация*\n")
	for _, a := range cfg.Accounts {
		state := "off"
		if a.Enabled {
			state = "on"
		}
		fmt.Fprintf(&b, "\n*%d* %s (*%s*)\n  poll: `%s` policy: `%s` activation: `%.1f pips`\n",
			a.Login, a.Name, state, a.PollInterval, a.Secure.Policy, a.Secure.ActivationPips)
	}
	return b.String()
}

func formatSummary(logins []int64, totals map[int64]events.AccountCounters) string {
	if len(logins) == 0 {
		return "📭 Счётчики пусты"
	}

	var b strings.Builder
	b.WriteString("*🧮 Сводка с запуска*\n")
	for _, login := range logins {
		c := totals[login]
		fmt.Fprintf(&b, "\n*%d*\n  циклы: `%d` группы: `%d`\n  secured: `%d` partial: `%d` failed: `%d` retries: `%d`\n",
			login, c.Cycles, c.GroupsSeen, c.Secured, c.Partial, c.Failed, c.Retries)
	}
	return b.String()
}
