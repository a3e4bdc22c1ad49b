package models

import "time"

type GroupState string

const (
	GroupUnsecured GroupState = "UNSECURED"
	GroupSecured   GroupState = "SECURED"
)

// PositionGroup — кластер позиций, предположительно открытых одним сигналом.
// Живёт только в памяти трекера; идентичность между циклами держится на
// множестве тикетов (см. Reconcile), id выдаётся один раз при первом появлении.
type PositionGroup struct {
	ID     string
	Symbol string
	Side   Side

	// отсортированные тикеты участников на текущем цикле
	Tickets []int64

	// время/цена самого раннего участника — представительские, в модификациях
	// не участвуют (каждый участник секьюрится по своему входу)
	OpenTime  time.Time
	OpenPrice float64

	State GroupState

	// участники с подтверждённой модификацией стопа
	SecuredTickets map[int64]bool

	CreatedAt   time.Time
	TriggeredAt time.Time // нулевое, пока условие ни разу не срабатывало
}

func (g *PositionGroup) Size() int { return len(g.Tickets) }

func (g *PositionGroup) IsSecured(ticket int64) bool {
	return g.SecuredTickets != nil && g.SecuredTickets[ticket]
}

// AllSecured — все текущие участники подтверждены.
func (g *PositionGroup) AllSecured() bool {
	if len(g.Tickets) == 0 {
		return false
	}
	for _, t := range g.Tickets {
		if !g.IsSecured(t) {
			return false
		}
	}
	return true
}

type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomePartial Outcome = "PARTIAL"
	OutcomeFailure Outcome = "FAILURE"
)

// SecuringEvent — результат одной попытки обезопасить группу. Уходит в журнал,
// каунтеры и нотификации; движком обратно не читается.
type SecuringEvent struct {
	Account int64     `json:"account"`
	GroupID string    `json:"group_id"`
	Symbol  string    `json:"symbol"`
	Time    time.Time `json:"time"`

	Modified []int64 `json:"modified,omitempty"` // стоп реально передвинут
	Skipped  []int64 `json:"skipped,omitempty"`  // стоп уже на месте или лучше
	Failed   []int64 `json:"failed,omitempty"`

	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}
