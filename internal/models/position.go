package models

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SideFromType маппит числовой тип позиции терминала (0=buy, 1=sell).
func SideFromType(t int) Side {
	if t == 1 {
		return SideSell
	}
	return SideBuy
}

// Position — открытая позиция, как её отдаёт терминал на момент снапшота.
// Движок её не мутирует: все изменения уходят запросом modify и видны
// только на следующем цикле.
type Position struct {
	Ticket       int64
	Symbol       string
	Side         Side
	OpenTime     time.Time
	OpenPrice    float64
	Volume       float64
	SL           float64 // 0 = стоп не выставлен
	TP           float64 // 0 = тейк не выставлен
	PriceCurrent float64
	Profit       float64
	Comment      string
	Magic        int64
}

// HasSL: у терминала "нет стопа" кодируется нулём.
func (p Position) HasSL() bool { return p.SL > 0 }

// FavorablePips — движение от входа в сторону профита, в пипсах.
// Для buy это current-open, для sell open-current.
func (p Position) FavorablePips(pip float64) float64 {
	if pip <= 0 {
		return 0
	}
	if p.Side == SideSell {
		return (p.OpenPrice - p.PriceCurrent) / pip
	}
	return (p.PriceCurrent - p.OpenPrice) / pip
}

type OrderType int

const (
	OrderBuyLimit  OrderType = 2
	OrderSellLimit OrderType = 3
	OrderBuyStop   OrderType = 4
	OrderSellStop  OrderType = 5
)

// PendingOrder — отложенный ордер (для правила зачистки после срабатывания группы).
type PendingOrder struct {
	Ticket int64
	Symbol string
	Type   OrderType
	Price  float64
}

// Side отложенного ордера выводится из его типа.
func (o PendingOrder) Side() Side {
	switch o.Type {
	case OrderSellLimit, OrderSellStop:
		return SideSell
	default:
		return SideBuy
	}
}

// SymbolInfo — неизменяемые за время сессии параметры инструмента.
type SymbolInfo struct {
	Symbol     string
	Digits     int
	Point      float64
	StopsLevel int
}
