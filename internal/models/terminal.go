package models

// DTO моста терминала. Числа приходят строками там, где мост проксирует
// терминал как есть; время — unix ms.

type BridgePositionsResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		Ticket    int64   `json:"ticket"`
		Symbol    string  `json:"symbol"`
		Type      int     `json:"type"` // 0=buy, 1=sell
		TimeMs    int64   `json:"time_ms"`
		PriceOpen float64 `json:"price_open"`
		Volume    float64 `json:"volume"`
		SL        float64 `json:"sl"`
		TP        float64 `json:"tp"`
		PriceCur  float64 `json:"price_current"`
		Profit    float64 `json:"profit"`
		Comment   string  `json:"comment"`
		Magic     int64   `json:"magic"`
	} `json:"data"`
}

type BridgeOrdersResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		Ticket    int64   `json:"ticket"`
		Symbol    string  `json:"symbol"`
		Type      int     `json:"type"` // 2..5 — отложки
		PriceOpen float64 `json:"price_open"`
	} `json:"data"`
}

type BridgeSymbolResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Symbol     string  `json:"symbol"`
		Digits     int     `json:"digits"`
		Point      float64 `json:"point"`
		StopsLevel int     `json:"stops_level"`
	} `json:"data"`
}

// BridgeTradeResponse — ответ на modify/delete. RetCode — сырой код терминала.
type BridgeTradeResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		RetCode int    `json:"retcode"`
		Comment string `json:"comment"`
	} `json:"data"`
}

type BridgePingResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Connected bool  `json:"connected"`
		Login     int64 `json:"login"`
	} `json:"data"`
}

// TradeEvent — событие из ws-стрима моста (/ws/events).
type TradeEvent struct {
	Event  string `json:"event"` // position_open | position_close | order_place | order_delete
	Ticket int64  `json:"ticket"`
	Symbol string `json:"symbol"`
	TimeMs int64  `json:"time_ms"`
}
