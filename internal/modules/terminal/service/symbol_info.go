package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"pip_secure/internal/models"
)

// SymbolInfo — digits/point/stops_level инструмента. Меняться в течение сессии
// не могут, кешировать на стороне вызывающего.
func (c *Client) SymbolInfo(ctx context.Context, symbol string) (models.SymbolInfo, error) {
	if symbol == "" {
		return models.SymbolInfo{}, fmt.Errorf("SymbolInfo: empty symbol")
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/symbols/"+url.PathEscape(symbol), nil)
	if err != nil {
		return models.SymbolInfo{}, fmt.Errorf("SymbolInfo new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.SymbolInfo{}, fmt.Errorf("SymbolInfo do: %w: %w", ErrConnection, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return models.SymbolInfo{}, fmt.Errorf("SymbolInfo http %d: %s: %w",
			resp.StatusCode, string(data), ErrConnection)
	}

	var r models.BridgeSymbolResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return models.SymbolInfo{}, fmt.Errorf("SymbolInfo decode: %w; body=%s", err, string(data))
	}
	if r.Code != "0" {
		return models.SymbolInfo{}, fmt.Errorf("SymbolInfo %s error: code=%s msg=%s", symbol, r.Code, r.Msg)
	}

	info := models.SymbolInfo{
		Symbol:     r.Data.Symbol,
		Digits:     r.Data.Digits,
		Point:      r.Data.Point,
		StopsLevel: r.Data.StopsLevel,
	}
	if info.Symbol == "" {
		info.Symbol = symbol
	}
	return info, nil
}
