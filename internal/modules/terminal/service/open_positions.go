package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pip_secure/internal/models"
)

// OpenPositions — полный снапшот открытых позиций счёта. Пустой список — норма.
// Любой транспортный или мостовой отказ заворачивается в ErrConnection:
// данных нет, цикл пропускается без потерь.
func (c *Client) OpenPositions(ctx context.Context) ([]models.Position, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("OpenPositions new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenPositions do: %w: %w", ErrConnection, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("OpenPositions http %d: %s: %w", resp.StatusCode, string(data), ErrConnection)
	}

	var r models.BridgePositionsResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("OpenPositions decode: %w; body=%s", err, string(data))
	}
	if r.Code != "0" {
		return nil, fmt.Errorf("OpenPositions error: code=%s msg=%s: %w", r.Code, r.Msg, ErrConnection)
	}

	out := make([]models.Position, 0, len(r.Data))
	for _, p := range r.Data {
		if p.Volume <= 0 {
			continue
		}
		out = append(out, models.Position{
			Ticket:       p.Ticket,
			Symbol:       p.Symbol,
			Side:         models.SideFromType(p.Type),
			OpenTime:     time.UnixMilli(p.TimeMs),
			OpenPrice:    p.PriceOpen,
			Volume:       p.Volume,
			SL:           p.SL,
			TP:           p.TP,
			PriceCurrent: p.PriceCur,
			Profit:       p.Profit,
			Comment:      p.Comment,
			Magic:        p.Magic,
		})
	}
	return out, nil
}
