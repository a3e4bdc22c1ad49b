package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"pip_secure/internal/models"

	"github.com/bytedance/sonic"
)

// PendingOrders — активные отложки счёта (лимитки и стопы, уже отфильтрованные мостом).
func (c *Client) PendingOrders(ctx context.Context) ([]models.PendingOrder, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/orders", nil)
	if err != nil {
		return nil, fmt.Errorf("PendingOrders new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("PendingOrders do: %w: %w", ErrConnection, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("PendingOrders http %d: %s: %w", resp.StatusCode, string(data), ErrConnection)
	}

	var r models.BridgeOrdersResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("PendingOrders decode: %w; body=%s", err, string(data))
	}
	if r.Code != "0" {
		return nil, fmt.Errorf("PendingOrders error: code=%s msg=%s: %w", r.Code, r.Msg, ErrConnection)
	}

	out := make([]models.PendingOrder, 0, len(r.Data))
	for _, o := range r.Data {
		out = append(out, models.PendingOrder{
			Ticket: o.Ticket,
			Symbol: o.Symbol,
			Type:   models.OrderType(o.Type),
			Price:  o.PriceOpen,
		})
	}
	return out, nil
}

// DeleteOrder снимает отложку по тикету.
func (c *Client) DeleteOrder(ctx context.Context, ticket int64) error {
	if ticket <= 0 {
		return fmt.Errorf("DeleteOrder: ticket <= 0")
	}

	payload, _ := sonic.Marshal(map[string]any{"ticket": ticket})

	req, err := c.newRequest(ctx, http.MethodPost, "/orders/delete", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("DeleteOrder new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("DeleteOrder do: %w", &TradeError{Kind: KindTransient, Msg: err.Error()})
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("DeleteOrder http %d: %w",
			resp.StatusCode, &TradeError{Kind: KindTransient, Msg: string(data)})
	}

	var r models.BridgeTradeResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("DeleteOrder decode: %w; body=%s", err, string(data))
	}
	if r.Code != "0" {
		return fmt.Errorf("DeleteOrder error: code=%s msg=%s RAW=%s: %w",
			r.Code, r.Msg, string(data), &TradeError{Kind: KindTransient, Msg: r.Msg})
	}

	if err := tradeErrFromRetCode(r.Data.RetCode, r.Data.Comment); err != nil {
		return fmt.Errorf("DeleteOrder ticket=%d: %w", ticket, err)
	}
	return nil
}
