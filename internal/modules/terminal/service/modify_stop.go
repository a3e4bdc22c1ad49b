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

// ModifyStopLoss двигает стоп позиции, сохраняя тейк. tp=0 — тейка нет, не трогаем.
// Возвращает *TradeError с видом отказа; транспортные ошибки — Transient.
func (c *Client) ModifyStopLoss(ctx context.Context, ticket int64, sl float64, tp float64) error {
	if ticket <= 0 {
		return fmt.Errorf("ModifyStopLoss: ticket <= 0")
	}
	if sl <= 0 {
		return fmt.Errorf("ModifyStopLoss: sl <= 0")
	}

	body := map[string]any{
		"ticket": ticket,
		"sl":     sl,
	}
	if tp > 0 {
		body["tp"] = tp
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return fmt.Errorf("ModifyStopLoss marshal: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/modify", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ModifyStopLoss new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ModifyStopLoss do: %w", &TradeError{Kind: KindTransient, Msg: err.Error()})
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 == 5 {
		return fmt.Errorf("ModifyStopLoss http %d: %w",
			resp.StatusCode, &TradeError{Kind: KindTransient, Msg: string(data)})
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("ModifyStopLoss http %d: %w",
			resp.StatusCode, &TradeError{Kind: KindRejected, Msg: string(data)})
	}

	var r models.BridgeTradeResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("ModifyStopLoss decode: %w; body=%s", err, string(data))
	}
	if r.Code != "0" {
		return fmt.Errorf("ModifyStopLoss error: code=%s msg=%s RAW=%s: %w",
			r.Code, r.Msg, string(data), &TradeError{Kind: KindTransient, Msg: r.Msg})
	}

	if err := tradeErrFromRetCode(r.Data.RetCode, r.Data.Comment); err != nil {
		return fmt.Errorf("ModifyStopLoss ticket=%d: %w", ticket, err)
	}
	return nil
}
