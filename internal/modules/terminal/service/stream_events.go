package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"pip_secure/internal/models"
	"pip_secure/pkg/logger"
)

// StreamEvents — торговые события моста (/ws/events): открытия, закрытия,
// отложки. Канал закрывается только по ctx; обрыв соединения — redial через 1s.
func (c *Client) StreamEvents(ctx context.Context) <-chan models.TradeEvent {
	ch := make(chan models.TradeEvent)

	go func() {
		defer close(ch)

		wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws/events"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			logger.Info("[WS] events connect login=%d", c.login)
			conn, _, err := c.wsDialer.Dial(wsURL, nil)
			if err != nil {
				logger.Error("[WS] events dial login=%d: %v", c.login, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			sub := map[string]any{
				"op":   "subscribe",
				"args": []string{"trade_events"},
			}
			if err := conn.WriteJSON(sub); err != nil {
				logger.Error("[WS] events subscribe login=%d: %v", c.login, err)
				_ = conn.Close()
				continue
			}

			// keepalive, иначе мост закрывает молчащие соединения
			stopPing := make(chan struct{})
			go func() {
				t := time.NewTicker(20 * time.Second)
				defer t.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-stopPing:
						return
					case <-t.C:
						_ = conn.WriteJSON(map[string]string{"op": "ping"})
					}
				}
			}()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					logger.Error("[WS] events read login=%d: %v", c.login, err)
					_ = conn.Close()
					close(stopPing)
					break
				}

				var frame struct {
					Event  string `json:"event"`
					Ticket int64  `json:"ticket"`
					Symbol string `json:"symbol"`
					TimeMs int64  `json:"time_ms"`
				}
				if err := json.Unmarshal(msg, &frame); err != nil {
					continue
				}
				if frame.Event == "" || frame.Event == "pong" {
					continue
				}

				ev := models.TradeEvent{
					Event:  frame.Event,
					Ticket: frame.Ticket,
					Symbol: frame.Symbol,
					TimeMs: frame.TimeMs,
				}

				select {
				case ch <- ev:
				case <-ctx.Done():
					_ = conn.Close()
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(time.Second)
			}
		}
	}()

	return ch
}
