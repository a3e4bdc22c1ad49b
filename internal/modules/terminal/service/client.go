package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pip_secure/internal/models"

	"github.com/gorilla/websocket"
)

// Client — HTTP/WS клиент моста терминала. Один мост = один терминал = один счёт,
// поэтому клиент создаётся менеджером на каждый аккаунт отдельно.
type Client struct {
	http     *http.Client
	wsDialer *websocket.Dialer

	baseURL string
	token   string
	login   int64
}

func NewClient(baseURL string, token string, login int64) *Client {
	return &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		wsDialer: &websocket.Dialer{},
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		login:    login,
	}
}

func (c *Client) Login() int64 { return c.login }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Ping — жив ли мост и залогинен ли терминал в брокера.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/ping", nil)
	if err != nil {
		return fmt.Errorf("Ping new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("Ping do: %w: %w", ErrConnection, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("Ping http %d: %s: %w", resp.StatusCode, string(data), ErrConnection)
	}

	var r models.BridgePingResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("Ping decode: %w; body=%s", err, string(data))
	}
	if r.Code != "0" {
		return fmt.Errorf("Ping error: code=%s msg=%s: %w", r.Code, r.Msg, ErrConnection)
	}
	if !r.Data.Connected {
		return fmt.Errorf("Ping: terminal not connected (login=%d): %w", r.Data.Login, ErrConnection)
	}
	if r.Data.Login != 0 && c.login != 0 && r.Data.Login != c.login {
		return fmt.Errorf("Ping: bridge serves login=%d, expected %d", r.Data.Login, c.login)
	}
	return nil
}
