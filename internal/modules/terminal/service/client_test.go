package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"pip_secure/internal/models"
	"pip_secure/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init("error")
	os.Exit(m.Run())
}

func tradeOK() string {
	return `{"code":"0","msg":"","data":{"retcode":10009,"comment":"done"}}`
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			t.Errorf("path = %s, want /ping", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		fmt.Fprint(w, `{"code":"0","msg":"","data":{"connected":true,"login":111}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", 111)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestPingTerminalNotConnected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0","msg":"","data":{"connected":false,"login":111}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 111)
	if err := c.Ping(context.Background()); !errors.Is(err, ErrConnection) {
		t.Fatalf("want ErrConnection, got %v", err)
	}
}

func TestPingWrongLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0","msg":"","data":{"connected":true,"login":222}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 111)
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("bridge serving another login must be an error")
	}
}

func TestOpenPositions(t *testing.T) {
	openMs := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/positions" {
			t.Errorf("path = %s, want /positions", r.URL.Path)
		}
		fmt.Fprintf(w, `{"code":"0","msg":"","data":[
			{"ticket":1,"symbol":"EURUSD","type":0,"time_ms":%d,"price_open":1.1,"volume":0.5,"sl":0,"tp":1.12,"price_current":1.105,"profit":25,"comment":"sig","magic":7},
			{"ticket":2,"symbol":"EURUSD","type":1,"time_ms":%d,"price_open":1.1,"volume":0,"sl":0,"tp":0,"price_current":1.1,"profit":0,"comment":"","magic":0}
		]}`, openMs, openMs)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 111)
	positions, err := c.OpenPositions(context.Background())
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	// нулевой объём отфильтрован
	if len(positions) != 1 {
		t.Fatalf("want 1 position, got %d", len(positions))
	}

	p := positions[0]
	if p.Ticket != 1 || p.Symbol != "EURUSD" || p.Side != models.SideBuy {
		t.Fatalf("position mapped wrong: %+v", p)
	}
	if p.OpenTime.UnixMilli() != openMs {
		t.Fatalf("open time = %v", p.OpenTime)
	}
	if p.TP != 1.12 || p.Magic != 7 || p.Comment != "sig" {
		t.Fatalf("fields lost: %+v", p)
	}
}

func TestOpenPositionsConnectionErrors(t *testing.T) {
	// мост отвечает 500
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	c := NewClient(srv.URL, "", 111)
	if _, err := c.OpenPositions(context.Background()); !errors.Is(err, ErrConnection) {
		t.Fatalf("http 500: want ErrConnection, got %v", err)
	}
	srv.Close()

	// моста нет вовсе
	if _, err := c.OpenPositions(context.Background()); !errors.Is(err, ErrConnection) {
		t.Fatalf("dead server: want ErrConnection, got %v", err)
	}

	// мост жив, но терминал вернул ошибку
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"1","msg":"terminal gone","data":[]}`)
	}))
	defer srv2.Close()
	c2 := NewClient(srv2.URL, "", 111)
	if _, err := c2.OpenPositions(context.Background()); !errors.Is(err, ErrConnection) {
		t.Fatalf("bridge error code: want ErrConnection, got %v", err)
	}
}

func TestModifyStopLoss(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/modify" || r.Method != http.MethodPost {
			t.Errorf("%s %s, want POST /modify", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, tradeOK())
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 111)
	if err := c.ModifyStopLoss(context.Background(), 5, 1.1, 1.12); err != nil {
		t.Fatalf("ModifyStopLoss: %v", err)
	}
	if got["ticket"].(float64) != 5 || got["sl"].(float64) != 1.1 || got["tp"].(float64) != 1.12 {
		t.Fatalf("request body wrong: %v", got)
	}
}

func TestModifyStopLossOmitsZeroTP(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, tradeOK())
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 111)
	if err := c.ModifyStopLoss(context.Background(), 5, 1.1, 0); err != nil {
		t.Fatalf("ModifyStopLoss: %v", err)
	}
	if _, ok := got["tp"]; ok {
		t.Fatalf("tp=0 must not be sent, body=%v", got)
	}
}

func TestModifyStopLossRetcodeMapping(t *testing.T) {
	retcode := 10004
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"code":"0","msg":"","data":{"retcode":%d,"comment":"requote"}}`, retcode)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 111)
	err := c.ModifyStopLoss(context.Background(), 5, 1.1, 0)

	var te *TradeError
	if !errors.As(err, &te) || te.Kind != KindRequote {
		t.Fatalf("retcode 10004 must map to REQUOTE, got %v", err)
	}

	retcode = 10031
	err = c.ModifyStopLoss(context.Background(), 5, 1.1, 0)
	if !errors.As(err, &te) || te.Kind != KindTransient {
		t.Fatalf("retcode 10031 must map to TRANSIENT, got %v", err)
	}
}

func TestModifyStopLossValidation(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", 111)
	if err := c.ModifyStopLoss(context.Background(), 0, 1.1, 0); err == nil {
		t.Fatalf("zero ticket must fail before the wire")
	}
	if err := c.ModifyStopLoss(context.Background(), 5, 0, 0); err == nil {
		t.Fatalf("zero sl must fail before the wire")
	}
}

func TestPendingOrdersAndDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orders":
			fmt.Fprint(w, `{"code":"0","msg":"","data":[{"ticket":100,"symbol":"EURUSD","type":2,"price_open":1.09}]}`)
		case "/orders/delete":
			fmt.Fprint(w, tradeOK())
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 111)
	orders, err := c.PendingOrders(context.Background())
	if err != nil {
		t.Fatalf("PendingOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].Type != models.OrderBuyLimit || orders[0].Side() != models.SideBuy {
		t.Fatalf("orders mapped wrong: %+v", orders)
	}

	if err := c.DeleteOrder(context.Background(), 100); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
}

func TestSymbolInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/symbols/EURUSD" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"code":"0","msg":"","data":{"symbol":"EURUSD","digits":5,"point":0.00001,"stops_level":10}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 111)
	info, err := c.SymbolInfo(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("SymbolInfo: %v", err)
	}
	if info.Digits != 5 || info.Point != 0.00001 || info.StopsLevel != 10 {
		t.Fatalf("symbol info wrong: %+v", info)
	}
}
