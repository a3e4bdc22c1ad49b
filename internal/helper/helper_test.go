package helper

import (
	"math"
	"testing"
)

func TestGroupKeyRoundTrip(t *testing.T) {
	key := GroupKey("EURUSD", "BUY")
	if key != "EURUSD:BUY" {
		t.Fatalf("key = %s", key)
	}

	symbol, side, ok := SplitGroupKey(key)
	if !ok || symbol != "EURUSD" || side != "BUY" {
		t.Fatalf("split = %s/%s ok=%v", symbol, side, ok)
	}

	for _, bad := range []string{"", "EURUSD", ":BUY", "EURUSD:", "EURUSD:HOLD"} {
		if _, _, ok := SplitGroupKey(bad); ok {
			t.Errorf("SplitGroupKey(%q) must fail", bad)
		}
	}
}

func TestRoundToDigits(t *testing.T) {
	if got := RoundToDigits(1.100004999, 5); got != 1.10000 {
		t.Errorf("got %v", got)
	}
	if got := RoundToDigits(1.100005, 5); got != 1.10001 {
		t.Errorf("half must round up, got %v", got)
	}
	if got := RoundToDigits(2315.47, -1); got != 2315.47 {
		t.Errorf("negative digits must be a no-op, got %v", got)
	}
}

func TestRoundDownToPoint(t *testing.T) {
	if got := RoundDownToPoint(1.10007, 0.00005); math.Abs(got-1.10005) > 1e-9 {
		t.Errorf("got %v", got)
	}
	if got := RoundDownToPoint(1.1, 0); got != 1.1 {
		t.Errorf("zero point must be a no-op, got %v", got)
	}
}

func TestDigitsEps(t *testing.T) {
	if got := DigitsEps(5); got != 1e-5 {
		t.Errorf("got %v", got)
	}
	if got := DigitsEps(2); got != 1e-2 {
		t.Errorf("got %v", got)
	}
	if got := DigitsEps(0); got != 1e-5 {
		t.Errorf("fallback must be 1e-5, got %v", got)
	}
}

func TestApproxEqual(t *testing.T) {
	if !ApproxEqual(1.10000, 1.100004, 1e-5) {
		t.Errorf("within eps must be equal")
	}
	if ApproxEqual(1.10000, 1.10002, 1e-5) {
		t.Errorf("outside eps must differ")
	}
}

func TestFormatTickets(t *testing.T) {
	if got := FormatTickets(nil); got != "-" {
		t.Errorf("empty = %q", got)
	}
	if got := FormatTickets([]int64{1, 22, 333}); got != "1,22,333" {
		t.Errorf("got %q", got)
	}
}
