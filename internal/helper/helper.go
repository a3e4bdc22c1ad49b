package helper

import (
	"math"
	"strconv"
	"strings"
)

// GroupKey — ключ корзины склейки "symbol:side".
func GroupKey(symbol, side string) string { return symbol + ":" + side }

// SplitGroupKey — обратно к symbol/side, ok=false на мусоре.
func SplitGroupKey(key string) (symbol string, side string, ok bool) {
	i := strings.LastIndexByte(key, ':')
	if i <= 0 || i >= len(key)-1 {
		return "", "", false
	}

	symbol = key[:i]
	side = key[i+1:]

	if symbol == "" {
		return "", "", false
	}

	switch side {
	case "BUY", "SELL":
		// ok
	default:
		return "", "", false
	}

	return symbol, side, true
}

// RoundToDigits округляет цену до числа знаков инструмента.
func RoundToDigits(px float64, digits int) float64 {
	if digits < 0 {
		return px
	}
	pow := math.Pow(10, float64(digits))
	return math.Round(px*pow+1e-12) / pow
}

// RoundDownToPoint прижимает цену вниз к шагу инструмента.
func RoundDownToPoint(px, point float64) float64 {
	if point <= 0 {
		return px
	}
	steps := math.Floor(px/point + 1e-12)
	return steps * point
}

// ApproxEqual — равенство с точностью eps (для сравнения стопов).
func ApproxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

// DigitsEps — порог "стоп уже на месте": 10^-digits, как у терминала.
func DigitsEps(digits int) float64 {
	if digits <= 0 {
		return 1e-5
	}
	return math.Pow(10, -float64(digits))
}

// FormatTickets — тикеты через запятую для логов и нотификаций.
func FormatTickets(tickets []int64) string {
	if len(tickets) == 0 {
		return "-"
	}
	var b strings.Builder
	for i, t := range tickets {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(t, 10))
	}
	return b.String()
}
