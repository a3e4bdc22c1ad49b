package accounts

import (
	"math"
	"strings"
)

// Размер пипса по классу инструмента. Сканируем по префиксу, чтобы брокерские
// суффиксы (EURUSD.m, XAUUSDx) попадали в те же правила.
var pipTable = []struct {
	prefix string
	mult   float64
}{
	{"OIL", 0.01},
	{"XAU", 0.01},
	{"XAG", 0.01},
	{"US30", 1.0},
	{"US100", 1.0},
	{"US500", 1.0},
	{"JP225", 1.0},
	{"GER40", 1.0},
	{"UK100", 1.0},
	{"FRA40", 1.0},
	{"AUS200", 1.0},
	{"ESP35", 1.0},
	{"EUSTX50", 1.0},
}

// PipSize — множитель пипса для символа. JPY-котировки ловим по подстроке,
// всё остальное — 0.0001.
func PipSize(symbol string) float64 {
	up := strings.ToUpper(symbol)
	for _, e := range pipTable {
		if strings.HasPrefix(up, e.prefix) {
			return e.mult
		}
	}
	if strings.Contains(up, "JPY") {
		return 0.01
	}
	return 0.0001
}

// PriceToPips переводит ценовую дистанцию в пипсы инструмента.
func PriceToPips(symbol string, delta float64) float64 {
	pip := PipSize(symbol)
	if pip <= 0 {
		return 0
	}
	return math.Abs(delta) / pip
}
