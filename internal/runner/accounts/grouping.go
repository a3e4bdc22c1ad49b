package accounts

import (
	"sort"
	"strings"

	"pip_secure/internal/helper"
	"pip_secure/internal/models"
	"pip_secure/pkg/logger"
)

// groupSnapshot разбивает снапшот позиций на кластеры одного сигнала.
// Связность транзитивная: A-B и B-C склеивают A,B,C, даже если A-C сами по
// себе не проходят пороги. Результат детерминирован и не зависит от порядка
// входа: участники отсортированы по тикету, кластеры — по времени открытия.
func groupSnapshot(positions []models.Position, rules models.GroupRules) [][]models.Position {
	if len(positions) == 0 {
		return nil
	}

	// дубликат тикета в одном снапшоте — мусор моста, последний побеждает
	byTicket := make(map[int64]int, len(positions))
	uniq := make([]models.Position, 0, len(positions))
	for _, p := range positions {
		if i, ok := byTicket[p.Ticket]; ok {
			logger.Warn("[GROUP] duplicate ticket %d in snapshot, keeping last", p.Ticket)
			uniq[i] = p
			continue
		}
		byTicket[p.Ticket] = len(uniq)
		uniq = append(uniq, p)
	}

	// корзины symbol:side — разные символы и направления не линкуются никогда
	buckets := make(map[string][]models.Position)
	for _, p := range uniq {
		k := helper.GroupKey(p.Symbol, string(p.Side))
		buckets[k] = append(buckets[k], p)
	}

	var clusters [][]models.Position
	for _, bucket := range buckets {
		clusters = append(clusters, connectedComponents(bucket, rules)...)
	}

	for _, c := range clusters {
		sort.Slice(c, func(i, j int) bool { return c[i].Ticket < c[j].Ticket })
	}
	sort.Slice(clusters, func(i, j int) bool {
		a, b := earliest(clusters[i]), earliest(clusters[j])
		if !a.OpenTime.Equal(b.OpenTime) {
			return a.OpenTime.Before(b.OpenTime)
		}
		return a.Ticket < b.Ticket
	})
	return clusters
}

// connectedComponents — union-find по отношению linkable внутри одной корзины.
func connectedComponents(bucket []models.Position, rules models.GroupRules) [][]models.Position {
	n := len(bucket)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			parent[rj] = ri
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if linkable(bucket[i], bucket[j], rules) {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]models.Position)
	for i, p := range bucket {
		r := find(i)
		byRoot[r] = append(byRoot[r], p)
	}

	out := make([][]models.Position, 0, len(byRoot))
	for _, c := range byRoot {
		out = append(out, c)
	}
	return out
}

// linkable — пара позиций из одной корзины считается одним сигналом.
func linkable(a, b models.Position, rules models.GroupRules) bool {
	dt := a.OpenTime.Sub(b.OpenTime)
	if dt < 0 {
		dt = -dt
	}
	if dt > rules.MaxTimeDelta.Std() {
		return false
	}

	if PriceToPips(a.Symbol, a.OpenPrice-b.OpenPrice) > rules.MaxPriceDelta {
		return false
	}

	if rules.VolumeTolerance > 0 {
		lo, hi := a.Volume, b.Volume
		if lo > hi {
			lo, hi = hi, lo
		}
		if hi <= 0 || lo < hi*(1-rules.VolumeTolerance) {
			return false
		}
	}

	if rules.CommentPattern != "" {
		if !strings.Contains(a.Comment, rules.CommentPattern) ||
			!strings.Contains(b.Comment, rules.CommentPattern) {
			return false
		}
	}

	return true
}

// earliest — представительский участник кластера (самое раннее открытие,
// при равенстве — меньший тикет).
func earliest(cluster []models.Position) models.Position {
	best := cluster[0]
	for _, p := range cluster[1:] {
		if p.OpenTime.Before(best.OpenTime) ||
			(p.OpenTime.Equal(best.OpenTime) && p.Ticket < best.Ticket) {
			best = p
		}
	}
	return best
}
