package events

import (
	"context"
	"fmt"
	"os"
	"time"

	"pip_secure/internal/models"
	"pip_secure/pkg/logger"

	"github.com/bytedance/sonic"
)

// Journal — сток SecuringEvent-ов: JSONL-файл ключевых событий плюс счётчики
// со сводкой раз в SummaryEvery. Файл только пишется, движок его никогда не
// читает — это артефакт наблюдаемости, а не восстанавливаемое состояние.
type Journal struct {
	path         string
	summaryEvery time.Duration
	counters     *Counters

	f *os.File
}

func NewJournal(path string, summaryEvery time.Duration, counters *Counters) *Journal {
	if summaryEvery <= 0 {
		summaryEvery = 5 * time.Minute
	}
	return &Journal{
		path:         path,
		summaryEvery: summaryEvery,
		counters:     counters,
	}
}

// Open готовит файл журнала (append). Пустой путь — журнал без файла,
// остаются только счётчики.
func (j *Journal) Open() error {
	if j.path == "" {
		return nil
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("journal open %s: %w", j.path, err)
	}
	j.f = f
	return nil
}

func (j *Journal) Close() error {
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}

// Run дренирует канал событий до отмены контекста.
func (j *Journal) Run(ctx context.Context, evs <-chan models.SecuringEvent) {
	ticker := time.NewTicker(j.summaryEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logSummary()
			return
		case ev, ok := <-evs:
			if !ok {
				return
			}
			j.record(ev)
		case <-ticker.C:
			j.logSummary()
		}
	}
}

func (j *Journal) record(ev models.SecuringEvent) {
	j.counters.Apply(ev)

	if ev.Outcome != models.OutcomeSuccess {
		logger.Warn("[EVENT] account=%d group=%s symbol=%s outcome=%s modified=%v failed=%v detail=%s",
			ev.Account, ev.GroupID, ev.Symbol, ev.Outcome, ev.Modified, ev.Failed, ev.Detail)
	}

	if j.f == nil {
		return
	}
	line, err := sonic.Marshal(ev)
	if err != nil {
		logger.Error("journal marshal: %v", err)
		return
	}
	if _, err := j.f.Write(append(line, '\n')); err != nil {
		logger.Error("journal write: %v", err)
	}
}

func (j *Journal) logSummary() {
	logins, window := j.counters.WindowAndReset()
	for _, login := range logins {
		w := window[login]
		logger.Info("[SUMMARY] account=%d cycles=%d groups=%d secured=%d partial=%d failed=%d skipped=%d retries=%d",
			login, w.Cycles, w.GroupsSeen, w.Secured, w.Partial, w.Failed, w.Skipped, w.Retries)
	}
}
