package refresh

import (
	"context"
	"log"
	"sync"
	"time"

	"finance-gpt-assistant/internal/cache"
)

// FetchFunc fetches records for the given tickers. Implementations never
// return an error: per-ticker failures are omitted and a dead upstream
// yields an empty map.
type FetchFunc func(ctx context.Context, tickers []string) map[string]cache.Record

// Task is one independently refreshed section: its ticker universe, its
// cadence, and the fetch that feeds it.
type Task struct {
	Name     string
	Section  *cache.Section
	Universe []string
	Interval time.Duration
	Fetch    FetchFunc
}

// Scheduler runs one refresh loop per task. Loops are independent; a
// stalled or failing section never blocks another.
type Scheduler struct {
	tasks []Task
	wg    sync.WaitGroup
}

func NewScheduler(tasks ...Task) *Scheduler {
	return &Scheduler{tasks: tasks}
}

// Start launches the refresh loops. Each fetches immediately, then on its
// own interval, until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, t := range s.tasks {
		s.wg.Add(1)
		go func(t Task) {
			defer s.wg.Done()
			s.run(ctx, t)
		}(t)
	}
}

// Wait blocks until every loop has observed cancellation and finished its
// current cycle. Cycles are never interrupted mid-merge.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, t Task) {
	interval := t.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s.cycle(ctx, t)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("refresh %s: stopping", t.Name)
			return
		case <-ticker.C:
			s.cycle(ctx, t)
		}
	}
}

// cycle runs one fetch-then-merge iteration. A panic inside the fetch is
// confined to the cycle, so one bad iteration never kills the loop. An
// empty fetch result skips the merge entirely: a failed cycle leaves the
// section exactly as it was, it never clears it.
func (s *Scheduler) cycle(ctx context.Context, t Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("refresh %s: cycle failed: %v", t.Name, r)
		}
	}()
	updates := t.Fetch(ctx, t.Universe)
	if len(updates) == 0 {
		log.Printf("refresh %s: no new data, keeping %d existing records", t.Name, t.Section.Len())
		return
	}
	t.Section.Merge(updates)
	log.Printf("refresh %s: merged %d of %d tickers", t.Name, len(updates), len(t.Universe))
}
