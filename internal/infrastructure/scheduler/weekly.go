package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"healthbrief/internal/ports"
)

// WeeklyScheduler fires a job once per week at a fixed local day and time.
// A run that is still in flight when the next slot arrives is skipped
// rather than overlapped.
type WeeklyScheduler struct {
	weekday time.Weekday
	hour    int
	minute  int
	loc     *time.Location
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}

	now func() time.Time
}

var _ ports.Scheduler = (*WeeklyScheduler)(nil)

// NewWeeklyScheduler builds a scheduler for the given weekly slot.
func NewWeeklyScheduler(weekday time.Weekday, hour, minute int, loc *time.Location, log *slog.Logger) *WeeklyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &WeeklyScheduler{
		weekday: weekday,
		hour:    hour,
		minute:  minute,
		loc:     loc,
		logger:  log,
		now:     time.Now,
	}
}

// NextRun returns the first occurrence of the weekly slot strictly after
// the given instant.
func (w *WeeklyScheduler) NextRun(after time.Time) time.Time {
	local := after.In(w.loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), w.hour, w.minute, 0, 0, w.loc)

	days := (int(w.weekday) - int(candidate.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, days)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// Start launches the timer goroutine. It returns immediately.
func (w *WeeklyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	w.mu.Lock()
	if w.stop != nil {
		w.mu.Unlock()
		return nil
	}
	w.stop = make(chan struct{})
	stop := w.stop
	w.mu.Unlock()

	go func() {
		for {
			next := w.NextRun(w.now())
			w.info("next run scheduled", "at", next.Format(time.RFC1123))

			timer := time.NewTimer(time.Until(next))
			select {
			case fired := <-timer.C:
				w.dispatch(job, fired)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

func (w *WeeklyScheduler) dispatch(job func(time.Time), at time.Time) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.info("previous run still in progress, skipping slot", "at", at.Format(time.RFC1123))
		return
	}
	w.running = true
	w.mu.Unlock()

	go func() {
		defer func() {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
		}()
		job(at)
	}()
}

// Stop halts the timer goroutine. A job already in flight finishes.
func (w *WeeklyScheduler) Stop(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop == nil {
		return nil
	}
	close(w.stop)
	w.stop = nil
	return nil
}

func (w *WeeklyScheduler) info(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Info(msg, args...)
	}
}
