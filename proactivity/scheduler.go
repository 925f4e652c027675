package proactivity

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Time windows in which reminders may be sent.
const (
	WindowMorning = "morning"
	WindowEvening = "evening"
)

// DefaultMaxPerWindow caps notifications per window and day.
const DefaultMaxPerWindow = 3

// Window is a named slot of the day with the cron expression that opens it.
type Window struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
	Spec  string `json:"-"`
}

// DefaultWindows are checked at 07:30 and 18:30.
var DefaultWindows = []Window{
	{Name: WindowMorning, Start: "07:30", End: "08:30", Spec: "30 7 * * *"},
	{Name: WindowEvening, Start: "18:30", End: "20:00", Spec: "30 18 * * *"},
}

// resetSpec clears the throttle at midnight.
const resetSpec = "0 0 * * *"

// Throttle counts notifications per window. It is safe for concurrent use.
type Throttle struct {
	Max    int
	mu     sync.Mutex
	counts map[string]int
}

// NewThrottle allows max notifications per window until Reset.
func NewThrottle(max int) *Throttle {
	return &Throttle{Max: max, counts: make(map[string]int)}
}

// Allow reports whether window still has room.
func (t *Throttle) Allow(window string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return window != "" && t.counts[window] < t.Max
}

// Record counts one delivered notification.
func (t *Throttle) Record(window string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[window]++
}

// Reset zeroes every window.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts = make(map[string]int)
}

// Counts returns a copy of the counters.
func (t *Throttle) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// Scheduler runs the window checks on a cron clock.
type Scheduler struct {
	Engine   *Engine
	Notifier Notifier
	Throttle *Throttle
	Windows  []Window
	Location *time.Location
	Logger   *log.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewScheduler wires an engine to a notifier with the default windows.
func NewScheduler(engine *Engine, notifier Notifier) *Scheduler {
	return &Scheduler{
		Engine:   engine,
		Notifier: notifier,
		Throttle: NewThrottle(DefaultMaxPerWindow),
		Windows:  DefaultWindows,
		Location: time.Local,
		Logger:   log.Default(),
	}
}

// Start registers the window and reset jobs and starts the cron clock.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New(cron.WithLocation(s.Location))
	for _, w := range s.Windows {
		name := w.Name
		if _, err := c.AddFunc(w.Spec, func() { s.RunWindow(context.Background(), name) }); err != nil {
			return fmt.Errorf("failed to schedule %s check: %w", name, err)
		}
	}
	if _, err := c.AddFunc(resetSpec, s.reset); err != nil {
		return fmt.Errorf("failed to schedule counter reset: %w", err)
	}

	c.Start()
	s.cron = c
	s.running = true
	s.logf("[PROACTIVITY] Scheduler started with %d windows", len(s.Windows))
	return nil
}

// Stop halts the clock and waits for running checks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		s.logf("[PROACTIVITY] Scheduler shut down")
	}
}

// Running reports whether the cron clock is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunWindow evaluates the rules of window and delivers due reminders while the
// throttle allows. It returns the number delivered.
func (s *Scheduler) RunWindow(ctx context.Context, window string) int {
	s.logf("[PROACTIVITY] Running %s proactivity check", window)
	if !s.Throttle.Allow(window) {
		s.logf("[PROACTIVITY] Max notifications reached for %s window", window)
		return 0
	}

	sent := 0
	for _, reminder := range s.Engine.DueReminders(ctx, window) {
		if !s.Throttle.Allow(window) {
			break
		}
		if err := s.Notifier.Send(ctx, reminder.Message, reminder.Priority); err != nil {
			s.logf("[PROACTIVITY] Failed to send %s reminder: %v", window, err)
			continue
		}
		s.Throttle.Record(window)
		sent++
		s.logf("[PROACTIVITY] Sent %s reminder: %s", window, truncate(reminder.Message, 50))
	}
	return sent
}

func (s *Scheduler) reset() {
	s.logf("[PROACTIVITY] Resetting daily notification counters")
	s.Throttle.Reset()
}

// CurrentWindow names the window containing now, or "" outside all windows.
func (s *Scheduler) CurrentWindow(now time.Time) string {
	if s.Location != nil {
		now = now.In(s.Location)
	}
	clock := now.Format("15:04")
	for _, w := range s.Windows {
		if w.Start <= clock && clock <= w.End {
			return w.Name
		}
	}
	return ""
}

// Status is the scheduler state reported by GET /v1/status.
type Status struct {
	Running       bool           `json:"scheduler_running"`
	CurrentWindow string         `json:"current_window,omitempty"`
	Windows       []Window       `json:"windows"`
	Counts        map[string]int `json:"notification_count_today"`
}

// Status reports the scheduler state at now.
func (s *Scheduler) Status(now time.Time) Status {
	return Status{
		Running:       s.Running(),
		CurrentWindow: s.CurrentWindow(now),
		Windows:       s.Windows,
		Counts:        s.Throttle.Counts(),
	}
}

func (s *Scheduler) logf(format string, args ...interface{}) {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
