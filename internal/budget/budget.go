/*
Package budget enforces the daily delivery quota and spreads deliveries across
the active window.
*/
package budget

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const dayLayout = "2006-01-02"

var ErrExhausted = errors.New("budget: daily limit reached")

// State is the persisted form of a budget.
type State struct {
	Day   string `json:"day"`
	Sent  int    `json:"sent"`
	Limit int    `json:"limit"`
}

// StateStore persists budget state across restarts.
type StateStore interface {
	LoadBudget(ctx context.Context) (State, bool, error)
	SaveBudget(ctx context.Context, s State) error
}

type Config struct {
	Limit    int
	Window   Window
	Location *time.Location
	// Spacing overrides Window.Duration()/Limit when positive; negative
	// disables spacing.
	Spacing time.Duration
	Store   StateStore
	Now     func() time.Time
}

// Budget is safe for concurrent use, though the orchestrator drives it from a
// single goroutine.
type Budget struct {
	mu      sync.Mutex
	state   State
	loc     *time.Location
	window  Window
	spacing time.Duration
	limiter *rate.Limiter
	store   StateStore
	now     func() time.Time
}

func New(cfg Config) *Budget {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	limit := cfg.Limit
	if limit < 0 {
		limit = 0
	}
	spacing := cfg.Spacing
	if spacing == 0 && limit > 0 {
		spacing = cfg.Window.Duration() / time.Duration(limit)
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if spacing > 0 {
		lim = rate.NewLimiter(rate.Every(spacing), 1)
	} else {
		spacing = 0
	}
	b := &Budget{
		loc:     loc,
		window:  cfg.Window,
		spacing: spacing,
		limiter: lim,
		store:   cfg.Store,
		now:     now,
	}
	b.state = State{Day: b.day(now()), Limit: limit}
	return b
}

// Restore loads today's persisted count, if any. State from an earlier day
// is ignored.
func (b *Budget) Restore(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	s, ok, err := b.store.LoadBudget(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !ok || s.Day != b.day(b.now()) {
		return nil
	}
	b.state.Day = s.Day
	b.state.Sent = min(s.Sent, b.state.Limit)
	return nil
}

// Rollover resets the count when now falls on a later calendar day than the
// last reset. It reports whether a reset happened.
func (b *Budget) Rollover(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rollover(now)
}

// rollover only moves forward; day strings sort chronologically.
func (b *Budget) rollover(now time.Time) bool {
	today := b.day(now)
	if today <= b.state.Day {
		return false
	}
	b.state.Day = today
	b.state.Sent = 0
	return true
}

// Allow rolls over if needed and reports whether a delivery may be attempted.
func (b *Budget) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover(now)
	return b.state.Sent < b.state.Limit
}

// Spend records one successful delivery and persists the new state. allowedAt
// is the instant Allow approved the send, so a delivery finishing after
// midnight is charged to the day it was allowed on. A send allowed on a day
// that has since been closed is not charged to the new day.
func (b *Budget) Spend(ctx context.Context, allowedAt time.Time) error {
	b.mu.Lock()
	b.rollover(allowedAt)
	if b.day(allowedAt) < b.state.Day {
		b.mu.Unlock()
		return nil
	}
	if b.state.Sent >= b.state.Limit {
		b.mu.Unlock()
		return ErrExhausted
	}
	b.state.Sent++
	snap := b.state
	b.mu.Unlock()

	if b.store != nil {
		return b.store.SaveBudget(ctx, snap)
	}
	return nil
}

// Wait blocks until the next delivery slot. The first call returns at once.
func (b *Budget) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

func (b *Budget) Spacing() time.Duration { return b.spacing }

func (b *Budget) InWindow(now time.Time) bool {
	return b.window.Contains(now.In(b.loc))
}

func (b *Budget) NextWindowOpen(now time.Time) time.Time {
	return b.window.NextOpen(now.In(b.loc))
}

func (b *Budget) Window() Window { return b.window }

func (b *Budget) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Limit - b.state.Sent
}

// Now is the budget's clock, shared with the orchestrator.
func (b *Budget) Now() time.Time { return b.now() }

func (b *Budget) day(t time.Time) string {
	return t.In(b.loc).Format(dayLayout)
}
