package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/yourorg/rentradar/internal/budget"
	"github.com/yourorg/rentradar/internal/delivery"
	"github.com/yourorg/rentradar/internal/events"
	"github.com/yourorg/rentradar/internal/filter"
	"github.com/yourorg/rentradar/internal/ledger"
	"github.com/yourorg/rentradar/internal/listing"
	"github.com/yourorg/rentradar/internal/logger"
	"github.com/yourorg/rentradar/internal/source"
)

var ErrPanic = errors.New("pipeline: cycle panicked")

type Config struct {
	Areas          []source.Area
	Interval       time.Duration
	Jitter         time.Duration
	RecoveryDelay  time.Duration
	RequestTimeout time.Duration
}

// AreaStats counts what happened to each listing fetched for one area.
type AreaStats struct {
	Area       string
	Found      int
	Sent       int
	Failed     int
	Duplicates int
	Disallowed int
	Malformed  int
	OverBudget int
	FetchErr   error
}

func (s AreaStats) String() string {
	return fmt.Sprintf("%s: Found %d, Sent %d, Failed %d, Skipped duplicates %d, Skipped keywords %d, Malformed %d, Over budget %d",
		s.Area, s.Found, s.Sent, s.Failed, s.Duplicates, s.Disallowed, s.Malformed, s.OverBudget)
}

// Orchestrator runs the fetch, filter, dedup, evaluate, deliver loop. It is
// driven from a single goroutine.
type Orchestrator struct {
	Source    source.Source
	Filter    *filter.Filter
	Ledger    ledger.Ledger
	Budget    *budget.Budget
	Sink      delivery.Sink
	Evaluator *Evaluator
	Publisher events.Publisher
	Logger    *logger.Logger
	Config    Config

	sleep  func(context.Context, time.Duration) error
	jitter func(time.Duration) time.Duration
}

func (o *Orchestrator) validate() error {
	if o == nil {
		return errors.New("nil orchestrator")
	}
	if o.Source == nil {
		return errors.New("orchestrator missing source")
	}
	if o.Ledger == nil {
		return errors.New("orchestrator missing ledger")
	}
	if o.Budget == nil {
		return errors.New("orchestrator missing budget")
	}
	if o.Sink == nil {
		return errors.New("orchestrator missing delivery sink")
	}
	if o.Evaluator == nil {
		return errors.New("orchestrator missing evaluator")
	}
	if len(o.Config.Areas) == 0 {
		return errors.New("orchestrator requires at least one area")
	}
	if o.Filter == nil {
		o.Filter = filter.New(filter.DefaultKeywords)
	}
	if o.Logger == nil {
		o.Logger = logger.New(logger.LevelInfo)
	}
	if o.Config.Interval <= 0 {
		o.Config.Interval = time.Hour
	}
	if o.Config.RecoveryDelay <= 0 {
		o.Config.RecoveryDelay = time.Minute
	}
	if o.Config.RequestTimeout <= 0 {
		o.Config.RequestTimeout = 15 * time.Second
	}
	if o.sleep == nil {
		o.sleep = sleepCtx
	}
	if o.jitter == nil {
		o.jitter = randomJitter
	}
	return nil
}

// Run repeats RunOnce until ctx is cancelled. Failed cycles are followed by
// RecoveryDelay; outside the active window it waits for the window to open,
// checking back at least every Interval.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.validate(); err != nil {
		return err
	}
	o.Logger.Info("rentradar starting: %d area(s), interval %s, window %s, limit %d/day",
		len(o.Config.Areas), o.Config.Interval, o.Budget.Window(), o.Budget.Snapshot().Limit)

	for {
		if ctx.Err() != nil {
			return stopErr(ctx)
		}

		now := o.Budget.Now()
		if !o.Budget.InWindow(now) {
			wait := o.Budget.NextWindowOpen(now).Sub(now)
			if wait > o.Config.Interval {
				wait = o.Config.Interval
			}
			o.Logger.Debug("outside active window %s, sleeping %s", o.Budget.Window(), wait)
			if err := o.sleep(ctx, wait); err != nil {
				return stopErr(ctx)
			}
			continue
		}

		delay := o.Config.Interval + o.jitter(o.Config.Jitter)
		if _, err := o.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return stopErr(ctx)
			}
			o.Logger.Error("cycle aborted: %v", err)
			delay = o.Config.RecoveryDelay
		}
		o.Logger.Debug("next cycle in %s", delay)
		if err := o.sleep(ctx, delay); err != nil {
			return stopErr(ctx)
		}
	}
}

func (o *Orchestrator) cycle(ctx context.Context) (stats []AreaStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return o.RunOnce(ctx)
}

// RunOnce processes every configured area once, in order. Fetch failures
// only skip their area; a ledger or budget backend error aborts the cycle.
func (o *Orchestrator) RunOnce(ctx context.Context) ([]AreaStats, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.Budget.Rollover(o.Budget.Now()) {
		o.Logger.Info("new day %s: budget reset", o.Budget.Snapshot().Day)
	}

	out := make([]AreaStats, 0, len(o.Config.Areas))
	for _, area := range o.Config.Areas {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		st, err := o.runArea(ctx, area)
		out = append(out, st)
		if err != nil {
			return out, fmt.Errorf("area %s: %w", area.Code, err)
		}
	}
	return out, nil
}

func (o *Orchestrator) runArea(ctx context.Context, area source.Area) (AreaStats, error) {
	st := AreaStats{Area: area.Code}
	o.Logger.Info("searching %s", area.Code)

	raws, err := o.fetch(ctx, area)
	if err != nil {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		st.FetchErr = err
		o.Logger.Warn("skipping %s this cycle: %v", area.Code, err)
		return st, nil
	}
	if len(raws) == 0 {
		o.Logger.Warn("no properties found for %s", area.Code)
	}

	for _, raw := range raws {
		st.Found++
		if raw.Area == "" {
			raw.Area = area.Code
		}
		if err := o.process(ctx, raw, &st); err != nil {
			return st, err
		}
	}
	o.Logger.Info("%s", st)
	return st, nil
}

func (o *Orchestrator) fetch(ctx context.Context, area source.Area) ([]listing.RawListing, error) {
	ctx, cancel := context.WithTimeout(ctx, o.Config.RequestTimeout)
	defer cancel()
	return o.Source.Fetch(ctx, area)
}

func (o *Orchestrator) process(ctx context.Context, raw listing.RawListing, st *AreaStats) error {
	if err := raw.Validate(); err != nil {
		st.Malformed++
		o.Logger.Debug("malformed listing %q in %s: %v", raw.ID, raw.Area, err)
		o.publish(ctx, raw, nil, events.StatusMalformed, err.Error())
		return nil
	}
	if kw, bad := o.Filter.Match(raw); bad {
		st.Disallowed++
		o.publish(ctx, raw, nil, events.StatusDisallowed, "keyword: "+kw)
		return nil
	}

	seen, err := o.Ledger.Seen(ctx, raw.ID)
	if err != nil {
		return fmt.Errorf("ledger lookup %s: %w", raw.ID, err)
	}
	if seen {
		st.Duplicates++
		o.publish(ctx, raw, nil, events.StatusDuplicate, "")
		return nil
	}
	if err := o.Ledger.MarkSeen(ctx, raw.ID); err != nil {
		return fmt.Errorf("ledger mark %s: %w", raw.ID, err)
	}

	lead := o.Evaluator.Evaluate(raw)
	allowedAt := o.Budget.Now()
	if !o.Budget.Allow(allowedAt) {
		st.OverBudget++
		o.Logger.Debug("daily limit reached, dropping %s (%s %.1f)", lead.ID, lead.Tier, lead.Score)
		o.publish(ctx, raw, &lead, events.StatusOverBudget, "")
		return nil
	}
	if err := o.Budget.Wait(ctx); err != nil {
		return err
	}

	if err := o.Sink.Deliver(ctx, lead); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		st.Failed++
		o.Logger.Error("delivery failed for %s: %v", lead.ID, err)
		o.publish(ctx, raw, &lead, events.StatusDeliveryFailed, err.Error())
		return nil
	}
	if err := o.Budget.Spend(ctx, allowedAt); err != nil && !errors.Is(err, budget.ErrExhausted) {
		return fmt.Errorf("budget spend: %w", err)
	}
	st.Sent++
	o.Logger.Info("sent %s %s %s score %.1f profit_70 %d", lead.Tier.Emoji(), lead.ID, lead.Address, lead.Score, lead.Profit70)
	o.publish(ctx, raw, &lead, events.StatusDelivered, "")
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, raw listing.RawListing, lead *listing.EvaluatedListing, status events.Status, reason string) {
	if o.Publisher == nil {
		return
	}
	evt := events.LeadOutcome{
		ID:     raw.ID,
		Area:   raw.Area,
		Status: status,
		Reason: reason,
		At:     o.Budget.Now(),
	}
	if lead != nil {
		evt.Tier = lead.Tier
		evt.Score = lead.Score
		evt.Profit70 = lead.Profit70
	}
	o.Publisher.PublishLeadOutcome(ctx, evt)
}

func stopErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
