package report

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/rentradar/internal/events"
	"github.com/yourorg/rentradar/internal/logger"
)

type OutcomeStore interface {
	RecordOutcome(ctx context.Context, o events.LeadOutcome) error
}

// Recorder consumes lead outcomes, writes them to Store when one is set and
// keeps the most recent ones in memory for the status API.
type Recorder struct {
	Pub    events.Publisher
	Store  OutcomeStore
	Logger *logger.Logger
	Keep   int

	mu     sync.Mutex
	recent []events.LeadOutcome
	counts map[events.Status]int
}

func (r *Recorder) Run(ctx context.Context) {
	sub := r.Pub.SubscribeLeadOutcome()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sub:
			r.record(ctx, evt)
		}
	}
}

// Flush records whatever is already buffered and returns without waiting for
// more.
func (r *Recorder) Flush(ctx context.Context) int {
	sub := r.Pub.SubscribeLeadOutcome()
	n := 0
	for {
		select {
		case evt := <-sub:
			r.record(ctx, evt)
			n++
		default:
			return n
		}
	}
}

func (r *Recorder) record(ctx context.Context, evt events.LeadOutcome) {
	r.remember(evt)
	if r.Store == nil {
		r.log().Debug("outcome: %s id=%s area=%s rag=%s score=%.1f at=%s",
			evt.Status, evt.ID, evt.Area, evt.Tier, evt.Score, evt.At.Format(time.RFC3339))
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := r.Store.RecordOutcome(wctx, evt); err != nil {
		r.log().Warn("outcome write failed for %s: %v", evt.ID, err)
	}
}

func (r *Recorder) remember(evt events.LeadOutcome) {
	keep := r.Keep
	if keep <= 0 {
		keep = 200
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[events.Status]int)
	}
	r.counts[evt.Status]++
	r.recent = append(r.recent, evt)
	if len(r.recent) > keep {
		r.recent = append(r.recent[:0:0], r.recent[len(r.recent)-keep:]...)
	}
}

// Recent returns up to limit outcomes, newest first.
func (r *Recorder) Recent(limit int) []events.LeadOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.recent) {
		limit = len(r.recent)
	}
	out := make([]events.LeadOutcome, 0, limit)
	for i := len(r.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.recent[i])
	}
	return out
}

// Counts returns totals per status since start.
func (r *Recorder) Counts() map[events.Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[events.Status]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

func (r *Recorder) log() *logger.Logger {
	if r.Logger == nil {
		return logger.Discard()
	}
	return r.Logger
}
