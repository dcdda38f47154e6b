package events

import (
	"context"
	"time"

	"github.com/yourorg/rentradar/internal/listing"
)

// Status is what happened to a listing in one cycle.
type Status string

const (
	StatusDelivered      Status = "delivered"
	StatusDeliveryFailed Status = "delivery_failed"
	StatusOverBudget     Status = "over_budget"
	StatusDuplicate      Status = "duplicate"
	StatusDisallowed     Status = "disallowed"
	StatusMalformed      Status = "malformed"
)

type LeadOutcome struct {
	ID       string       `json:"id"`
	Area     string       `json:"area"`
	Status   Status       `json:"status"`
	Tier     listing.Tier `json:"rag,omitempty"`
	Score    float64      `json:"score10"`
	Profit70 int          `json:"profit_70"`
	Reason   string       `json:"reason,omitempty"`
	At       time.Time    `json:"at"`
}

type Publisher interface {
	PublishLeadOutcome(ctx context.Context, evt LeadOutcome)
	SubscribeLeadOutcome() <-chan LeadOutcome
}

type inMemory struct{ ch chan LeadOutcome }

// NewInMemory drops events when the buffer is full rather than blocking the
// pipeline.
func NewInMemory(buffer int) Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &inMemory{ch: make(chan LeadOutcome, buffer)}
}

func (m *inMemory) PublishLeadOutcome(_ context.Context, evt LeadOutcome) {
	select {
	case m.ch <- evt:
	default:
	}
}

func (m *inMemory) SubscribeLeadOutcome() <-chan LeadOutcome { return m.ch }
