// Package listing holds the records that flow through the lead pipeline.
package listing

import (
	"errors"
	"strings"
	"time"
)

// RawListing is a rental listing as produced by a source, before any scoring.
type RawListing struct {
	ID        string `json:"id"`
	Area      string `json:"area"`
	Address   string `json:"address"`
	Bedrooms  int    `json:"bedrooms"` // 0 when the source did not state it
	Bathrooms int    `json:"bathrooms,omitempty"`
	RentPCM   int    `json:"rent_pcm"`
	Category  string `json:"category,omitempty"`
	Summary   string `json:"summary,omitempty"`
	URLPath   string `json:"url_path,omitempty"`
	Image     string `json:"image,omitempty"`
}

var (
	ErrMissingID      = errors.New("listing: missing id")
	ErrMissingAddress = errors.New("listing: missing address")
	ErrMissingRent    = errors.New("listing: missing rent")
)

// Validate reports whether the listing carries the fields scoring depends on.
func (r RawListing) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(r.Address) == "" {
		return ErrMissingAddress
	}
	if r.RentPCM <= 0 {
		return ErrMissingRent
	}
	return nil
}

type Tier string

const (
	TierGreen Tier = "green"
	TierAmber Tier = "amber"
	TierRed   Tier = "red"
)

// Emoji is the traffic-light glyph used in text notifications.
func (t Tier) Emoji() string {
	switch t {
	case TierGreen:
		return "🟢"
	case TierAmber:
		return "🟠"
	default:
		return "🔴"
	}
}

// EvaluatedListing is a RawListing plus its profit projection and rating.
// Values are never modified after the evaluator builds them.
type EvaluatedListing struct {
	RawListing

	NightlyRate      float64   `json:"night_rate"`
	OccupancyPercent int       `json:"occ_rate"`
	Bills            float64   `json:"bills"`
	Profit50         int       `json:"profit_50"`
	Profit70         int       `json:"profit_70"`
	Profit100        int       `json:"profit_100"`
	Target           int       `json:"target_profit_70"`
	Score            float64   `json:"score10"`
	Tier             Tier      `json:"rag"`
	DeliveryURL      string    `json:"url"`
	RateMatch        string    `json:"rate_match"`
	EvaluatedAt      time.Time `json:"evaluated_at"`
}
