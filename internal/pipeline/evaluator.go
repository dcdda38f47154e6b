package pipeline

import (
	"math"
	"strings"
	"time"

	"github.com/yourorg/rentradar/internal/classify"
	"github.com/yourorg/rentradar/internal/listing"
	"github.com/yourorg/rentradar/internal/profit"
	"github.com/yourorg/rentradar/internal/rates"
)

const DefaultBaseURL = "https://www.rightmove.co.uk"

// Evaluator turns a validated RawListing into an EvaluatedListing. It holds
// no mutable state.
type Evaluator struct {
	Rates   *rates.Table
	Target  int
	BaseURL string
	Now     func() time.Time
}

func (e *Evaluator) Evaluate(raw listing.RawListing) listing.EvaluatedListing {
	entry, match := e.Rates.Lookup(raw.Area, raw.Bedrooms)
	fee := e.Rates.FeeRate(raw.Area)
	sc := profit.Project(raw.RentPCM, entry.MonthlyBills, entry.NightlyRate, fee)
	score, tier := classify.Classify(sc.At70, e.Target)

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return listing.EvaluatedListing{
		RawListing:       raw,
		NightlyRate:      entry.NightlyRate,
		OccupancyPercent: int(math.Round(entry.Occupancy * 100)),
		Bills:            entry.MonthlyBills,
		Profit50:         sc.At50,
		Profit70:         sc.At70,
		Profit100:        sc.At100,
		Target:           e.Target,
		Score:            score,
		Tier:             tier,
		DeliveryURL:      e.deliveryURL(raw),
		RateMatch:        string(match),
		EvaluatedAt:      now(),
	}
}

// deliveryURL keeps absolute links, joins relative ones onto BaseURL and
// otherwise builds /properties/<id>.
func (e *Evaluator) deliveryURL(raw listing.RawListing) string {
	p := strings.TrimSpace(raw.URLPath)
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	base := strings.TrimRight(e.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if p != "" {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		return base + p
	}
	return base + "/properties/" + raw.ID
}
