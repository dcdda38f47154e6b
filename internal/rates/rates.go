/*
Package rates holds the per-area, per-bedroom market assumptions used to
project short-term-rental income.
*/
package rates

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

const DefaultFeeRate = 0.15

// Fallback is used for areas the table knows nothing about.
var Fallback = Entry{NightlyRate: 100, Occupancy: 0.6, MonthlyBills: 600}

type Entry struct {
	NightlyRate  float64 `json:"nightly_rate"`
	Occupancy    float64 `json:"occupancy"`
	MonthlyBills float64 `json:"monthly_bills"`
}

// Match records which resolution step produced an entry.
type Match string

const (
	MatchExact       Match = "exact"
	MatchAreaDefault Match = "area_default"
	MatchNearest     Match = "nearest_bedrooms"
	MatchGlobal      Match = "global_fallback"
)

type Area struct {
	Default  *Entry        `json:"default,omitempty"`
	Bedrooms map[int]Entry `json:"bedrooms,omitempty"`
	FeeRate  *float64      `json:"fee_rate,omitempty"`
}

// Table is read-only once built.
type Table struct {
	// DefaultFee applies to areas without their own fee_rate. Nil means
	// DefaultFeeRate; an explicit 0 is honoured.
	DefaultFee *float64        `json:"fee_rate,omitempty"`
	Areas      map[string]Area `json:"areas"`
}

// Lookup never fails: an unknown area resolves to Fallback.
func (t *Table) Lookup(area string, bedrooms int) (Entry, Match) {
	a, ok := t.area(area)
	if !ok {
		return Fallback, MatchGlobal
	}
	if bedrooms > 0 {
		if e, ok := a.Bedrooms[bedrooms]; ok {
			return e, MatchExact
		}
	}
	if a.Default != nil {
		return *a.Default, MatchAreaDefault
	}
	if e, ok := nearest(a.Bedrooms, bedrooms); ok {
		return e, MatchNearest
	}
	return Fallback, MatchGlobal
}

// FeeRate returns the booking-platform fee for an area.
func (t *Table) FeeRate(area string) float64 {
	if a, ok := t.area(area); ok && a.FeeRate != nil {
		return *a.FeeRate
	}
	if t != nil && t.DefaultFee != nil {
		return *t.DefaultFee
	}
	return DefaultFeeRate
}

func (t *Table) area(code string) (Area, bool) {
	if t == nil || t.Areas == nil {
		return Area{}, false
	}
	if a, ok := t.Areas[code]; ok {
		return a, true
	}
	a, ok := t.Areas[strings.ToUpper(strings.TrimSpace(code))]
	return a, ok
}

// nearest picks the closest configured bedroom count; ties go to the smaller.
func nearest(m map[int]Entry, bedrooms int) (Entry, bool) {
	if len(m) == 0 {
		return Entry{}, false
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if abs(k-bedrooms) < abs(best-bedrooms) {
			best = k
		}
	}
	return m[best], true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Fee returns a pointer for use in DefaultFee or Area.FeeRate.
func Fee(v float64) *float64 { return &v }

func entry(rate, occ float64) *Entry {
	return &Entry{NightlyRate: rate, Occupancy: occ, MonthlyBills: 600}
}

// DefaultTable is the built-in table for the seaside and North Wales areas
// the tool was first run against.
func DefaultTable() *Table {
	return &Table{
		DefaultFee: Fee(DefaultFeeRate),
		Areas: map[string]Area{
			"FY1":  {Default: entry(125, 0.60)},
			"FY2":  {Default: entry(125, 0.60)},
			"PL1":  {Default: entry(130, 0.68)},
			"PL4":  {Default: entry(120, 0.65)},
			"LL30": {Default: entry(100, 0.60)},
			"LL31": {Default: entry(100, 0.60)},
		},
	}
}

// Load reads a JSON rate table. Area codes are upper-cased.
func Load(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rates: read %s: %w", path, err)
	}
	var t Table
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("rates: parse %s: %w", path, err)
	}
	if err := t.normalize(); err != nil {
		return nil, fmt.Errorf("rates: %s: %w", path, err)
	}
	return &t, nil
}

func (t *Table) normalize() error {
	if err := checkFee(t.DefaultFee); err != nil {
		return err
	}
	areas := make(map[string]Area, len(t.Areas))
	for code, a := range t.Areas {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			return fmt.Errorf("empty area code")
		}
		if a.Default != nil {
			if err := a.Default.check(); err != nil {
				return fmt.Errorf("area %s default: %w", code, err)
			}
		}
		if err := checkFee(a.FeeRate); err != nil {
			return fmt.Errorf("area %s: %w", code, err)
		}
		for beds, e := range a.Bedrooms {
			if err := e.check(); err != nil {
				return fmt.Errorf("area %s %d bed: %w", code, beds, err)
			}
		}
		areas[code] = a
	}
	t.Areas = areas
	return nil
}

func (e Entry) check() error {
	if e.NightlyRate < 0 {
		return fmt.Errorf("negative nightly rate %v", e.NightlyRate)
	}
	if e.Occupancy < 0 || e.Occupancy > 1 {
		return fmt.Errorf("occupancy %v outside [0,1]", e.Occupancy)
	}
	return nil
}

func checkFee(fee *float64) error {
	if fee != nil && (*fee < 0 || *fee >= 1) {
		return fmt.Errorf("fee rate %v outside [0,1)", *fee)
	}
	return nil
}
