// Package filter drops shared and room-let accommodation before scoring.
package filter

import (
	"strings"

	"github.com/yourorg/rentradar/internal/listing"
)

var DefaultKeywords = []string{"HMO", "House share", "Flat share", "Room to rent", "Shared accommodation"}

// Filter is a static, case-insensitive substring blocklist.
type Filter struct {
	keywords []string
}

func New(keywords []string) *Filter {
	f := &Filter{}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			f.keywords = append(f.keywords, kw)
		}
	}
	return f
}

// IsDisallowed reports whether any keyword appears in the address, summary or
// category text.
func (f *Filter) IsDisallowed(l listing.RawListing) bool {
	_, ok := f.Match(l)
	return ok
}

// Match returns the first keyword found.
func (f *Filter) Match(l listing.RawListing) (string, bool) {
	fields := []string{
		strings.ToLower(l.Address),
		strings.ToLower(l.Summary),
		strings.ToLower(l.Category),
	}
	for _, kw := range f.keywords {
		for _, text := range fields {
			if strings.Contains(text, kw) {
				return kw, true
			}
		}
	}
	return "", false
}

func (f *Filter) Keywords() []string {
	return append([]string(nil), f.keywords...)
}
