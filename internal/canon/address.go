package canon

import (
	"regexp"
	"strings"
)

var (
	reSpace = regexp.MustCompile(`\s+`)
	// full postcode ("FY1 4RP") or bare outcode ("FY1") at a word boundary
	rePostcode   = regexp.MustCompile(`(?i)\b([A-Z]{1,2}[0-9][A-Z0-9]?)(?:\s*[0-9][A-Z]{2})?\b`)
	reLeadingBed = regexp.MustCompile(`(?i)^\s*\d+\s*-?\s*bed(room)?s?\s+(flat|house|apartment|bungalow|maisonette|cottage|studio)?\s*(to rent|for rent)?\s*(in\s+|,\s*)?`)
)

// Address trims and collapses whitespace and stray separators so the same
// listing reads the same across sources.
func Address(s string) string {
	s = reSpace.ReplaceAllString(strings.TrimSpace(s), " ")
	s = strings.ReplaceAll(s, " ,", ",")
	s = strings.Trim(s, " ,-")
	return s
}

// StripTitle removes a leading "2 bedroom flat to rent in" style prefix that
// card titles carry, leaving the street part.
func StripTitle(s string) string {
	out := reLeadingBed.ReplaceAllString(s, "")
	if strings.TrimSpace(out) == "" {
		return Address(s)
	}
	return Address(out)
}

// Outcode returns the upper-cased postcode district found in an address, or
// "" when there is none. When several match, the last one wins since
// postcodes trail the address.
func Outcode(address string) string {
	m := rePostcode.FindAllStringSubmatch(address, -1)
	if len(m) == 0 {
		return ""
	}
	return strings.ToUpper(m[len(m)-1][1])
}
