package source

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/yourorg/rentradar/internal/canon"
	"github.com/yourorg/rentradar/internal/listing"
)

// FeedClient reads a JSON search feed ({"properties": [...]}) per area.
type FeedClient struct {
	c *client
}

func NewFeedClient(cfg ClientConfig) *FeedClient {
	return &FeedClient{c: newClient(cfg)}
}

func (f *FeedClient) Fetch(ctx context.Context, area Area) ([]listing.RawListing, error) {
	raw, err := f.c.get(ctx, area.Location, "application/json")
	if err != nil {
		return nil, fmt.Errorf("area %s fetch: %w", area.Code, err)
	}
	out, err := MapFeed(raw, area.Code)
	if err != nil {
		return nil, fmt.Errorf("area %s map: %w", area.Code, err)
	}
	return out, nil
}

// stringNumber accepts string or number JSON and stores as string
type stringNumber string

func (s *stringNumber) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = stringNumber(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = stringNumber(num.String())
	return nil
}

// feedPrice is either {"amount": 850, "frequency": "monthly"} or a display
// string like "£850 pcm".
type feedPrice struct {
	Amount    float64
	Frequency string
}

func (p *feedPrice) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		p.Amount, p.Frequency = parseDisplayPrice(str)
		return nil
	}
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Amount    stringNumber `json:"amount"`
			Frequency string       `json:"frequency"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		p.Amount, _ = parseDisplayPrice(string(obj.Amount))
		p.Frequency = obj.Frequency
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	p.Amount, p.Frequency = n, "monthly"
	return nil
}

// MapFeed maps a feed payload to raw listings. Entries that fail to map keep
// whatever fields were present; validation happens in the pipeline.
func MapFeed(raw []byte, areaCode string) ([]listing.RawListing, error) {
	type fProperty struct {
		ID              stringNumber `json:"id"`
		DisplayAddress  string       `json:"displayAddress"`
		Bedrooms        stringNumber `json:"bedrooms"`
		Bathrooms       stringNumber `json:"bathrooms"`
		Price           feedPrice    `json:"price"`
		PropertySubType string       `json:"propertySubType"`
		Summary         string       `json:"summary"`
		PropertyURL     string       `json:"propertyUrl"`
		Images          struct {
			Main string `json:"mainImageSrc"`
		} `json:"propertyImages"`
	}
	var root struct {
		Properties []fProperty `json:"properties"`
	}
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, err
	}

	out := make([]listing.RawListing, 0, len(root.Properties))
	for _, p := range root.Properties {
		out = append(out, listing.RawListing{
			ID:        strings.TrimSpace(string(p.ID)),
			Area:      areaCode,
			Address:   canon.Address(p.DisplayAddress),
			Bedrooms:  atoiOr(string(p.Bedrooms), 0),
			Bathrooms: atoiOr(string(p.Bathrooms), 0),
			RentPCM:   monthlyRent(p.Price.Amount, p.Price.Frequency),
			Category:  p.PropertySubType,
			Summary:   p.Summary,
			URLPath:   p.PropertyURL,
			Image:     p.Images.Main,
		})
	}
	return out, nil
}

// monthlyRent converts weekly prices at 52 weeks / 12 months and truncates.
func monthlyRent(amount float64, frequency string) int {
	switch strings.ToLower(strings.TrimSpace(frequency)) {
	case "weekly", "pw", "per week":
		return int(math.Trunc(amount * 52 / 12))
	default:
		return int(math.Trunc(amount))
	}
}
