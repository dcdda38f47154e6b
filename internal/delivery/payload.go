package delivery

import (
	"fmt"
	"strings"

	"github.com/yourorg/rentradar/internal/listing"
)

type Mode string

const (
	ModeJSON Mode = "json"
	ModeText Mode = "text"
)

// Payload is the structured webhook body.
type Payload struct {
	ID             string  `json:"id"`
	Area           string  `json:"area"`
	Address        string  `json:"address"`
	RentPCM        int     `json:"rent_pcm"`
	Bedrooms       int     `json:"bedrooms"`
	NightRate      float64 `json:"night_rate"`
	OccRate        int     `json:"occ_rate"`
	Bills          float64 `json:"bills"`
	Profit50       int     `json:"profit_50"`
	Profit70       int     `json:"profit_70"`
	Profit100      int     `json:"profit_100"`
	TargetProfit70 int     `json:"target_profit_70"`
	Score10        float64 `json:"score10"`
	RAG            string  `json:"rag"`
	URL            string  `json:"url"`
}

func NewPayload(l listing.EvaluatedListing) Payload {
	return Payload{
		ID:             l.ID,
		Area:           l.Area,
		Address:        l.Address,
		RentPCM:        l.RentPCM,
		Bedrooms:       l.Bedrooms,
		NightRate:      l.NightlyRate,
		OccRate:        l.OccupancyPercent,
		Bills:          l.Bills,
		Profit50:       l.Profit50,
		Profit70:       l.Profit70,
		Profit100:      l.Profit100,
		TargetProfit70: l.Target,
		Score10:        l.Score,
		RAG:            string(l.Tier),
		URL:            l.DeliveryURL,
	}
}

// TextMessage is the body used when the sink expects one formatted field.
type TextMessage struct {
	Message string `json:"message"`
}

// Subject is a one-line summary, used for email subjects.
func Subject(l listing.EvaluatedListing) string {
	return fmt.Sprintf("%s %s lead: £%d/mo at 70%% - %s", l.Tier.Emoji(), l.Area, l.Profit70, l.Address)
}

// Format renders a lead for chat or email.
func Format(l listing.EvaluatedListing) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s New STR lead in %s\n", l.Tier.Emoji(), l.Area)
	fmt.Fprintf(&sb, "%s\n", l.Address)
	if l.Bedrooms > 0 {
		fmt.Fprintf(&sb, "%d bed · £%d pcm\n", l.Bedrooms, l.RentPCM)
	} else {
		fmt.Fprintf(&sb, "£%d pcm\n", l.RentPCM)
	}
	fmt.Fprintf(&sb, "Nightly £%s · occupancy %d%% · bills £%s\n", money(l.NightlyRate), l.OccupancyPercent, money(l.Bills))
	fmt.Fprintf(&sb, "Profit @50%%: £%d | @70%%: £%d | @100%%: £%d\n", l.Profit50, l.Profit70, l.Profit100)
	fmt.Fprintf(&sb, "Target @70%%: £%d · score %.1f/10 (%s)\n", l.Target, l.Score, l.Tier)
	sb.WriteString(l.DeliveryURL)
	return sb.String()
}

func money(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
