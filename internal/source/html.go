package source

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/yourorg/rentradar/internal/canon"
	"github.com/yourorg/rentradar/internal/listing"
)

var (
	reCardID   = regexp.MustCompile(`/properties/(\d+)`)
	rePrice    = regexp.MustCompile(`£\s*([\d,]+(?:\.\d+)?)`)
	reWeekly   = regexp.MustCompile(`(?i)\b(pw|per week|weekly)\b`)
	reBedrooms = regexp.MustCompile(`(?i)(\d+)\s*-?\s*bed`)
	reImgSize  = regexp.MustCompile(`_max_\d+x\d+`)
)

// HTMLSource scrapes property cards from a search results page.
type HTMLSource struct {
	c *client
}

func NewHTMLSource(cfg ClientConfig) *HTMLSource {
	return &HTMLSource{c: newClient(cfg)}
}

func (h *HTMLSource) Fetch(ctx context.Context, area Area) ([]listing.RawListing, error) {
	raw, err := h.c.get(ctx, area.Location, "text/html")
	if err != nil {
		return nil, fmt.Errorf("area %s fetch: %w", area.Code, err)
	}
	out, err := ParseCards(raw, area.Code)
	if err != nil {
		return nil, fmt.Errorf("area %s parse: %w", area.Code, err)
	}
	return out, nil
}

// ParseCards extracts listings from every div[data-test=propertyCard].
func ParseCards(page []byte, areaCode string) ([]listing.RawListing, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var out []listing.RawListing
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && attr(n, "data-test") == "propertyCard" {
			out = append(out, parseCard(n, areaCode))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

func parseCard(card *html.Node, areaCode string) listing.RawListing {
	l := listing.RawListing{Area: areaCode}

	var href, title, price, address, summary string
	find(card, func(n *html.Node) bool {
		switch {
		case n.Data == "a" && href == "" && reCardID.MatchString(attr(n, "href")):
			href = attr(n, "href")
		case n.Data == "h2" && title == "":
			title = text(n)
		case attr(n, "data-test") == "propertyCard-priceValue" && price == "":
			price = text(n)
		case (n.Data == "address" || attr(n, "data-test") == "propertyCard-address") && address == "":
			address = text(n)
		case attr(n, "data-test") == "propertyCard-description" && summary == "":
			summary = text(n)
		case n.Data == "img" && l.Image == "":
			l.Image = upgradeImageURL(attr(n, "src"))
		}
		return false
	})

	if m := reCardID.FindStringSubmatch(href); m != nil {
		l.ID = m[1]
		l.URLPath = href
	}
	if price == "" {
		price = text(card)
	}
	l.RentPCM = parsePrice(price)
	if m := reBedrooms.FindStringSubmatch(title); m != nil {
		l.Bedrooms = atoiOr(m[1], 0)
	}
	l.Category = title
	l.Summary = summary
	if address == "" {
		address = canon.StripTitle(title)
	}
	l.Address = canon.Address(address)
	return l
}

// parsePrice reads the first £ amount and converts weekly prices to monthly.
func parsePrice(s string) int {
	amount, freq := parseDisplayPrice(s)
	return monthlyRent(amount, freq)
}

func parseDisplayPrice(s string) (float64, string) {
	freq := "monthly"
	if reWeekly.MatchString(s) {
		freq = "weekly"
	}
	m := rePrice.FindStringSubmatch(s)
	var num string
	if m != nil {
		num = m[1]
	} else {
		num = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
	if err != nil {
		return 0, freq
	}
	return f, freq
}

func upgradeImageURL(src string) string {
	if src == "" {
		return src
	}
	return reImgSize.ReplaceAllString(src, "_max_656x437")
}

func atoiOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return def
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// find visits element descendants of n depth-first until visit returns true.
func find(n *html.Node, visit func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && visit(c) {
			return true
		}
		if find(c, visit) {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
