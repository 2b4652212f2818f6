package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"fliplytics/markup"
)

// The order-history markup changes without notice, so cards are located by
// two independent heuristics. The anchor strategy is authoritative; the
// price-text fallback only runs when the anchor strategy finds nothing at
// all on the page.

const (
	orderLinkSelector = `a[href*="/order_details"]`
	currencyGlyph     = "₹"
)

var statusPhrasePattern = regexp.MustCompile(`(Delivered|Cancelled|Returned|Ordered) on`)

// Card is one markup region judged to represent a single order, paired
// with the order-detail link that located it. Link is nil for cards found
// by the price-text fallback.
type Card struct {
	Node markup.Node
	Link markup.Node
}

// LocateCards finds all order cards in the document.
func LocateCards(doc *markup.Document) []Card {
	cards := locateByAnchors(doc)
	if len(cards) == 0 {
		cards = locateByPriceText(doc)
	}
	return cards
}

// locateByAnchors climbs from each order-detail link to the row-like
// ancestor that holds the whole card. Several links can resolve to the
// same card, so cards are deduplicated by node identity, not content.
func locateByAnchors(doc *markup.Document) []Card {
	var cards []Card
	seen := make(map[*html.Node]struct{})

	for _, link := range doc.QueryAll(orderLinkSelector) {
		card, ok := link.Closest(`div[class*="row"]`)
		if !ok {
			card, ok = link.Closest("div._1AtVbE")
		}
		if !ok {
			card, ok = link.Closest("div")
		}
		if !ok {
			continue
		}
		if _, dup := seen[card.Raw()]; dup {
			continue
		}
		// Guard against climbing past the card to an unrelated container.
		if !card.Contains(link) {
			continue
		}
		seen[card.Raw()] = struct{}{}
		cards = append(cards, Card{Node: card, Link: link})
	}
	return cards
}

// locateByPriceText scans leaf containers whose text carries the currency
// glyph and climbs to a row-like ancestor. Only ancestors whose full text
// mentions an order-status date phrase are accepted, which keeps price
// tags elsewhere on the page (recommendations, banners) out.
func locateByPriceText(doc *markup.Document) []Card {
	var cards []Card
	seen := make(map[*html.Node]struct{})

	for _, el := range doc.QueryAll("div, span") {
		if len(el.Children()) != 0 {
			continue
		}
		if !strings.Contains(el.Text(), currencyGlyph) {
			continue
		}
		card, ok := el.Closest(`div[class*="row"]`)
		if !ok {
			continue
		}
		if _, dup := seen[card.Raw()]; dup {
			continue
		}
		if !statusPhrasePattern.MatchString(card.Text()) {
			continue
		}
		seen[card.Raw()] = struct{}{}
		cards = append(cards, Card{Node: card})
	}
	return cards
}
