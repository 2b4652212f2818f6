package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fliplytics/internal/types"
	"fliplytics/markup"
)

const unknownProduct = "Unknown Product"

var (
	pricePattern = regexp.MustCompile(`₹[\d,]+`)
	datePattern  = regexp.MustCompile(`[A-Za-z]{3} \d{1,2}(?:, \d{4})?`)

	// Status-keyed date phrases. The targeted phrase wins over any other
	// date-looking text on the card.
	statusDatePatterns = map[types.OrderStatus]*regexp.Regexp{
		types.StatusDelivered: regexp.MustCompile(`Delivered on ([A-Za-z]{3} \d{1,2}(?:, \d{4})?)`),
		types.StatusCancelled: regexp.MustCompile(`Cancelled on ([A-Za-z]{3} \d{1,2}(?:, \d{4})?)`),
		types.StatusReturned:  regexp.MustCompile(`Returned on ([A-Za-z]{3} \d{1,2}(?:, \d{4})?)`),
	}
)

// Extractor turns located cards into Order records.
type Extractor struct {
	logger types.Logger
	now    func() time.Time
}

func NewExtractor(logger types.Logger) *Extractor {
	return &Extractor{logger: logger, now: time.Now}
}

// OrdersFromDocument locates all cards and extracts an Order from each.
// Cards that fail extraction are skipped silently; siblings are unaffected.
func (e *Extractor) OrdersFromDocument(doc *markup.Document) []types.Order {
	var orders []types.Order
	for _, card := range LocateCards(doc) {
		if order, ok := e.OrderFromCard(card); ok {
			orders = append(orders, order)
		}
	}
	return orders
}

// OrderFromCard extracts a validated Order from one card, or reports
// failure. Partial records are never produced: a card with no parseable
// positive amount is rejected outright.
func (e *Extractor) OrderFromCard(card Card) (order types.Order, ok bool) {
	// A malformed card must only cost us that card.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debugf("Skipping card after extraction panic: %v", r)
			ok = false
		}
	}()

	text := card.Node.Text()

	amount, ok := parseAmount(text)
	if !ok {
		e.logger.Debugf("Skipping card without a positive amount")
		return types.Order{}, false
	}

	status := classifyStatus(text)
	dateRaw, dateParsed := e.extractDate(text, status)

	return types.Order{
		ID:          uuid.NewString(),
		DateRaw:     dateRaw,
		DateParsed:  dateParsed,
		Amount:      amount,
		ProductName: extractName(card),
		ImageURL:    extractImage(card.Node),
		Status:      status,
	}, true
}

// parseAmount takes the first currency-prefixed digit group in the card
// text as the order total. The first price on a card is the total; later
// ones are per-item or strikethrough prices.
func parseAmount(text string) (float64, bool) {
	match := pricePattern.FindString(text)
	if match == "" {
		return 0, false
	}
	cleaned := strings.NewReplacer("₹", "", ",", "").Replace(match)
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}

// classifyStatus is an ordered containment check; Cancelled beats Returned
// and Delivered is the default.
func classifyStatus(text string) types.OrderStatus {
	switch {
	case strings.Contains(text, "Cancelled"):
		return types.StatusCancelled
	case strings.Contains(text, "Returned"), strings.Contains(text, "Refund"):
		return types.StatusReturned
	default:
		return types.StatusDelivered
	}
}

// extractDate prefers the date phrase keyed to the card's status, then any
// generic date-shaped text, then the current date. The last resort keeps
// the record usable but its date is not authoritative.
func (e *Extractor) extractDate(text string, status types.OrderStatus) (string, time.Time) {
	if m := statusDatePatterns[status].FindStringSubmatch(text); m != nil {
		return m[1], parseOrderDate(m[1], e.now())
	}
	if m := datePattern.FindString(text); m != "" {
		return m, parseOrderDate(m, e.now())
	}
	now := e.now()
	return now.Format("Mon Jan 02 2006"), now
}

// parseOrderDate best-effort parses a scraped date string. Year-less dates
// are pinned to the current year. A zero time marks an unparseable date.
func parseOrderDate(raw string, now time.Time) time.Time {
	if t, err := time.Parse("Jan 2, 2006", raw); err == nil {
		return t
	}
	if t, err := time.Parse("Jan 2", raw); err == nil {
		return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	if t, err := time.Parse("Mon Jan 02 2006", raw); err == nil {
		return t
	}
	return time.Time{}
}

// extractName prefers the originating link's text, then a nested
// order-detail link, then the first substantial line of card text.
func extractName(card Card) string {
	name := unknownProduct

	switch {
	case card.Link != nil:
		name = strings.TrimSpace(card.Link.Text())
	default:
		if links := card.Node.QueryAll(orderLinkSelector); len(links) > 0 {
			name = strings.TrimSpace(links[0].Text())
		} else {
			for _, line := range strings.Split(card.Node.Text(), "\n") {
				if line = strings.TrimSpace(line); len(line) > 5 {
					name = line
					break
				}
			}
		}
	}

	if name == "" {
		return unknownProduct
	}
	// Product titles run over several lines on some layouts; the first
	// line is the title.
	name, _, _ = strings.Cut(name, "\n")
	return name
}

func extractImage(card markup.Node) string {
	imgs := card.QueryAll("img")
	if len(imgs) == 0 {
		return ""
	}
	src, _ := imgs[0].Attr("src")
	return src
}
