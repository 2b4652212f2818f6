package types

import "time"

// OrderStatus is the lifecycle state an order card reported on the page.
type OrderStatus string

const (
	StatusDelivered OrderStatus = "Delivered"
	StatusCancelled OrderStatus = "Cancelled"
	StatusReturned  OrderStatus = "Returned"
)

// Order is one purchase record recovered from an order-history card.
// Orders are only ever constructed by the extractor and never mutated;
// a record with a non-positive amount is never built in the first place.
type Order struct {
	ID          string      `json:"id"`
	DateRaw     string      `json:"date"`
	DateParsed  time.Time   `json:"date_parsed,omitempty"`
	Amount      float64     `json:"amount"`
	ProductName string      `json:"productName"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	Status      OrderStatus `json:"status"`
}

// HasDate reports whether the raw date string parsed into a usable date.
func (o Order) HasDate() bool {
	return !o.DateParsed.IsZero()
}

// Summary holds the headline spending scalars for a filtered order set.
type Summary struct {
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// SeriesPoint is one time-series bucket. Buckets keep first-seen order,
// matching the dashboard's current chart behavior.
type SeriesPoint struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// CategorySlice is one slice of the category breakdown.
type CategorySlice struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// BrandRow is one row of the brand ranking table.
type BrandRow struct {
	Brand   string  `json:"brand"`
	Count   int     `json:"count"`
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"`
}

// AggregationResult is everything the dashboard needs to render one view.
// It is recomputed from scratch on every call, never persisted.
type AggregationResult struct {
	Filtered   []Order         `json:"filteredOrders"`
	Series     []SeriesPoint   `json:"timeSeries"`
	Categories []CategorySlice `json:"categoryTotals"`
	Brands     []BrandRow      `json:"brandTable"`
	Summary    Summary         `json:"summary"`
}

// Config holds the configuration for a scrape run.
type Config struct {
	BaseURL       string // site root used to absolutize next-page links
	StartURL      string // first order-history page
	SessionCookie string // raw Cookie header value for authenticated fetches
	UserAgent     string
	RequestDelay  time.Duration // pause between fetch-mode page loads
	SettleDelay   time.Duration // interactive mode: wait before parsing a page
	ClickWait     time.Duration // interactive mode: wait after clicking next
	MaxRetries    int
	Timeout       time.Duration
	DataDir       string // pebble database directory
}

// DefaultConfig returns the default configuration. The delays mirror the
// pacing the live site tolerates; do not tighten them without checking.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://www.flipkart.com",
		StartURL:     "https://www.flipkart.com/account/orders?link=home_orders",
		UserAgent:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		RequestDelay: 1500 * time.Millisecond,
		SettleDelay:  2 * time.Second,
		ClickWait:    4 * time.Second,
		MaxRetries:   3,
		Timeout:      30 * time.Second,
		DataDir:      "fliplytics.db",
	}
}

// Logger defines the logging interface.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// RunObserver receives the scrape lifecycle events the host transport
// forwards to interested parties (badge, dashboard sync button).
type RunObserver interface {
	ScrapeStarted()
	ScrapeProgress(count, page int)
	ScrapeComplete(total int)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) ScrapeStarted()          {}
func (NopObserver) ScrapeProgress(int, int) {}
func (NopObserver) ScrapeComplete(int)      {}
