package paginate

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"fliplytics/extract"
	"fliplytics/internal/types"
	"fliplytics/markup"
	"fliplytics/store"
)

// Fetcher retrieves raw order-history markup over an authenticated
// session. Implementations categorize failures: *types.AuthRequiredError
// when the session is logged out, *types.NetworkError otherwise.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// FetchRunner paginates by following next-page links through a Fetcher,
// parsing each response into an offline document tree. It is the
// background sync path: no rendered page is required.
type FetchRunner struct {
	cfg       *types.Config
	fetcher   Fetcher
	orders    store.OrderStore
	observer  types.RunObserver
	logger    types.Logger
	extractor *extract.Extractor
}

func NewFetchRunner(cfg *types.Config, fetcher Fetcher, orders store.OrderStore, observer types.RunObserver, logger types.Logger) *FetchRunner {
	if observer == nil {
		observer = types.NopObserver{}
	}
	return &FetchRunner{
		cfg:       cfg,
		fetcher:   fetcher,
		orders:    orders,
		observer:  observer,
		logger:    logger,
		extractor: extract.NewExtractor(logger),
	}
}

// Run walks the result pages starting at the configured start URL. It
// terminates normally when no next control is found, or aborts on the
// first terminal failure, in which case nothing is persisted and the
// returned state still carries the pages accumulated so far.
func (r *FetchRunner) Run(ctx context.Context) (*RunState, error) {
	st := &RunState{Page: 1, HasNext: true}
	r.observer.ScrapeStarted()

	nextURL := r.cfg.StartURL
	for nextURL != "" {
		r.logger.Infof("Fetching page %d: %s", st.Page, nextURL)

		body, err := r.fetcher.FetchPage(ctx, nextURL)
		if err != nil {
			return st, err
		}
		if looksLikeLoginPage(body) {
			return st, &types.AuthRequiredError{Reason: "order page served login prompt"}
		}

		doc, err := markup.Parse(body)
		if err != nil {
			return st, &types.NetworkError{Err: fmt.Errorf("page %d: %w", st.Page, err)}
		}

		found := r.extractor.OrdersFromDocument(doc)
		r.logger.Infof("Page %d: found %d orders", st.Page, len(found))
		st.Orders = append(st.Orders, found...)
		r.observer.ScrapeProgress(len(st.Orders), st.Page)

		nextURL = ""
		if next, ok := findNextControl(doc); ok {
			if href, has := next.Attr("href"); has && strings.TrimSpace(href) != "" {
				nextURL = r.absoluteURL(href)
				st.Page++
				if err := sleep(ctx, r.cfg.RequestDelay); err != nil {
					return st, err
				}
				continue
			}
		}
		st.HasNext = false
	}

	return st, persist(st, r.orders, r.observer, r.logger)
}

// absoluteURL resolves a next-page href against the configured site root.
func (r *FetchRunner) absoluteURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return r.cfg.BaseURL + href
	}
	if u.IsAbs() {
		return href
	}
	base, err := url.Parse(r.cfg.BaseURL)
	if err != nil {
		return r.cfg.BaseURL + href
	}
	return base.ResolveReference(u).String()
}
