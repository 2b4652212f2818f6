package paginate

import (
	"context"

	"fliplytics/extract"
	"fliplytics/internal/types"
	"fliplytics/markup"
	"fliplytics/store"
)

// InteractiveRunner paginates the live, currently rendered page by
// clicking its next control through the markup abstraction. The page
// renderer is an uncontrolled external process; after each click the
// runner defers to its WaitStrategy before extracting again.
type InteractiveRunner struct {
	cfg       *types.Config
	page      *markup.LivePage
	orders    store.OrderStore
	observer  types.RunObserver
	logger    types.Logger
	extractor *extract.Extractor
	wait      WaitStrategy
}

func NewInteractiveRunner(cfg *types.Config, page *markup.LivePage, orders store.OrderStore, observer types.RunObserver, logger types.Logger) *InteractiveRunner {
	if observer == nil {
		observer = types.NopObserver{}
	}
	return &InteractiveRunner{
		cfg:       cfg,
		page:      page,
		orders:    orders,
		observer:  observer,
		logger:    logger,
		extractor: extract.NewExtractor(logger),
		wait:      FixedDelay{D: cfg.ClickWait},
	}
}

// SetWaitStrategy replaces the default fixed post-click delay.
func (r *InteractiveRunner) SetWaitStrategy(w WaitStrategy) {
	r.wait = w
}

// Run extracts the already-open order page and clicks through the result
// set until no next control remains.
func (r *InteractiveRunner) Run(ctx context.Context) (*RunState, error) {
	st := &RunState{Page: 1, HasNext: true}
	r.observer.ScrapeStarted()

	for st.HasNext {
		// Give dynamic content a moment before parsing.
		if err := sleep(ctx, r.cfg.SettleDelay); err != nil {
			return st, err
		}

		doc, err := r.page.Snapshot()
		if err != nil {
			return st, &types.NetworkError{Err: err}
		}

		found := r.extractor.OrdersFromDocument(doc)
		r.logger.Infof("Page %d: found %d orders", st.Page, len(found))
		st.Orders = append(st.Orders, found...)
		r.observer.ScrapeProgress(len(st.Orders), st.Page)

		next, ok := findNextControl(doc)
		if !ok {
			r.logger.Infof("Page %d: no next control, finishing", st.Page)
			st.HasNext = false
			break
		}

		clickable, ok := next.(markup.Clickable)
		if !ok {
			// Snapshot lost its session; nothing left to click.
			st.HasNext = false
			break
		}

		r.logger.Infof("Page %d: advancing", st.Page)
		if err := clickable.Click(ctx); err != nil {
			return st, &types.NetworkError{Err: err}
		}
		if err := r.wait.Wait(ctx, r.page); err != nil {
			return st, err
		}
		st.Page++
	}

	return st, persist(st, r.orders, r.observer, r.logger)
}
