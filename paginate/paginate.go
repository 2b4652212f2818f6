// Package paginate drives traversal across multi-page order-history
// result sets, accumulating extracted orders and emitting progress events.
// A run is strictly sequential: page N is not available until page N-1's
// navigation completed, so there are no extraction workers. Runs are not
// safe to start concurrently; callers serialize them.
package paginate

import (
	"context"
	"strings"
	"time"

	"fliplytics/internal/types"
	"fliplytics/markup"
	"fliplytics/store"
)

// RunState is the caller-visible state of one pagination run.
type RunState struct {
	Orders  []types.Order
	Page    int
	HasNext bool
}

// findNextControl locates the pagination control: any anchor whose visible
// text contains "next", case-insensitively.
func findNextControl(doc *markup.Document) (markup.Node, bool) {
	for _, a := range doc.QueryAll("a") {
		if strings.Contains(strings.ToUpper(a.Text()), "NEXT") {
			return a, true
		}
	}
	return nil, false
}

// looksLikeLoginPage detects the logged-out order page served with a 200.
func looksLikeLoginPage(body string) bool {
	return strings.Contains(body, "Login") &&
		strings.Contains(body, "Get access to your Orders")
}

// persist hands the accumulated run off to storage as a full replace and
// emits the completion event. Nothing is persisted on terminal failure.
func persist(st *RunState, orders store.OrderStore, observer types.RunObserver, logger types.Logger) error {
	if orders != nil {
		if err := orders.Save(st.Orders); err != nil {
			return err
		}
	}
	observer.ScrapeComplete(len(st.Orders))
	logger.Infof("Scrape complete: %d orders over %d page(s)", len(st.Orders), st.Page)
	return nil
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
