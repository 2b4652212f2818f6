package paginate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fliplytics/internal/types"
	"fliplytics/markup"
)

func mustParseDoc(t *testing.T, raw string) *markup.Document {
	t.Helper()
	doc, err := markup.Parse(raw)
	require.NoError(t, err)
	return doc
}

// fakeFetcher serves canned page bodies by URL.
type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) FetchPage(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	body, ok := f.pages[url]
	if !ok {
		return "", &types.NetworkError{Err: fmt.Errorf("no such page: %s", url)}
	}
	return body, nil
}

// memStore records Save calls in memory.
type memStore struct {
	saved  [][]types.Order
	orders []types.Order
}

func (m *memStore) Save(orders []types.Order) error {
	m.saved = append(m.saved, orders)
	m.orders = orders
	return nil
}

func (m *memStore) Load() ([]types.Order, error) { return m.orders, nil }
func (m *memStore) Close() error                 { return nil }

// recordObserver captures the event stream.
type recordObserver struct {
	started  int
	progress [][2]int
	complete []int
}

func (r *recordObserver) ScrapeStarted()                  { r.started++ }
func (r *recordObserver) ScrapeProgress(count, page int)  { r.progress = append(r.progress, [2]int{count, page}) }
func (r *recordObserver) ScrapeComplete(total int)        { r.complete = append(r.complete, total) }

func testConfig() *types.Config {
	cfg := types.DefaultConfig()
	cfg.BaseURL = "https://shop.example"
	cfg.StartURL = "https://shop.example/account/orders"
	cfg.RequestDelay = 0
	return cfg
}

func orderCard(id int, name, status, date, price string) string {
	return fmt.Sprintf(`<div class="order-row">
  <a href="/order_details?id=%d">%s</a>
  <span>%s on %s</span>
  <span>%s</span>
</div>`, id, name, status, date, price)
}

func TestFetchRunner_TwoPageRun(t *testing.T) {
	page1 := `<html><body>` +
		orderCard(1, "Nike Air Zoom", "Delivered", "Mar 05, 2025", "₹2,499") +
		orderCard(2, "Sony WH-1000XM4", "Delivered", "Feb 11, 2025", "₹19,990") +
		orderCard(3, "boAt Rockerz", "Cancelled", "Jan 20, 2025", "₹1,499") +
		orderCard(4, "Freebie", "Delivered", "Jan 05, 2025", "₹0") +
		`<a href="/account/orders?page=2">Next</a></body></html>`
	page2 := `<html><body>` +
		orderCard(5, "Kindle Paperwhite", "Delivered", "Dec 25, 2024", "₹11,999") +
		orderCard(6, "Mi Power Bank", "Delivered", "Dec 01, 2024", "₹1,799") +
		`</body></html>`

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example/account/orders":        page1,
		"https://shop.example/account/orders?page=2": page2,
	}}
	storage := &memStore{}
	observer := &recordObserver{}

	runner := NewFetchRunner(testConfig(), fetcher, storage, observer, logrus.New())
	state, err := runner.Run(context.Background())

	require.NoError(t, err)
	// The zero-amount card on page 1 is rejected; everything else counts.
	assert.Len(t, state.Orders, 5)
	assert.Equal(t, 2, state.Page)
	assert.False(t, state.HasNext)

	assert.Equal(t, 1, observer.started)
	assert.Equal(t, [][2]int{{3, 1}, {5, 2}}, observer.progress)
	assert.Equal(t, []int{5}, observer.complete)

	// One full-replace write of the complete accumulated sequence.
	require.Len(t, storage.saved, 1)
	assert.Len(t, storage.saved[0], 5)
	assert.Equal(t, "Nike Air Zoom", storage.saved[0][0].ProductName)
	assert.Equal(t, "Mi Power Bank", storage.saved[0][4].ProductName)
}

func TestFetchRunner_NoNextControlIsNormalTermination(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example/account/orders": `<html><body>` +
			orderCard(1, "Nike Air Zoom", "Delivered", "Mar 05, 2025", "₹2,499") +
			`</body></html>`,
	}}
	storage := &memStore{}
	observer := &recordObserver{}

	runner := NewFetchRunner(testConfig(), fetcher, storage, observer, logrus.New())
	state, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, state.Orders, 1)
	assert.Equal(t, 1, state.Page)
	assert.Equal(t, []int{1}, observer.complete)
	assert.Len(t, fetcher.calls, 1)
}

func TestFetchRunner_AuthRedirectAborts(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]string{},
		errs: map[string]error{
			"https://shop.example/account/orders": &types.AuthRequiredError{Reason: "redirected to login page"},
		},
	}
	storage := &memStore{}
	observer := &recordObserver{}

	runner := NewFetchRunner(testConfig(), fetcher, storage, observer, logrus.New())
	_, err := runner.Run(context.Background())

	var authErr *types.AuthRequiredError
	require.ErrorAs(t, err, &authErr)
	assert.Empty(t, storage.saved)
	assert.Empty(t, observer.complete)
}

func TestFetchRunner_LoginBodyAborts(t *testing.T) {
	// Some logged-out responses come back 200 with the login prompt
	// rendered inline.
	loginBody := `<html><body><h1>Login</h1><p>Get access to your Orders, Wishlist and Recommendations</p></body></html>`
	page1 := `<html><body>` +
		orderCard(1, "Nike Air Zoom", "Delivered", "Mar 05, 2025", "₹2,499") +
		`<a href="/account/orders?page=2">Next</a></body></html>`

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example/account/orders":        page1,
		"https://shop.example/account/orders?page=2": loginBody,
	}}
	storage := &memStore{}
	observer := &recordObserver{}

	runner := NewFetchRunner(testConfig(), fetcher, storage, observer, logrus.New())
	state, err := runner.Run(context.Background())

	var authErr *types.AuthRequiredError
	require.ErrorAs(t, err, &authErr)
	// Page 1's orders stay in memory but are never persisted.
	assert.Len(t, state.Orders, 1)
	assert.Empty(t, storage.saved)
	assert.Empty(t, observer.complete)
}

func TestFetchRunner_NetworkFailureAborts(t *testing.T) {
	fetcher := &fakeFetcher{
		errs: map[string]error{
			"https://shop.example/account/orders": &types.NetworkError{Err: errors.New("connection refused")},
		},
	}
	storage := &memStore{}

	runner := NewFetchRunner(testConfig(), fetcher, storage, &recordObserver{}, logrus.New())
	_, err := runner.Run(context.Background())

	var netErr *types.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Empty(t, storage.saved)
}

func TestFetchRunner_AbsoluteNextURL(t *testing.T) {
	page1 := `<html><body>` +
		orderCard(1, "Nike Air Zoom", "Delivered", "Mar 05, 2025", "₹2,499") +
		`<a href="https://shop.example/account/orders?page=2">NEXT PAGE</a></body></html>`
	page2 := `<html><body>` +
		orderCard(2, "Sony WH-1000XM4", "Delivered", "Feb 11, 2025", "₹19,990") +
		`</body></html>`

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example/account/orders":        page1,
		"https://shop.example/account/orders?page=2": page2,
	}}

	runner := NewFetchRunner(testConfig(), fetcher, &memStore{}, nil, logrus.New())
	state, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, state.Orders, 2)
	assert.Equal(t, []string{
		"https://shop.example/account/orders",
		"https://shop.example/account/orders?page=2",
	}, fetcher.calls)
}

func TestFetchRunner_ContextCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.RequestDelay = time.Minute

	page1 := `<html><body>` +
		orderCard(1, "Nike Air Zoom", "Delivered", "Mar 05, 2025", "₹2,499") +
		`<a href="/account/orders?page=2">Next</a></body></html>`
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example/account/orders": page1,
	}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	runner := NewFetchRunner(cfg, fetcher, &memStore{}, nil, logrus.New())
	_, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindNextControl(t *testing.T) {
	doc := mustParseDoc(t, `<html><body><a href="/p2">next ›</a></body></html>`)
	next, ok := findNextControl(doc)
	require.True(t, ok)
	href, _ := next.Attr("href")
	assert.Equal(t, "/p2", href)

	doc = mustParseDoc(t, `<html><body><a href="/p0">Previous</a></body></html>`)
	_, ok = findNextControl(doc)
	assert.False(t, ok)
}
