package markup

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/chromedp/chromedp"

	"fliplytics/internal/types"
)

// LivePage drives the currently rendered order-history page through a
// headless browser. Unlike a one-shot fetch, the session stays open for
// the whole pagination run so that clicks keep their effect between
// snapshots.
type LivePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *types.Config
	logger types.Logger
}

// NewLivePage starts a browser session. Close must be called when the run
// is over.
func NewLivePage(parent context.Context, cfg *types.Config, logger types.Logger) *LivePage {
	// Suppress chromedp debug output on the default logger
	log.SetOutput(io.Discard)

	ctx, cancel := chromedp.NewContext(parent)
	return &LivePage{ctx: ctx, cancel: cancel, cfg: cfg, logger: logger}
}

// Navigate opens the given URL in the session.
func (p *LivePage) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

// Snapshot parses the page as currently rendered. Nodes of the returned
// document are Clickable; clicks go back through this session.
func (p *LivePage) Snapshot() (*Document, error) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	var rendered string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &rendered)); err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	p.logger.Debugf("Captured page snapshot (%d bytes)", len(rendered))

	doc, err := Parse(rendered)
	if err != nil {
		return nil, err
	}
	doc.click = p
	return doc, nil
}

// Count returns how many elements currently match the selector, without
// taking a full snapshot. Wait strategies poll it to detect page
// stability after a navigation click.
func (p *LivePage) Count(selector string) (int, error) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	var n int
	expr := fmt.Sprintf("document.querySelectorAll(%q).length", selector)
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &n)); err != nil {
		return 0, fmt.Errorf("failed to count %q: %w", selector, err)
	}
	return n, nil
}

func (p *LivePage) clickPath(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	if err := chromedp.Run(cctx, chromedp.Click(path, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %s: %w", path, err)
	}
	return nil
}

// Close tears down the browser session.
func (p *LivePage) Close() {
	p.cancel()
}
