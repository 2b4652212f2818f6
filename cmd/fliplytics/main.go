package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"fliplytics/analytics"
	"fliplytics/internal/types"
	"fliplytics/markup"
	"fliplytics/paginate"
	"fliplytics/store"
	"fliplytics/utils"
)

// logObserver forwards scrape lifecycle events to the log, standing in
// for the extension badge.
type logObserver struct {
	logger types.Logger
}

func (o logObserver) ScrapeStarted() {
	o.logger.Info("Sync started")
}

func (o logObserver) ScrapeProgress(count, page int) {
	o.logger.Infof("Synced %d orders (page %d)", count, page)
}

func (o logObserver) ScrapeComplete(total int) {
	o.logger.Infof("Sync complete: %d orders", total)
}

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	var (
		modeFlag     = flag.String("mode", "report", "Run mode: fetch, interactive or report")
		startURL     = flag.String("url", "", "Order-history start URL (default: account orders page)")
		baseURL      = flag.String("base", "", "Site root for resolving next-page links")
		cookieFlag   = flag.String("cookie", "", "Session cookie header (or SESSION_COOKIE env)")
		dataDir      = flag.String("data", "fliplytics.db", "Order database directory")
		filterFlag   = flag.String("filter", "all", "Report window: all, last-month, last-3-months, last-year, last-2-years")
		searchFlag   = flag.String("search", "", "Report search term (product name or date)")
		outputFlag   = flag.String("output", "", "Write the report as JSON to this file instead of tables")
		requestDelay = flag.Duration("delay", 1500*time.Millisecond, "Delay between page fetches")
		maxRetries   = flag.Int("retries", 3, "Maximum retry attempts per fetch")
		timeout      = flag.Duration("timeout", 30*time.Second, "Request timeout")
		stableWait   = flag.Bool("stable-wait", false, "Interactive mode: poll for card-count stability instead of a fixed delay")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	// Setup logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	cfg := types.DefaultConfig()
	cfg.RequestDelay = *requestDelay
	cfg.MaxRetries = *maxRetries
	cfg.Timeout = *timeout
	cfg.DataDir = *dataDir
	if *startURL != "" {
		cfg.StartURL = *startURL
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	cfg.SessionCookie = *cookieFlag
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = os.Getenv("SESSION_COOKIE")
	}

	orders, err := store.OpenPebble(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open order database: %v", err)
	}
	defer orders.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	switch *modeFlag {
	case "fetch":
		runFetch(ctx, cfg, orders, logger)
	case "interactive":
		runInteractive(ctx, cfg, orders, logger, *stableWait)
	case "report":
	default:
		log.Fatalf("Unknown mode: %s", *modeFlag)
	}

	report(orders, *filterFlag, *searchFlag, *outputFlag, logger)
}

func runFetch(ctx context.Context, cfg *types.Config, orders store.OrderStore, logger *logrus.Logger) {
	client := utils.NewClient(cfg, logger)
	defer client.Close()

	runner := paginate.NewFetchRunner(cfg, client, orders, logObserver{logger}, logger)
	start := time.Now()
	state, err := runner.Run(ctx)
	if err != nil {
		failRun(err, logger)
	}
	logger.Infof("Fetched %d orders in %v", len(state.Orders), time.Since(start))
}

func runInteractive(ctx context.Context, cfg *types.Config, orders store.OrderStore, logger *logrus.Logger, stableWait bool) {
	page := markup.NewLivePage(ctx, cfg, logger)
	defer page.Close()

	if err := page.Navigate(cfg.StartURL); err != nil {
		logger.Fatalf("Failed to open order page: %v", err)
	}

	runner := paginate.NewInteractiveRunner(cfg, page, orders, logObserver{logger}, logger)
	if stableWait {
		runner.SetWaitStrategy(paginate.StableCardCount{})
	}

	start := time.Now()
	state, err := runner.Run(ctx)
	if err != nil {
		failRun(err, logger)
	}
	logger.Infof("Scraped %d orders in %v", len(state.Orders), time.Since(start))
}

// failRun reports a terminal scrape failure. Authentication failures get
// an actionable hint instead of a bare error.
func failRun(err error, logger *logrus.Logger) {
	var authErr *types.AuthRequiredError
	if errors.As(err, &authErr) {
		logger.Errorf("Sync aborted: %v", authErr)
		logger.Error("Open the order page in a browser, log in, then re-run with a fresh session cookie (or use -mode interactive)")
		os.Exit(1)
	}
	logger.Fatalf("Sync aborted: %v", err)
}

func report(orders store.OrderStore, filterName, search, output string, logger *logrus.Logger) {
	filter, err := analytics.ParseFilter(filterName)
	if err != nil {
		logger.Fatalf("Invalid filter: %v", err)
	}

	all, err := orders.Load()
	if err != nil {
		logger.Fatalf("Failed to load orders: %v", err)
	}
	if len(all) == 0 {
		logger.Warn("No orders stored yet; run with -mode fetch or -mode interactive first")
		return
	}

	result := analytics.Aggregate(all, filter, search, time.Now())

	if output != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Fatalf("Failed to marshal report: %v", err)
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			logger.Fatalf("Failed to write report: %v", err)
		}
		logger.Infof("Report written to: %s", output)
		return
	}

	renderReport(result)
}

func renderReport(result types.AggregationResult) {
	summary := table.NewWriter()
	summary.SetOutputMirror(os.Stdout)
	summary.AppendHeader(table.Row{"Total Spent", "Orders", "Avg Order"})
	summary.AppendRow(table.Row{
		analytics.FormatINR(result.Summary.Total),
		result.Summary.Count,
		analytics.FormatINR(result.Summary.Average),
	})
	summary.SetStyle(table.StyleRounded)
	summary.Render()

	cats := table.NewWriter()
	cats.SetOutputMirror(os.Stdout)
	cats.AppendHeader(table.Row{"Category", "Spent"})
	for _, c := range result.Categories {
		cats.AppendRow(table.Row{c.Name, analytics.FormatINR(c.Amount)})
	}
	cats.SetStyle(table.StyleRounded)
	cats.Render()

	brands := table.NewWriter()
	brands.SetOutputMirror(os.Stdout)
	brands.AppendHeader(table.Row{"Brand", "Spent", "Orders", "Share"})
	for _, b := range result.Brands {
		brands.AppendRow(table.Row{
			b.Brand,
			analytics.FormatINR(b.Amount),
			b.Count,
			fmt.Sprintf("%.1f%%", b.Percent),
		})
	}
	brands.SetStyle(table.StyleRounded)
	brands.Render()

	recent := table.NewWriter()
	recent.SetOutputMirror(os.Stdout)
	recent.AppendHeader(table.Row{"Date", "Product", "Amount", "Status"})
	for _, o := range analytics.Recent(result.Filtered, 5) {
		recent.AppendRow(table.Row{o.DateRaw, o.ProductName, analytics.FormatINR(o.Amount), o.Status})
	}
	recent.SetStyle(table.StyleRounded)
	recent.Render()
}
