// Package analytics turns the scraped order set into spending reports.
// Every function is pure: results are recomputed from the full order set
// and the filter parameters on each call, with the reference time passed
// in explicitly so that reports are reproducible.
package analytics

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"fliplytics/internal/types"
)

// TimeFilter selects the reporting window, evaluated against "now".
type TimeFilter string

const (
	FilterAll         TimeFilter = "all"
	FilterLastMonth   TimeFilter = "last-month"
	FilterLast3Months TimeFilter = "last-3-months"
	FilterLastYear    TimeFilter = "last-year"
	FilterLast2Years  TimeFilter = "last-2-years"
)

// ParseFilter validates a filter name, defaulting to FilterAll.
func ParseFilter(s string) (TimeFilter, error) {
	switch f := TimeFilter(s); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterLastMonth, FilterLast3Months, FilterLastYear, FilterLast2Years:
		return f, nil
	default:
		return FilterAll, fmt.Errorf("unknown time filter %q", s)
	}
}

// Aggregate computes the full report for one dashboard view.
func Aggregate(orders []types.Order, filter TimeFilter, search string, now time.Time) types.AggregationResult {
	filtered := Filter(orders, filter, now)
	if search != "" {
		filtered = Search(filtered, search)
	}
	return types.AggregationResult{
		Filtered:   filtered,
		Series:     timeSeries(filtered, filter),
		Categories: categoryTotals(filtered),
		Brands:     brandTable(filtered),
		Summary:    summarize(filtered),
	}
}

// Filter applies the validity filter then the time window. Cancelled,
// returned and refunded orders never count as spending. Orders with an
// unparseable date survive only the "all" filter.
func Filter(orders []types.Order, filter TimeFilter, now time.Time) []types.Order {
	out := make([]types.Order, 0, len(orders))
	for _, o := range orders {
		if !isValid(o) {
			continue
		}
		if filter == FilterAll {
			out = append(out, o)
			continue
		}
		if !o.HasDate() {
			continue
		}
		if inWindow(o.DateParsed, filter, now) {
			out = append(out, o)
		}
	}
	return out
}

func isValid(o types.Order) bool {
	s := strings.ToLower(string(o.Status))
	return !strings.Contains(s, "cancelled") &&
		!strings.Contains(s, "returned") &&
		!strings.Contains(s, "refund")
}

func inWindow(d time.Time, filter TimeFilter, now time.Time) bool {
	switch filter {
	case FilterLastMonth:
		prevMonth := now.Month() - 1
		prevYear := now.Year()
		if prevMonth < time.January {
			prevMonth = time.December
			prevYear--
		}
		return d.Month() == prevMonth && d.Year() == prevYear
	case FilterLast3Months:
		return !d.Before(now.AddDate(0, 0, -90))
	case FilterLastYear:
		return d.Year() == now.Year()-1
	case FilterLast2Years:
		return d.Year() == now.Year()-1 || d.Year() == now.Year()-2
	default:
		return true
	}
}

// Search keeps orders whose product name or raw date contains the term,
// case-insensitively. It is applied on top of whatever window the caller
// already selected, mirroring the dashboard's search box.
func Search(orders []types.Order, term string) []types.Order {
	term = strings.ToLower(term)
	out := make([]types.Order, 0, len(orders))
	for _, o := range orders {
		if strings.Contains(strings.ToLower(o.ProductName), term) ||
			strings.Contains(strings.ToLower(o.DateRaw), term) {
			out = append(out, o)
		}
	}
	return out
}

// Recent returns up to n orders sorted by parsed date, newest first.
func Recent(orders []types.Order, n int) []types.Order {
	sorted := make([]types.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DateParsed.After(sorted[j].DateParsed)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func summarize(orders []types.Order) types.Summary {
	var total float64
	for _, o := range orders {
		total += o.Amount
	}
	s := types.Summary{Total: total, Count: len(orders)}
	if s.Count > 0 {
		s.Average = total / float64(s.Count)
	}
	return s
}

// timeSeries buckets amounts by date label. Buckets appear in first-seen
// order, not chronologically; the dashboard charts render them as-is and
// changing the order needs product sign-off.
func timeSeries(orders []types.Order, filter TimeFilter) []types.SeriesPoint {
	amounts := make(map[string]float64)
	var labels []string
	for _, o := range orders {
		label := bucketLabel(o.DateParsed, filter)
		if _, seen := amounts[label]; !seen {
			labels = append(labels, label)
		}
		amounts[label] += o.Amount
	}

	points := make([]types.SeriesPoint, 0, len(labels))
	for _, label := range labels {
		points = append(points, types.SeriesPoint{Label: label, Amount: amounts[label]})
	}
	return points
}

// bucketLabel is the day of month inside a single-month window, and an
// abbreviated month + 2-digit year everywhere else.
func bucketLabel(d time.Time, filter TimeFilter) string {
	if filter == FilterLastMonth {
		return strconv.Itoa(d.Day())
	}
	return d.Format("Jan 06")
}

var categories = []struct {
	name     string
	keywords []string
}{
	{"Mobiles", []string{"mobile", "phone", "iphone", "samsung", "redmi"}},
	{"Laptops", []string{"laptop", "computer", "pc", "macbook"}},
	{"Audio", []string{"headphone", "earphone", "airpods", "sony", "boat"}},
	{"Fashion", []string{"shoe", "shirt", "t-shirt", "jeans", "pant", "watch"}},
	{"Books", []string{"book"}},
	{"Appliances", []string{"tv", "television"}},
}

// Categorize maps a product name to one of the seven fixed categories by
// ordered keyword containment; the first matching category wins and
// "Others" is the fallback, so the mapping is total.
func Categorize(productName string) string {
	name := strings.ToLower(productName)
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(name, kw) {
				return c.name
			}
		}
	}
	return "Others"
}

// categoryTotals sums amounts per category and caps the result to the
// five largest plus a synthesized Others bucket.
func categoryTotals(orders []types.Order) []types.CategorySlice {
	totals := make(map[string]float64)
	for _, o := range orders {
		totals[Categorize(o.ProductName)] += o.Amount
	}

	slices := make([]types.CategorySlice, 0, len(totals))
	for name, amount := range totals {
		slices = append(slices, types.CategorySlice{Name: name, Amount: amount})
	}
	sort.SliceStable(slices, func(i, j int) bool {
		if slices[i].Amount != slices[j].Amount {
			return slices[i].Amount > slices[j].Amount
		}
		return slices[i].Name < slices[j].Name
	})

	if len(slices) > 5 {
		var rest float64
		for _, s := range slices[5:] {
			rest += s.Amount
		}
		slices = append(slices[:5:5], types.CategorySlice{Name: "Others", Amount: rest})
	}
	return slices
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Brand derives a brand label from a product name. The first token is
// usually the brand; names whose cleaned first token is shorter than two
// characters fall back to the first two words verbatim.
func Brand(productName string) string {
	words := strings.Fields(strings.TrimSpace(productName))
	if len(words) == 0 {
		return "Unknown"
	}

	brand := nonAlnum.ReplaceAllString(words[0], "")
	if len(brand) < 2 && len(words) > 1 {
		return words[0] + " " + words[1]
	}
	if brand == "" {
		return "Unknown"
	}
	return strings.ToUpper(brand[:1]) + strings.ToLower(brand[1:])
}

// brandTable ranks brands by amount, capped to the top ten plus a
// synthesized Others row, with each row's share of total spending.
func brandTable(orders []types.Order) []types.BrandRow {
	byBrand := make(map[string]*types.BrandRow)
	var names []string
	var total float64
	for _, o := range orders {
		name := Brand(o.ProductName)
		row, ok := byBrand[name]
		if !ok {
			row = &types.BrandRow{Brand: name}
			byBrand[name] = row
			names = append(names, name)
		}
		row.Count++
		row.Amount += o.Amount
		total += o.Amount
	}

	rows := make([]types.BrandRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, *byBrand[name])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Amount > rows[j].Amount
	})

	if len(rows) > 10 {
		others := types.BrandRow{Brand: "Others"}
		for _, r := range rows[10:] {
			others.Count += r.Count
			others.Amount += r.Amount
		}
		rows = append(rows[:10:10], others)
	}

	for i := range rows {
		if total > 0 {
			rows[i].Percent = round1(rows[i].Amount / total * 100)
		}
	}
	return rows
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}

// FormatINR renders an amount the way the dashboard does: rupee glyph,
// Indian digit grouping, no decimals.
func FormatINR(amount float64) string {
	digits := strconv.FormatInt(int64(amount+0.5), 10)
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}

	var groups []string
	if len(digits) > 3 {
		head := digits[:len(digits)-3]
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		groups = append([]string{head}, groups...)
		groups = append(groups, digits[len(digits)-3:])
	} else {
		groups = []string{digits}
	}

	out := "₹" + strings.Join(groups, ",")
	if neg {
		out = "-" + out
	}
	return out
}
