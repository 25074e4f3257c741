package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"PredictiBoot/internal/calculator"
	"PredictiBoot/internal/forecast"
	"PredictiBoot/internal/model"

	"github.com/dustin/go-humanize"
)

// MockSource returns synthetic data for development and testing. Set Bars to
// serve fixed rows instead.
type MockSource struct {
	Price    float64
	Bars     []model.RawBar
	Listing  []model.StockListing
	News     []model.NewsArticle
	Names    map[string]string
	Now      func() time.Time
	Location *time.Location
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// FetchHistory returns one year of weekday rows per requested year, newest
// first, formatted the way the price pages print them.
func (m *MockSource) FetchHistory(_ context.Context, code string, years int) ([]model.RawBar, error) {
	if m.Bars != nil {
		return m.Bars, nil
	}
	price := m.Price
	if price <= 0 {
		price = 50000
	}
	bars := generateMockBars(code, price, years*calculator.TradingDaysPerYear, m.now(), m.Location)
	rows := make([]model.RawBar, len(bars))
	for i, b := range bars {
		rows[len(bars)-1-i] = model.RawBar{
			Date:   b.Date.Format("2006.01.02"),
			Close:  humanize.Comma(int64(b.Close)),
			Open:   humanize.Comma(int64(b.Open)),
			High:   humanize.Comma(int64(b.High)),
			Low:    humanize.Comma(int64(b.Low)),
			Volume: humanize.Comma(int64(b.Volume)),
		}
	}
	return rows, nil
}

func (m *MockSource) FetchStockName(_ context.Context, code string) (string, error) {
	if name, ok := m.Names[code]; ok {
		return name, nil
	}
	return UnknownStockName, nil
}

func (m *MockSource) FetchNews(_ context.Context, _ string, limit int) ([]model.NewsArticle, error) {
	if len(m.News) > limit {
		return m.News[:limit], nil
	}
	return m.News, nil
}

func (m *MockSource) Listings(_ context.Context) ([]model.StockListing, error) {
	return m.Listing, nil
}

// generateMockBars walks a seeded random path over the count weekdays ending
// before now. The same code always yields the same path.
func generateMockBars(code string, basePrice float64, count int, now time.Time, loc *time.Location) []model.DailyBar {
	if loc == nil {
		loc = time.UTC
	}
	h := fnv.New64a()
	h.Write([]byte(code))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	dates := make([]time.Time, 0, count)
	y, mo, d := now.In(loc).Date()
	day := time.Date(y, mo, d, 0, 0, 0, 0, loc)
	for len(dates) < count {
		day = day.AddDate(0, 0, -1)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		dates = append(dates, day)
	}

	bars := make([]model.DailyBar, count)
	p := basePrice
	for i := 0; i < count; i++ {
		p *= 1 + rng.NormFloat64()*0.012
		p = math.Max(p, basePrice*0.2)
		bars[i] = model.DailyBar{
			Date:   dates[count-1-i],
			Open:   math.Round(p * (1 + rng.NormFloat64()*0.004)),
			High:   math.Round(p * 1.01),
			Low:    math.Round(p * 0.99),
			Close:  math.Round(p),
			Volume: math.Round(1e6 * (0.5 + rng.Float64())),
		}
	}
	return bars
}

// Snapshot is a cleaned history of one stock with its yearly range.
type Snapshot struct {
	Code       string
	Name       string
	Bars       []model.DailyBar
	High52w    float64
	Low52w     float64
	Position52 float64
}

// Collect fetches years of history and the stock name, then cleans the rows
// into ascending bars in loc. A failed name lookup falls back to
// UnknownStockName.
func Collect(ctx context.Context, src DomesticSource, code string, years int, loc *time.Location) (*Snapshot, error) {
	raw, err := src.FetchHistory(ctx, code, years)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNoHistory{Code: code}
	}
	bars, err := forecast.CleanBars(raw, loc)
	if err != nil {
		return nil, err
	}

	name, err := src.FetchStockName(ctx, code)
	if err != nil || strings.TrimSpace(name) == "" {
		name = UnknownStockName
	}

	snap := &Snapshot{Code: code, Name: name, Bars: bars}
	last := bars[len(bars)-1].Close
	if h, l, err := calculator.CalculateRange(bars, calculator.TradingDaysPerYear); err == nil {
		snap.High52w, snap.Low52w = h, l
		if pos, err := calculator.RangePosition(last, h, l); err == nil {
			snap.Position52 = pos
		}
	}
	return snap, nil
}

// ErrNoHistory means the source returned no rows for a code.
type ErrNoHistory struct {
	Code string
}

func (e ErrNoHistory) Error() string {
	return fmt.Sprintf("no price history for %s", e.Code)
}
