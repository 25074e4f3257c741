package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"PredictiBoot/internal/model"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{"2006.01.02", "2006-01-02", "2006/01/02", "20060102"}

// CleanBars coerces scraped rows into DailyBars in loc. Rows whose date,
// prices or volume cannot be parsed are dropped. The result is sorted
// ascending with one bar per date.
func CleanBars(raw []model.RawBar, loc *time.Location) ([]model.DailyBar, error) {
	if loc == nil {
		loc = time.UTC
	}
	bars := make([]model.DailyBar, 0, len(raw))
	for _, r := range raw {
		bar, err := coerceBar(r, loc)
		if err != nil {
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, DataQualityError{Reason: fmt.Sprintf("none of %d rows could be coerced", len(raw))}
	}
	return PrepareBars(bars)
}

// PrepareBars sorts bars ascending by date, keeps the last bar seen for a
// duplicated date and drops bars with non-finite or non-positive prices.
func PrepareBars(bars []model.DailyBar) ([]model.DailyBar, error) {
	kept := make([]model.DailyBar, 0, len(bars))
	for _, b := range bars {
		if !validPrice(b.Close) || !validPrice(b.Open) || !validPrice(b.High) || !validPrice(b.Low) {
			continue
		}
		if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) || b.Volume < 0 {
			continue
		}
		kept = append(kept, b)
	}
	if len(kept) == 0 {
		return nil, DataQualityError{Reason: "no bar has usable prices"}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Date.Before(kept[j].Date) })

	out := kept[:0]
	for _, b := range kept {
		if n := len(out); n > 0 && sameDay(out[n-1].Date, b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func coerceBar(r model.RawBar, loc *time.Location) (model.DailyBar, error) {
	date, err := parseDate(r.Date, loc)
	if err != nil {
		return model.DailyBar{}, err
	}
	var bar model.DailyBar
	bar.Date = date
	bar.Change = strings.TrimSpace(r.Change)
	fields := []struct {
		raw string
		dst *float64
	}{
		{r.Close, &bar.Close},
		{r.Open, &bar.Open},
		{r.High, &bar.High},
		{r.Low, &bar.Low},
		{r.Volume, &bar.Volume},
	}
	for _, f := range fields {
		v, err := ParseNumber(f.raw)
		if err != nil {
			return model.DailyBar{}, err
		}
		*f.dst = v
	}
	return bar, nil
}

// ParseNumber coerces vendor numeric text such as "1,234,500" or " +12.5 ".
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0, errors.New("empty number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	f, _ := d.Float64()
	return f, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
