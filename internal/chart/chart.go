// Package chart renders price history with a forecast as a PNG image.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"PredictiBoot/internal/calculator"
	"PredictiBoot/internal/model"

	"github.com/wcharczuk/go-chart/v2"
)

const smaPeriod = 20

// RenderForecast draws closes, their 20-day SMA and a dashed segment from the
// last close to the predicted price. pred may be nil.
func RenderForecast(w io.Writer, title string, bars []model.DailyBar, pred *model.PredictionBundle) error {
	if len(bars) < 2 {
		return errors.New("chart needs at least two bars")
	}

	dates := make([]time.Time, len(bars))
	for i, b := range bars {
		dates[i] = b.Date
	}
	closes := calculator.ExtractCloses(bars)

	series := []chart.Series{
		chart.TimeSeries{
			Name:    "Close",
			XValues: dates,
			YValues: closes,
		},
	}

	sma, err := calculator.RollingSMA(closes, smaPeriod)
	if err == nil && len(bars) > smaPeriod {
		var xs []time.Time
		var ys []float64
		for i, v := range sma {
			if math.IsNaN(v) {
				continue
			}
			xs = append(xs, dates[i])
			ys = append(ys, v)
		}
		if len(xs) >= 2 {
			series = append(series, chart.TimeSeries{
				Name:    "SMA20",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: chart.ColorAlternateGray,
				},
			})
		}
	}

	if pred != nil {
		last := bars[len(bars)-1]
		series = append(series, chart.TimeSeries{
			Name:    "Forecast",
			XValues: []time.Time{last.Date, pred.TargetDate},
			YValues: []float64{last.Close, pred.PredictedPrice},
			Style: chart.Style{
				StrokeColor:     chart.ColorRed,
				StrokeDashArray: []float64{5.0, 5.0},
			},
		})
	}

	graph := chart.Chart{
		Title: title,
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Price",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
