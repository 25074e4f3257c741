package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"PredictiBoot/internal/analyst"
	"PredictiBoot/internal/cache"
	"PredictiBoot/internal/chart"
	"PredictiBoot/internal/collector"
	"PredictiBoot/internal/forecast"
	"PredictiBoot/internal/logger"
	"PredictiBoot/internal/model"
	"PredictiBoot/internal/notifier"
)

// DefaultNewsLimit is the number of headlines returned when none is requested.
const DefaultNewsLimit = 5

// ErrUnavailable means an optional collaborator was not configured.
var ErrUnavailable = errors.New("collaborator not configured")

// Analysis is a forecast with the news and commentary it was judged against.
type Analysis struct {
	Prediction *Prediction          `json:"prediction"`
	News       []model.NewsArticle `json:"news"`
	Commentary string              `json:"analysis"`
}

// Analyze runs an ensemble forecast and asks the analyst to judge it against
// the latest headlines.
func (s *Service) Analyze(ctx context.Context, code string, years int) (*Analysis, error) {
	if s.analyst == nil {
		return nil, fmt.Errorf("analyst: %w", ErrUnavailable)
	}
	pred, err := s.Predict(ctx, code, years, forecast.MethodEnsemble)
	if err != nil {
		return nil, err
	}
	news := s.News(ctx, code, DefaultNewsLimit)

	commentary, err := s.analyst.Analyze(ctx, analyst.Request{
		StockName:      pred.Name,
		Message:        pred.Message,
		PredictedPrice: notifier.FormatPrice(pred.PredictedPrice) + "원",
		News:           news,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", code, err)
	}
	return &Analysis{Prediction: pred, News: news, Commentary: commentary}, nil
}

// News returns up to limit headlines for code. Upstream failures yield an
// empty list.
func (s *Service) News(ctx context.Context, code string, limit int) []model.NewsArticle {
	if limit <= 0 {
		limit = DefaultNewsLimit
	}
	news, err := s.source.FetchNews(ctx, code, limit)
	if err != nil {
		s.log.Warn("fetch news", logger.String("code", code), logger.Error(err))
		return []model.NewsArticle{}
	}
	if news == nil {
		news = []model.NewsArticle{}
	}
	return news
}

// Search matches query against the names of listed stocks.
func (s *Service) Search(ctx context.Context, query string) ([]model.StockListing, error) {
	if s.listings == nil {
		return nil, fmt.Errorf("listings: %w", ErrUnavailable)
	}
	all, err := cache.GetOrLoad(ctx, s.cache, cache.GenerateKey("listings"), s.ttl.Listing,
		func(ctx context.Context) ([]model.StockListing, error) {
			start := time.Now()
			l, err := s.listings.Listings(ctx)
			observe("krx", "listings", start, err)
			return l, err
		})
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	return collector.SearchListings(all, query), nil
}

// International returns daily history of a foreign ticker.
func (s *Service) International(ctx context.Context, ticker, period string) ([]model.DailyBar, error) {
	if s.international == nil {
		return nil, fmt.Errorf("international source: %w", ErrUnavailable)
	}
	start := time.Now()
	bars, err := s.international.FetchHistory(ctx, ticker, period)
	observe("yahoo", "history", start, err)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, collector.ErrNoHistory{Code: ticker}
	}
	return bars, nil
}

// Chart forecasts code with the ensemble and writes a PNG of the history
// with the forecast to w.
func (s *Service) Chart(ctx context.Context, code string, years int, w io.Writer) (*Prediction, error) {
	pred, err := s.Predict(ctx, code, years, forecast.MethodEnsemble)
	if err != nil {
		return nil, err
	}
	if err := chart.RenderForecast(w, Title(pred.Name, pred.Code), pred.Bars, pred.Bundle); err != nil {
		return nil, err
	}
	return pred, nil
}
