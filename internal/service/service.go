// Package service runs forecasts end to end: fetch, clean, select the window,
// predict, then record and publish the result.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PredictiBoot/internal/analyst"
	"PredictiBoot/internal/cache"
	"PredictiBoot/internal/calendar"
	"PredictiBoot/internal/collector"
	"PredictiBoot/internal/events"
	"PredictiBoot/internal/forecast"
	"PredictiBoot/internal/logger"
	"PredictiBoot/internal/metrics"
	"PredictiBoot/internal/model"
	"PredictiBoot/internal/notifier"
	"PredictiBoot/internal/recorder"
)

// Analyst produces commentary for a forecast.
type Analyst interface {
	Analyze(ctx context.Context, req analyst.Request) (string, error)
}

// TTLs controls how long upstream lookups stay cached.
type TTLs struct {
	Listing time.Duration
	Name    time.Duration
	News    time.Duration
}

// Deps are the collaborators of a Service. Nil Recorder, Publisher and Cache
// fall back to no-op or in-memory implementations. Only Tracked codes get a
// predicted_price gauge series, so request input cannot grow the label set.
type Deps struct {
	Source        collector.DomesticSource
	Listings      collector.ListingSource
	International collector.InternationalSource
	Analyst       Analyst
	Cache         cache.Service
	Recorder      recorder.Recorder
	Publisher     events.Publisher
	Clock         calendar.MarketClock
	Options       forecast.Options
	TTLs          TTLs
	Tracked       []string
	Logger        *logger.Logger
	Now           func() time.Time
}

// Service is safe for concurrent use; every forecast builds fresh models.
type Service struct {
	source        collector.DomesticSource
	listings      collector.ListingSource
	international collector.InternationalSource
	analyst       Analyst
	cache         cache.Service
	recorder      recorder.Recorder
	publisher     events.Publisher
	clock         calendar.MarketClock
	opts          forecast.Options
	ttl           TTLs
	tracked       map[string]bool
	log           *logger.Logger
	now           func() time.Time
}

// New creates a Service.
func New(d Deps) *Service {
	s := &Service{
		listings:      d.Listings,
		international: d.International,
		analyst:       d.Analyst,
		cache:         d.Cache,
		recorder:      d.Recorder,
		publisher:     d.Publisher,
		clock:         d.Clock,
		opts:          d.Options,
		ttl:           d.TTLs,
		tracked:       make(map[string]bool, len(d.Tracked)),
		log:           d.Logger,
		now:           d.Now,
	}
	for _, code := range d.Tracked {
		s.tracked[code] = true
	}
	if s.cache == nil {
		s.cache = cache.NewMemoryCache()
	}
	if s.recorder == nil {
		s.recorder = recorder.NewNoopRecorder()
	}
	if s.publisher == nil {
		s.publisher = events.NewNoopPublisher()
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.source = &cachedSource{DomesticSource: d.Source, cache: s.cache, ttl: s.ttl}
	return s
}

// Prediction is a formatted forecast for one stock.
type Prediction struct {
	Code           string                    `json:"code"`
	Name           string                    `json:"name"`
	Method         string                    `json:"method"`
	Message        string                    `json:"message"`
	PredictedPrice float64                   `json:"predicted_price"`
	TargetDate     string                    `json:"target_date"`
	LastDate       string                    `json:"last_date"`
	LastClose      float64                   `json:"last_close"`
	BarsUsed       int                       `json:"bars_used"`
	ExcludedToday  bool                      `json:"excluded_today"`
	High52w        float64                   `json:"high_52w"`
	Low52w         float64                   `json:"low_52w"`
	Position52     float64                   `json:"position_52w"`
	Components     *model.EnsembleComponents `json:"components,omitempty"`

	Bundle *model.PredictionBundle `json:"-"`
	Bars   []model.DailyBar        `json:"-"`
}

// Predict forecasts the next close of a domestic stock from years of history.
func (s *Service) Predict(ctx context.Context, code string, years int, method forecast.Method) (*Prediction, error) {
	if method == "" {
		method = forecast.MethodEnsemble
	}
	start := time.Now()
	pred, err := s.predict(ctx, code, years, method)
	if err != nil {
		metrics.ForecastErrors.WithLabelValues(string(method), ErrorKind(err)).Inc()
		s.log.Warn("forecast failed",
			logger.String("code", code),
			logger.String("method", string(method)),
			logger.Error(err),
		)
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.ForecastDuration.WithLabelValues(string(method)).Observe(elapsed.Seconds())
	if s.tracked[code] {
		metrics.PredictedPrice.WithLabelValues(code, string(method)).Set(pred.PredictedPrice)
	}
	s.log.Info("forecast completed",
		logger.String("code", code),
		logger.String("method", string(method)),
		logger.Float64("predicted_price", pred.PredictedPrice),
		logger.Int("bars_used", pred.BarsUsed),
		logger.Duration("elapsed", elapsed),
	)

	s.persist(ctx, pred)
	return pred, nil
}

func (s *Service) predict(ctx context.Context, code string, years int, method forecast.Method) (*Prediction, error) {
	snap, err := collector.Collect(ctx, s.source, code, years, s.clock.Location)
	if err != nil {
		return nil, err
	}
	window, err := s.clock.Select(snap.Bars, s.now())
	if err != nil {
		return nil, forecast.InsufficientHistoryError{Model: string(method), Need: method.MinBars(), Have: len(snap.Bars), Err: err}
	}

	bundle, err := forecast.Forecast(window.Bars, method, s.opts)
	if err != nil {
		return nil, err
	}
	bundle.TargetDate = window.TargetDate

	return &Prediction{
		Code:           code,
		Name:           snap.Name,
		Method:         bundle.Method,
		Message:        notifier.FormatPrediction(snap.Name, code, bundle.TargetDate, bundle.PredictedPrice),
		PredictedPrice: bundle.PredictedPrice,
		TargetDate:     bundle.TargetDate.Format("2006-01-02"),
		LastDate:       bundle.LastDate.Format("2006-01-02"),
		LastClose:      bundle.LastClose,
		BarsUsed:       bundle.BarsUsed,
		ExcludedToday:  window.ExcludedToday,
		High52w:        snap.High52w,
		Low52w:         snap.Low52w,
		Position52:     snap.Position52,
		Components:     bundle.Components,
		Bundle:         bundle,
		Bars:           window.Bars,
	}, nil
}

// persist records and publishes a finished forecast. Failures are logged only.
func (s *Service) persist(ctx context.Context, p *Prediction) {
	created := s.now()
	rec := &recorder.PredictionRecord{
		Code:           p.Code,
		Name:           p.Name,
		Method:         p.Method,
		PredictedPrice: p.PredictedPrice,
		LastClose:      p.LastClose,
		LastDate:       p.Bundle.LastDate,
		TargetDate:     p.Bundle.TargetDate,
		BarsUsed:       p.BarsUsed,
		Message:        p.Message,
		CreatedAt:      created,
	}
	if c := p.Components; c != nil {
		rec.SequencePrediction = c.SequencePrediction
		rec.TreePrediction = c.TreePrediction
	}
	if err := s.recorder.RecordPrediction(ctx, rec); err != nil {
		s.log.Error("record prediction", logger.String("code", p.Code), logger.Error(err))
	}

	ev := events.PredictionEvent{
		Type:           events.TypePredictionCreated,
		Code:           p.Code,
		Name:           p.Name,
		Method:         p.Method,
		PredictedPrice: p.PredictedPrice,
		LastClose:      p.LastClose,
		TargetDate:     p.TargetDate,
		Message:        p.Message,
		CreatedAt:      created,
	}
	if err := s.publisher.PublishPrediction(ctx, ev); err != nil {
		s.log.Warn("publish prediction event", logger.String("code", p.Code), logger.Error(err))
	}
}

// History returns recorded forecasts for code, newest first.
func (s *Service) History(ctx context.Context, code string, limit int) ([]recorder.PredictionRecord, error) {
	return s.recorder.RecentPredictions(ctx, code, limit)
}

// ErrorKind classifies an error for metrics and API responses.
func ErrorKind(err error) string {
	var (
		insufficient forecast.InsufficientHistoryError
		quality      forecast.DataQualityError
		computation  forecast.ComputationError
		noHistory    collector.ErrNoHistory
	)
	switch {
	case errors.As(err, &insufficient):
		return "insufficient_history"
	case errors.As(err, &quality):
		return "data_quality"
	case errors.As(err, &computation):
		return "computation"
	case errors.As(err, &noHistory):
		return "no_history"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "other"
	}
}

// Title is the display name of a stock, "name(code)".
func Title(name, code string) string {
	return fmt.Sprintf("%s(%s)", name, code)
}
