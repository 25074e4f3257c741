package service

import (
	"context"
	"time"

	"PredictiBoot/internal/cache"
	"PredictiBoot/internal/collector"
	"PredictiBoot/internal/metrics"
	"PredictiBoot/internal/model"
)

// cachedSource caches stock names and news in front of a DomesticSource and
// observes the latency of every upstream call.
type cachedSource struct {
	collector.DomesticSource
	cache cache.Service
	ttl   TTLs
}

func observe(source, operation string, start time.Time, err error) {
	metrics.ScrapeDuration.WithLabelValues(source, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ScrapeErrors.WithLabelValues(source, operation).Inc()
	}
}

func (c *cachedSource) FetchHistory(ctx context.Context, code string, years int) ([]model.RawBar, error) {
	start := time.Now()
	rows, err := c.DomesticSource.FetchHistory(ctx, code, years)
	observe(c.Name(), "history", start, err)
	return rows, err
}

func (c *cachedSource) FetchStockName(ctx context.Context, code string) (string, error) {
	key := cache.GenerateKey("name", code)
	return cache.GetOrLoad(ctx, c.cache, key, c.ttl.Name, func(ctx context.Context) (string, error) {
		start := time.Now()
		name, err := c.DomesticSource.FetchStockName(ctx, code)
		observe(c.Name(), "name", start, err)
		return name, err
	})
}

func (c *cachedSource) FetchNews(ctx context.Context, code string, limit int) ([]model.NewsArticle, error) {
	key := cache.GenerateKey("news", code, limit)
	return cache.GetOrLoad(ctx, c.cache, key, c.ttl.News, func(ctx context.Context) ([]model.NewsArticle, error) {
		start := time.Now()
		news, err := c.DomesticSource.FetchNews(ctx, code, limit)
		observe(c.Name(), "news", start, err)
		return news, err
	})
}
