package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"PredictiBoot/internal/model"
)

// DomesticSource fetches Korean market data by six-digit stock code.
type DomesticSource interface {
	FetchHistory(ctx context.Context, code string, years int) ([]model.RawBar, error)
	FetchStockName(ctx context.Context, code string) (string, error)
	FetchNews(ctx context.Context, code string, limit int) ([]model.NewsArticle, error)
	Name() string
}

// ListingSource lists every stock of the covered exchanges.
type ListingSource interface {
	Listings(ctx context.Context) ([]model.StockListing, error)
}

// InternationalSource fetches daily history for an exchange ticker.
type InternationalSource interface {
	FetchHistory(ctx context.Context, ticker, period string) ([]model.DailyBar, error)
}

// newHTTPClient returns a client routed through proxyURL when it is set.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
