package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"PredictiBoot/internal/model"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// krxMarkets maps the KIND download market types to their display names.
var krxMarkets = []struct {
	param string
	name  string
}{
	{"stockMkt", "KOSPI"},
	{"kosdaqMkt", "KOSDAQ"},
}

// KRXListing downloads the KOSPI and KOSDAQ corporation lists from KRX KIND.
type KRXListing struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

// NewKRXListing creates a listing source with optional proxy support.
func NewKRXListing(baseURL, userAgent string, timeout time.Duration, proxyURL string) *KRXListing {
	return &KRXListing{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		Client:    newHTTPClient(proxyURL, timeout),
	}
}

// Listings returns every KOSPI and KOSDAQ stock.
func (k *KRXListing) Listings(ctx context.Context) ([]model.StockListing, error) {
	var all []model.StockListing
	for _, m := range krxMarkets {
		listings, err := k.market(ctx, m.param, m.name)
		if err != nil {
			return nil, fmt.Errorf("krx %s: %w", m.name, err)
		}
		all = append(all, listings...)
	}
	return all, nil
}

func (k *KRXListing) market(ctx context.Context, param, name string) ([]model.StockListing, error) {
	u := fmt.Sprintf("%s/corpgeneral/corpList.do?method=download&marketType=%s", k.BaseURL, param)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if k.UserAgent != "" {
		req.Header.Set("User-Agent", k.UserAgent)
	}
	resp, err := k.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}
	return parseCorpList(doc, name)
}

// parseCorpList locates the name and code columns by their headers.
func parseCorpList(doc *goquery.Document, market string) ([]model.StockListing, error) {
	nameCol, codeCol := -1, -1
	doc.Find("tr").First().Find("th, td").Each(func(i int, s *goquery.Selection) {
		switch strings.TrimSpace(s.Text()) {
		case "회사명":
			nameCol = i
		case "종목코드":
			codeCol = i
		}
	})
	if nameCol < 0 || codeCol < 0 {
		return nil, fmt.Errorf("corp list has no 회사명/종목코드 header")
	}

	var out []model.StockListing
	doc.Find("tr").Slice(1, goquery.ToEnd).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() <= nameCol || cells.Length() <= codeCol {
			return
		}
		name := strings.TrimSpace(cells.Eq(nameCol).Text())
		code := strings.TrimSpace(cells.Eq(codeCol).Text())
		if name == "" || code == "" {
			return
		}
		if len(code) < 6 {
			code = strings.Repeat("0", 6-len(code)) + code
		}
		out = append(out, model.StockListing{Code: code, Name: name, Market: market})
	})
	return out, nil
}

// SearchListings returns the listings whose name contains query, ignoring case.
func SearchListings(listings []model.StockListing, query string) []model.StockListing {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []model.StockListing{}
	if q == "" {
		return out
	}
	for _, l := range listings {
		if strings.Contains(strings.ToLower(l.Name), q) {
			out = append(out, l)
		}
	}
	return out
}
