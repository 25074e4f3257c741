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

const (
	// PagesPerYear is how many ten-row price pages cover one year of sessions.
	PagesPerYear = 26
	// UnknownStockName is shown when a code cannot be resolved.
	UnknownStockName = "알 수 없는 종목"
)

// NaverFetcher scrapes Naver Finance item pages.
type NaverFetcher struct {
	BaseURL   string
	UserAgent string
	PageDelay time.Duration
	Client    *http.Client
}

// NewNaverFetcher creates a fetcher with optional proxy support.
func NewNaverFetcher(baseURL, userAgent string, pageDelay, timeout time.Duration, proxyURL string) *NaverFetcher {
	return &NaverFetcher{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		PageDelay: pageDelay,
		Client:    newHTTPClient(proxyURL, timeout),
	}
}

func (f *NaverFetcher) Name() string { return "naver" }

// document fetches a page and decodes it from whatever charset it declares.
func (f *NaverFetcher) document(ctx context.Context, path string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("naver fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("naver: status %d for %s", resp.StatusCode, path)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("naver charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("naver parse: %w", err)
	}
	return doc, nil
}

// FetchPage returns the rows of one daily price page, newest first. A page
// without the price table or without any complete row yields no rows.
func (f *NaverFetcher) FetchPage(ctx context.Context, code string, page int) ([]model.RawBar, error) {
	doc, err := f.document(ctx, fmt.Sprintf("/item/sise_day.nhn?code=%s&page=%d", code, page))
	if err != nil {
		return nil, err
	}
	var rows []model.RawBar
	doc.Find("table.type2 tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 7 {
			return
		}
		text := func(i int) string {
			return strings.Join(strings.Fields(cells.Eq(i).Text()), " ")
		}
		row := model.RawBar{
			Date:   text(0),
			Close:  text(1),
			Change: text(2),
			Open:   text(3),
			High:   text(4),
			Low:    text(5),
			Volume: text(6),
		}
		if row.Date == "" || row.Close == "" {
			return
		}
		rows = append(rows, row)
	})
	return rows, nil
}

// FetchHistory walks PagesPerYear pages per year, stopping early at an empty
// page or when the site starts repeating its last page.
func (f *NaverFetcher) FetchHistory(ctx context.Context, code string, years int) ([]model.RawBar, error) {
	if years < 1 {
		years = 1
	}
	var all []model.RawBar
	var lastFirst string
	for page := 1; page <= years*PagesPerYear; page++ {
		rows, err := f.FetchPage(ctx, code, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if len(rows) == 0 || rows[0].Date == lastFirst {
			break
		}
		lastFirst = rows[0].Date
		all = append(all, rows...)

		if f.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.PageDelay):
			}
		}
	}
	return all, nil
}

// FetchStockName reads the company name from the item main page. It returns
// UnknownStockName together with any error.
func (f *NaverFetcher) FetchStockName(ctx context.Context, code string) (string, error) {
	doc, err := f.document(ctx, "/item/main.nhn?code="+code)
	if err != nil {
		return UnknownStockName, err
	}
	name := strings.TrimSpace(doc.Find("div.wrap_company a").First().Text())
	if name == "" {
		return UnknownStockName, nil
	}
	return name, nil
}

// FetchNews returns up to limit headlines from the item news table.
func (f *NaverFetcher) FetchNews(ctx context.Context, code string, limit int) ([]model.NewsArticle, error) {
	doc, err := f.document(ctx, "/item/news.naver?code="+code)
	if err != nil {
		return nil, err
	}
	news := []model.NewsArticle{}
	doc.Find("table.type5 tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if len(news) >= limit {
			return false
		}
		title := tr.Find("a.title").First()
		info := tr.Find("td.info").First()
		date := tr.Find("td.date").First()
		if title.Length() == 0 || info.Length() == 0 || date.Length() == 0 {
			return true
		}
		href, _ := title.Attr("href")
		news = append(news, model.NewsArticle{
			Title:  strings.TrimSpace(title.Text()),
			Link:   "https://finance.naver.com" + href,
			Source: strings.TrimSpace(info.Text()),
			Date:   strings.TrimSpace(date.Text()),
		})
		return true
	})
	return news, nil
}
