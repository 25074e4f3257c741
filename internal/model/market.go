package model

import "time"

// DailyBar represents a single trading day.
type DailyBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Change string    `json:"change,omitempty"` // as scraped, unused by the models
}

// RawBar is a daily row as scraped, before numeric coercion.
type RawBar struct {
	Date   string `json:"date"`
	Close  string `json:"closing_price"`
	Change string `json:"change"`
	Open   string `json:"opening_price"`
	High   string `json:"high_price"`
	Low    string `json:"low_price"`
	Volume string `json:"volume"`
}

// StockListing is one entry of the exchange ticker list.
type StockListing struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market,omitempty"`
}

// NewsArticle is a headline attached to a stock.
type NewsArticle struct {
	Title  string `json:"title"`
	Link   string `json:"link"`
	Source string `json:"source"`
	Date   string `json:"date"`
}
