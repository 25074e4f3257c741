package api

// SearchRequest is the query of GET /stocks/domestic/search.
type SearchRequest struct {
	Query string `query:"query" json:"query" validate:"required,max=50"`
}

// NewsRequest is the query of GET /stocks/domestic/news.
type NewsRequest struct {
	Code  string `query:"code" json:"code" validate:"required,alphanum,len=6"`
	Limit int    `query:"limit" json:"limit" default:"5" validate:"gte=1,lte=20"`
}

// PredictRequest is the query of GET /stocks/domestic/predict.
type PredictRequest struct {
	Code  string `query:"code" json:"code" validate:"required,alphanum,len=6"`
	Years int    `query:"years" json:"years" default:"1" validate:"oneof=1 2 3"`
	Model string `query:"model" json:"model" default:"ensemble" validate:"oneof=arima lstm ensemble"`
}

// StockRequest is the query of the analyze and chart endpoints.
type StockRequest struct {
	Code  string `query:"code" json:"code" validate:"required,alphanum,len=6"`
	Years int    `query:"years" json:"years" default:"1" validate:"oneof=1 2 3"`
}

// HistoryRequest is the query of GET /stocks/domestic/predictions.
type HistoryRequest struct {
	Code  string `query:"code" json:"code" validate:"omitempty,alphanum,len=6"`
	Limit int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=200"`
}

// InternationalRequest is the query of GET /stocks/international/historical.
type InternationalRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,max=20"`
	Period string `query:"period" json:"period" default:"1y" validate:"oneof=1d 5d 1mo 3mo 6mo 1y 2y 5y 10y ytd max"`
}

// HistoricalRecord is one day of international history.
type HistoricalRecord struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}
