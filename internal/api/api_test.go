package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PredictiBoot/internal/collector"
	"PredictiBoot/internal/forecast"
	"PredictiBoot/internal/logger"
	"PredictiBoot/internal/model"
	"PredictiBoot/internal/ratelimit"
	"PredictiBoot/internal/recorder"
	"PredictiBoot/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type predictCall struct {
	code   string
	years  int
	method forecast.Method
}

type fakeService struct {
	calls []predictCall
	err   error
}

func (f *fakeService) Predict(_ context.Context, code string, years int, method forecast.Method) (*service.Prediction, error) {
	if code == "PANIC1" {
		panic("boom")
	}
	f.calls = append(f.calls, predictCall{code, years, method})
	if f.err != nil {
		return nil, f.err
	}
	return &service.Prediction{Code: code, Name: "삼성전자", Method: string(method), Message: "msg", PredictedPrice: 78000}, nil
}

func (f *fakeService) Analyze(_ context.Context, code string, _ int) (*service.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.Analysis{Prediction: &service.Prediction{Code: code}, News: []model.NewsArticle{}, Commentary: "ok"}, nil
}

func (f *fakeService) Search(_ context.Context, query string) ([]model.StockListing, error) {
	if query == "none" {
		return []model.StockListing{}, nil
	}
	return []model.StockListing{{Code: "005930", Name: "삼성전자", Market: "KOSPI"}}, nil
}

func (f *fakeService) News(context.Context, string, int) []model.NewsArticle {
	return []model.NewsArticle{}
}

func (f *fakeService) International(_ context.Context, ticker, _ string) ([]model.DailyBar, error) {
	if ticker == "NONE" {
		return nil, collector.ErrNoHistory{Code: ticker}
	}
	return []model.DailyBar{{Date: time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), Close: 212.5, Volume: 100}}, nil
}

func (f *fakeService) Chart(_ context.Context, _ string, _ int, w io.Writer) (*service.Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	_, err := w.Write([]byte("\x89PNG fake"))
	return &service.Prediction{}, err
}

func (f *fakeService) History(context.Context, string, int) ([]recorder.PredictionRecord, error) {
	return []recorder.PredictionRecord{{Code: "005930"}}, nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(svc StockService, limiter *ratelimit.Limiter) *Server {
	return NewServer(NewStockHandler(logger.Nop(), svc, limiter), logger.Nop())
}

func do(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	var env envelope
	if rec.Header().Get("Content-Type") == "application/json; charset=UTF-8" || rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func firstError(t *testing.T, env envelope) map[string]interface{} {
	t.Helper()
	var errs []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.NotEmpty(t, errs)
	return errs[0]
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(&fakeService{}, nil)

	rec, _ := do(t, s, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to PredictiBoot"}`, rec.Body.String())

	rec, _ = do(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPredict(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(svc, nil)

	rec, env := do(t, s, "/stocks/domestic/predict?code=005930")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.Status)
	var pred service.Prediction
	require.NoError(t, json.Unmarshal(env.Data, &pred))
	assert.Equal(t, "msg", pred.Message)
	require.Len(t, svc.calls, 1)
	assert.Equal(t, predictCall{"005930", 1, forecast.MethodEnsemble}, svc.calls[0])

	rec, _ = do(t, s, "/stocks/domestic/predict?code=005930&years=3&model=arima")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, predictCall{"005930", 3, forecast.MethodARIMA}, svc.calls[1])
}

func TestPredict_Validation(t *testing.T) {
	s := newTestServer(&fakeService{}, nil)

	tests := []struct {
		name  string
		query string
		code  string
		field string
	}{
		{"missing code", "", "ERR_REQUIRED", "Code"},
		{"short code", "code=5930", "ERR_LEN", "Code"},
		{"bad years", "code=005930&years=5", "ERR_ONEOF", "Years"},
		{"bad model", "code=005930&model=prophet", "ERR_ONEOF", "Model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, s, "/stocks/domestic/predict?"+tt.query)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			e := firstError(t, env)
			assert.Equal(t, tt.code, e["code"])
			assert.Equal(t, tt.field, e["field"])
		})
	}

	rec, env := do(t, s, "/stocks/domestic/predict?code=005930&years=abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ERR_UNKNOWN", firstError(t, env)["code"])
}

func TestPredict_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{forecast.InsufficientHistoryError{Model: "ensemble", Need: 90, Have: 40}, http.StatusBadRequest, "ERR_INSUFFICIENT_HISTORY"},
		{forecast.DataQualityError{Reason: "no rows"}, http.StatusUnprocessableEntity, "ERR_DATA_QUALITY"},
		{fmt.Errorf("fit: %w", forecast.ComputationError{Stage: "meta", Err: errors.New("singular")}), http.StatusInternalServerError, "ERR_COMPUTATION"},
		{collector.ErrNoHistory{Code: "005930"}, http.StatusNotFound, "ERR_NOT_FOUND"},
		{service.ErrUnavailable, http.StatusServiceUnavailable, "ERR_UNAVAILABLE"},
		{errors.New("naver down"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			s := newTestServer(&fakeService{err: tt.err}, nil)
			rec, env := do(t, s, "/stocks/domestic/predict?code=005930")
			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status, env.Status)
			assert.Equal(t, tt.code, firstError(t, env)["code"])
		})
	}

	s := newTestServer(&fakeService{err: forecast.InsufficientHistoryError{Model: "ensemble", Need: 90, Have: 40}}, nil)
	_, env := do(t, s, "/stocks/domestic/predict?code=005930")
	params := firstError(t, env)["params"].(map[string]interface{})
	assert.Equal(t, float64(90), params["need"])
}

func TestPredict_RateLimited(t *testing.T) {
	s := newTestServer(&fakeService{}, ratelimit.New(1, 0.001))

	rec, _ := do(t, s, "/stocks/domestic/predict?code=005930")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, s, "/stocks/domestic/predict?code=005930")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "ERR_RATE_LIMITED", firstError(t, env)["code"])
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec, _ = do(t, s, "/stocks/domestic/search?query=sk")
	assert.Equal(t, http.StatusOK, rec.Code, "search is not rate limited")
}

func TestPredict_PanicRecovered(t *testing.T) {
	s := newTestServer(&fakeService{}, nil)
	rec, _ := do(t, s, "/stocks/domestic/predict?code=PANIC1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearch(t *testing.T) {
	s := newTestServer(&fakeService{}, nil)

	rec, env := do(t, s, "/stocks/domestic/search?query=%EC%82%BC%EC%84%B1")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []model.StockListing `json:"rows"`
		Total int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "005930", list.Rows[0].Code)

	rec, _ = do(t, s, "/stocks/domestic/search?query=none")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, s, "/stocks/domestic/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewsAnalyzeAndHistory(t *testing.T) {
	s := newTestServer(&fakeService{}, nil)

	rec, _ := do(t, s, "/stocks/domestic/news?code=005930")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, s, "/stocks/domestic/news?code=005930&limit=50")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := do(t, s, "/stocks/domestic/analyze?code=005930")
	require.Equal(t, http.StatusOK, rec.Code)
	var a service.Analysis
	require.NoError(t, json.Unmarshal(env.Data, &a))
	assert.Equal(t, "ok", a.Commentary)

	rec, _ = do(t, s, "/stocks/domestic/predictions")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChart(t *testing.T) {
	s := newTestServer(&fakeService{}, nil)
	rec, _ := do(t, s, "/stocks/domestic/chart?code=005930")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	s = newTestServer(&fakeService{err: collector.ErrNoHistory{Code: "005930"}}, nil)
	rec, _ = do(t, s, "/stocks/domestic/chart?code=005930")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInternational(t *testing.T) {
	s := newTestServer(&fakeService{}, nil)

	rec, env := do(t, s, "/stocks/international/historical?ticker=AAPL")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Period  string             `json:"period"`
		Records []HistoricalRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "1y", body.Period)
	require.Len(t, body.Records, 1)
	assert.Equal(t, "2024-06-14", body.Records[0].Date)

	rec, _ = do(t, s, "/stocks/international/historical?ticker=AAPL&period=7y")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, "/stocks/international/historical?ticker=NONE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(&fakeService{}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/stocks/domestic/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
