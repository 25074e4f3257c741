package api

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"PredictiBoot/internal/forecast"
	"PredictiBoot/internal/logger"
	"PredictiBoot/internal/model"
	"PredictiBoot/internal/ratelimit"
	"PredictiBoot/internal/recorder"
	"PredictiBoot/internal/service"

	"github.com/labstack/echo/v4"
)

// StockService is what the HTTP handlers call.
type StockService interface {
	Predict(ctx context.Context, code string, years int, method forecast.Method) (*service.Prediction, error)
	Analyze(ctx context.Context, code string, years int) (*service.Analysis, error)
	Search(ctx context.Context, query string) ([]model.StockListing, error)
	News(ctx context.Context, code string, limit int) []model.NewsArticle
	International(ctx context.Context, ticker, period string) ([]model.DailyBar, error)
	Chart(ctx context.Context, code string, years int, w io.Writer) (*service.Prediction, error)
	History(ctx context.Context, code string, limit int) ([]recorder.PredictionRecord, error)
}

// StockHandler serves the stock endpoints.
type StockHandler struct {
	logger  *logger.Logger
	svc     StockService
	limiter *ratelimit.Limiter
}

// NewStockHandler creates the handler. A nil limiter disables rate limiting.
func NewStockHandler(log *logger.Logger, svc StockService, limiter *ratelimit.Limiter) *StockHandler {
	return &StockHandler{logger: log, svc: svc, limiter: limiter}
}

func (h *StockHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/healthz", h.Health)

	d := e.Group("/stocks/domestic")
	d.GET("/search", h.Search)
	d.GET("/news", h.News)
	d.GET("/predictions", h.Predictions)

	limit := RateLimit(h.limiter)
	d.GET("/predict", h.Predict, limit)
	d.GET("/analyze", h.Analyze, limit)
	d.GET("/chart", h.Chart, limit)

	e.GET("/stocks/international/historical", h.International)
}

func (h *StockHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Welcome to PredictiBoot"})
}

func (h *StockHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *StockHandler) Search(c echo.Context) error {
	req := &SearchRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	res, err := h.svc.Search(c.Request().Context(), req.Query)
	if err != nil {
		h.logger.Error("search usecase error", logger.String("query", req.Query), logger.Error(err))
		return AppErrorResponse(c, err)
	}
	if len(res) == 0 {
		return AppErrorResponse(c, NotFoundError("no stock matches the query").WithParam("query", req.Query))
	}
	return ListResponse(c, res, len(res))
}

func (h *StockHandler) News(c echo.Context) error {
	req := &NewsRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	news := h.svc.News(c.Request().Context(), req.Code, req.Limit)
	return ListResponse(c, news, len(news))
}

func (h *StockHandler) Predict(c echo.Context) error {
	req := &PredictRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	method, err := forecast.ParseMethod(req.Model)
	if err != nil {
		return AppErrorResponse(c, NewAppError("ERR_ONEOF", "Model", err.Error(), http.StatusBadRequest))
	}
	res, err := h.svc.Predict(c.Request().Context(), req.Code, req.Years, method)
	if err != nil {
		h.logger.Error("predict usecase error", logger.String("code", req.Code), logger.Error(err))
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, res)
}

func (h *StockHandler) Analyze(c echo.Context) error {
	req := &StockRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	res, err := h.svc.Analyze(c.Request().Context(), req.Code, req.Years)
	if err != nil {
		h.logger.Error("analyze usecase error", logger.String("code", req.Code), logger.Error(err))
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, res)
}

func (h *StockHandler) Chart(c echo.Context) error {
	req := &StockRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	var buf bytes.Buffer
	if _, err := h.svc.Chart(c.Request().Context(), req.Code, req.Years, &buf); err != nil {
		h.logger.Error("chart usecase error", logger.String("code", req.Code), logger.Error(err))
		return AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (h *StockHandler) Predictions(c echo.Context) error {
	req := &HistoryRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	rows, err := h.svc.History(c.Request().Context(), req.Code, req.Limit)
	if err != nil {
		h.logger.Error("history usecase error", logger.Error(err))
		return AppErrorResponse(c, err)
	}
	return ListResponse(c, rows, len(rows))
}

func (h *StockHandler) International(c echo.Context) error {
	req := &InternationalRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	bars, err := h.svc.International(c.Request().Context(), req.Ticker, req.Period)
	if err != nil {
		h.logger.Error("international usecase error", logger.String("ticker", req.Ticker), logger.Error(err))
		return AppErrorResponse(c, err)
	}
	records := make([]HistoricalRecord, len(bars))
	for i, b := range bars {
		records[i] = HistoricalRecord{
			Date:   b.Date.Format("2006-01-02"),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return SuccessResponse(c, map[string]interface{}{
		"ticker":  req.Ticker,
		"period":  req.Period,
		"records": records,
	})
}
