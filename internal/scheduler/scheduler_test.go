package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"PredictiBoot/internal/forecast"
	"PredictiBoot/internal/logger"
	"PredictiBoot/internal/model"
	"PredictiBoot/internal/recorder"
	"PredictiBoot/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	methods []forecast.Method
}

func (f *fakeService) Predict(_ context.Context, code string, _ int, method forecast.Method) (*service.Prediction, error) {
	f.methods = append(f.methods, method)
	if code == "bad" {
		return nil, forecast.InsufficientHistoryError{Model: "arima", Need: 20, Have: 3}
	}
	return &service.Prediction{
		Code:           code,
		Message:        "msg-" + code,
		LastClose:      1000,
		PredictedPrice: 1010,
	}, nil
}

func (f *fakeService) Search(_ context.Context, query string) ([]model.StockListing, error) {
	if query == "fail" {
		return nil, errors.New("krx down")
	}
	if query == "many" {
		out := make([]model.StockListing, 12)
		for i := range out {
			out[i] = model.StockListing{Code: fmt.Sprintf("%06d", i), Name: "n", Market: "KOSDAQ"}
		}
		return out, nil
	}
	return []model.StockListing{{Code: "005930", Name: "삼성전자", Market: "KOSPI"}}, nil
}

type fakeSender struct{ texts []string }

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.texts = append(f.texts, text)
	return nil
}

type jobRecorder struct {
	recorder.NoopRecorder
	runs []recorder.JobRun
}

func (j *jobRecorder) RecordJobRun(_ context.Context, run *recorder.JobRun) error {
	j.runs = append(j.runs, *run)
	return nil
}

func newTestScheduler(watchlist ...string) (*Scheduler, *fakeService, *fakeSender, *jobRecorder) {
	svc, sender, rec := &fakeService{}, &fakeSender{}, &jobRecorder{}
	s := NewScheduler(context.Background(), svc, sender, rec, Settings{Watchlist: watchlist}, logger.Nop())
	return s, svc, sender, rec
}

func TestDailyTask(t *testing.T) {
	s, svc, sender, rec := newTestScheduler("005930", "bad")
	s.RunNow()

	assert.Equal(t, []forecast.Method{forecast.MethodEnsemble, forecast.MethodEnsemble}, svc.methods)
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "msg-005930")
	assert.Contains(t, sender.texts[0], "❌ bad")
	assert.Contains(t, sender.texts[0], "완료 1 / 2")

	require.Len(t, rec.runs, 2)
	assert.Equal(t, "OK", rec.runs[0].Status)
	assert.Equal(t, "FAILED", rec.runs[1].Status)
	assert.NotEmpty(t, rec.runs[1].Error)
}

func TestRegister(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	require.NoError(t, s.Register("not a cron"), "empty watchlist skips registration")
	assert.Empty(t, s.Cron.Entries())

	s, _, _, _ = newTestScheduler("005930")
	require.NoError(t, s.Register("0 10 16 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("0 10 16 * *"))
}

func TestHandleCommand(t *testing.T) {
	s, svc, _, _ := newTestScheduler()
	ctx := context.Background()

	assert.Equal(t, "msg-005930", s.HandleCommand(ctx, "/predict 005930"))
	assert.Equal(t, "msg-005930", s.HandleCommand(ctx, "/predict 005930 arima"))
	assert.Equal(t, forecast.MethodARIMA, svc.methods[1])
	assert.Contains(t, s.HandleCommand(ctx, "/predict 005930 prophet"), "unknown forecast method")
	assert.Contains(t, s.HandleCommand(ctx, "/predict bad"), "예측 실패")
	assert.Contains(t, s.HandleCommand(ctx, "/predict"), "종목코드")

	assert.Equal(t, "005930 삼성전자 (KOSPI)", s.HandleCommand(ctx, "/search 삼성"))
	assert.Contains(t, s.HandleCommand(ctx, "/search fail"), "검색 실패")
	many := s.HandleCommand(ctx, "/search many")
	assert.Equal(t, 10, strings.Count(many, "KOSDAQ"))
	assert.Contains(t, many, "외 2개")

	assert.Contains(t, s.HandleCommand(ctx, "/help"), "/predict")
	assert.Contains(t, s.HandleCommand(ctx, ""), "/search")
}
