package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PredictiBoot/internal/forecast"
	"PredictiBoot/internal/logger"
	"PredictiBoot/internal/model"
	"PredictiBoot/internal/notifier"
	"PredictiBoot/internal/recorder"
	"PredictiBoot/internal/service"

	"github.com/robfig/cron/v3"
)

// maxSearchResults caps the /search reply.
const maxSearchResults = 10

// Predictor is the part of the service the scheduler drives.
type Predictor interface {
	Predict(ctx context.Context, code string, years int, method forecast.Method) (*service.Prediction, error)
	Search(ctx context.Context, query string) ([]model.StockListing, error)
}

// Sender delivers a report.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Settings is the watchlist job configuration.
type Settings struct {
	Watchlist []string
	Method    forecast.Method
	Years     int
	Location  *time.Location
}

// Scheduler manages the cron job and answers bot commands.
type Scheduler struct {
	Cron     *cron.Cron
	Service  Predictor
	Notifier Sender
	Recorder recorder.Recorder
	Settings Settings
	Ctx      context.Context
	log      *logger.Logger
	now      func() time.Time
}

// NewScheduler creates a new Scheduler. Cron expressions carry a seconds
// field and are evaluated in the market timezone.
func NewScheduler(ctx context.Context, svc Predictor, sender Sender, rec recorder.Recorder, settings Settings, log *logger.Logger) *Scheduler {
	loc := settings.Location
	if loc == nil {
		loc = time.Local
	}
	if settings.Years == 0 {
		settings.Years = 1
	}
	if settings.Method == "" {
		settings.Method = forecast.MethodEnsemble
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Service:  svc,
		Notifier: sender,
		Recorder: rec,
		Settings: settings,
		Ctx:      ctx,
		log:      log,
		now:      time.Now,
	}
}

// Register schedules the watchlist forecast.
func (s *Scheduler) Register(spec string) error {
	if len(s.Settings.Watchlist) == 0 {
		s.log.Info("empty watchlist, daily forecast not scheduled")
		return nil
	}
	if _, err := s.Cron.AddFunc(spec, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	s.log.Info("daily forecast scheduled",
		logger.String("cron", spec),
		logger.Strings("watchlist", s.Settings.Watchlist),
	)
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes the watchlist forecast immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	s.log.Info("running daily forecast", logger.Int("stocks", len(s.Settings.Watchlist)))
	items := make([]notifier.ReportItem, 0, len(s.Settings.Watchlist))

	for _, code := range s.Settings.Watchlist {
		if s.Ctx.Err() != nil {
			return
		}
		start := time.Now()
		pred, err := s.Service.Predict(s.Ctx, code, s.Settings.Years, s.Settings.Method)
		run := &recorder.JobRun{Job: "daily", Code: code, Status: "OK", Duration: time.Since(start)}
		if err != nil {
			s.log.Error("daily forecast", logger.String("code", code), logger.Error(err))
			run.Status, run.Error = "FAILED", err.Error()
			items = append(items, notifier.ReportItem{Code: code, Err: err})
		} else {
			items = append(items, notifier.ReportItem{
				Code:       code,
				Message:    pred.Message,
				LastClose:  pred.LastClose,
				Predicted:  pred.PredictedPrice,
				High52w:    pred.High52w,
				Low52w:     pred.Low52w,
				Position52: pred.Position52,
			})
		}
		if err := s.Recorder.RecordJobRun(s.Ctx, run); err != nil {
			s.log.Error("record job run", logger.Error(err))
		}
	}

	s.trySend(notifier.FormatDailyReport(s.now(), items))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText()
	}
	switch fields[0] {
	case "/predict", "/예측":
		if len(fields) < 2 {
			return "종목코드를 입력하세요. 예: /predict 005930"
		}
		method := s.Settings.Method
		if len(fields) > 2 {
			m, err := forecast.ParseMethod(fields[2])
			if err != nil {
				return fmt.Sprintf("❌ %v", err)
			}
			method = m
		}
		pred, err := s.Service.Predict(ctx, fields[1], s.Settings.Years, method)
		if err != nil {
			return fmt.Sprintf("❌ 예측 실패: %v", err)
		}
		return pred.Message
	case "/search", "/검색":
		if len(fields) < 2 {
			return "종목명을 입력하세요. 예: /search 삼성"
		}
		query := strings.Join(fields[1:], " ")
		results, err := s.Service.Search(ctx, query)
		if err != nil {
			return fmt.Sprintf("❌ 검색 실패: %v", err)
		}
		return formatSearch(query, results)
	case "/report":
		s.dailyTask()
		return ""
	default:
		return notifier.HelpText()
	}
}

func formatSearch(query string, results []model.StockListing) string {
	if len(results) == 0 {
		return fmt.Sprintf("'%s'에 해당하는 종목이 없습니다.", query)
	}
	var b strings.Builder
	for i, r := range results {
		if i == maxSearchResults {
			b.WriteString(fmt.Sprintf("... 외 %d개", len(results)-maxSearchResults))
			break
		}
		b.WriteString(fmt.Sprintf("%s %s (%s)\n", r.Code, r.Name, r.Market))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error("send notification", logger.Error(err))
	}
}
