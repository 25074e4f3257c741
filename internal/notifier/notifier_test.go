package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"PredictiBoot/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPrediction(t *testing.T) {
	target := time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)
	got := FormatPrediction("삼성전자", "005930", target, 78123.9)
	assert.Equal(t, "삼성전자(005930)의 6월 17일 예상 종가는 78,123원 입니다.", got)

	assert.Equal(t, "1,234,567", FormatPrice(1234567.99))
	assert.Equal(t, "950", FormatPrice(950))
}

func TestFormatDailyReport(t *testing.T) {
	date := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	out := FormatDailyReport(date, []ReportItem{
		{Code: "005930", Message: "msg-a", LastClose: 100000, Predicted: 101000, High52w: 120000, Low52w: 80000, Position52: 0.5},
		{Code: "000660", Err: errors.New("boom")},
	})
	assert.Contains(t, out, "2024-06-14")
	assert.Contains(t, out, "msg-a")
	assert.Contains(t, out, "+1.00%")
	assert.Contains(t, out, "80,000 ~ 120,000원 (위치 50%)")
	assert.Contains(t, out, "❌ 000660: boom")
	assert.True(t, strings.HasSuffix(out, "완료 1 / 2"))
}

type telegramStub struct {
	mu       sync.Mutex
	sent     []map[string]string
	failures int
	polled   int
	updates  string
}

func (s *telegramStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if s.failures > 0 {
				s.failures--
				http.Error(w, "busy", http.StatusTooManyRequests)
				return
			}
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			s.sent = append(s.sent, payload)
			w.Write([]byte(`{"ok":true}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			s.polled++
			if s.polled == 1 {
				updates := s.updates
				if updates == "" {
					updates = `{"ok":true,"result":[{"update_id":7,"message":{"text":" /help ","chat":{"id":42}}}]}`
				}
				w.Write([]byte(updates))
				return
			}
			assert.Equal(t, "8", r.URL.Query().Get("offset"))
			w.Write([]byte(`{"ok":true,"result":[]}`))
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *telegramStub) polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polled
}

func (s *telegramStub) messages() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.sent...)
}

func TestTelegramNotifier_SendWithRetry(t *testing.T) {
	stub := &telegramStub{failures: 2}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "100", srv.URL, "", logger.Nop())
	tn.RetryBase = time.Millisecond
	require.True(t, tn.Enabled())

	require.NoError(t, tn.SendWithRetry(context.Background(), "hello", 3))
	msgs := stub.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "100", msgs[0]["chat_id"])
	assert.Equal(t, "HTML", msgs[0]["parse_mode"])
}

func TestTelegramNotifier_RetriesExhausted(t *testing.T) {
	stub := &telegramStub{failures: 10}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "100", srv.URL, "", logger.Nop())
	tn.RetryBase = time.Millisecond
	err := tn.SendWithRetry(context.Background(), "hello", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 retries exhausted")
}

func TestTelegramNotifier_Polling(t *testing.T) {
	PollTimeout = 0
	defer func() { PollTimeout = 30 }()

	stub := &telegramStub{}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "100", srv.URL, "", logger.Nop())
	tn.AllowedChats = []string{"42"}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var got string
	go func() {
		tn.StartPolling(ctx, func(_ context.Context, cmd string) string {
			got = cmd
			return "reply"
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return len(stub.messages()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "/help", got)
	msg := stub.messages()[0]
	assert.Equal(t, "42", msg["chat_id"])
	assert.Equal(t, "reply", msg["text"])
}

func TestTelegramNotifier_PollingIgnoresUnknownChat(t *testing.T) {
	PollTimeout = 0
	defer func() { PollTimeout = 30 }()

	stub := &telegramStub{
		updates: `{"ok":true,"result":[{"update_id":7,"message":{"text":"/predict 005930","chat":{"id":999}}}]}`,
	}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "100", srv.URL, "", logger.Nop())
	tn.AllowedChats = []string{"42"}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var calls int32
	go func() {
		tn.StartPolling(ctx, func(_ context.Context, _ string) string {
			atomic.AddInt32(&calls, 1)
			return "reply"
		})
		close(done)
	}()

	// the second poll means the first batch was fully handled
	require.Eventually(t, func() bool { return stub.polls() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Empty(t, stub.messages())
}

func TestNotifier_Disabled(t *testing.T) {
	assert.False(t, NewTelegramNotifier("", "", "", "", logger.Nop()).Enabled())
}
