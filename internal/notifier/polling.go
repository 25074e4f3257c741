package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"PredictiBoot/internal/logger"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// PollTimeout is the long-polling wait in seconds passed to getUpdates.
var PollTimeout = 30

// StartPolling begins long-polling for Telegram commands and replies in the
// chat a command came from. Commands from chats other than ChatID and
// AllowedChats are dropped. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	client := &http.Client{Timeout: time.Duration(PollTimeout+5) * time.Second, Transport: t.Client.Transport}

	for {
		select {
		case <-ctx.Done():
			t.log.Info("telegram polling stopped")
			return
		default:
		}

		apiURL := fmt.Sprintf("%s?offset=%d&timeout=%d", t.endpoint("getUpdates"), offset, PollTimeout)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			t.log.Error("create polling request", logger.Error(err))
			t.pause(ctx)
			continue
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.log.Warn("polling request failed", logger.Error(err))
			t.pause(ctx)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.log.Warn("read polling response", logger.Error(err))
			continue
		}

		var result struct {
			OK     bool             `json:"ok"`
			Result []telegramUpdate `json:"result"`
		}
		if err := json.Unmarshal(body, &result); err != nil || !result.OK {
			t.log.Warn("decode polling response", logger.Error(err), logger.Int("status", resp.StatusCode))
			t.pause(ctx)
			continue
		}

		for _, update := range result.Result {
			offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			chatID := t.ChatID
			if update.Message.Chat.ID != 0 {
				chatID = strconv.FormatInt(update.Message.Chat.ID, 10)
			}
			if !t.allowed(chatID) {
				t.log.Warn("ignoring command from unknown chat", logger.String("chat_id", chatID))
				continue
			}
			text := strings.TrimSpace(update.Message.Text)
			t.log.Info("received command", logger.String("command", text), logger.String("chat_id", chatID))
			reply := handler(ctx, text)
			if reply == "" {
				continue
			}
			if err := t.SendTo(ctx, chatID, reply); err != nil {
				t.log.Error("send reply", logger.Error(err))
			}
		}
	}
}

func (t *TelegramNotifier) allowed(chatID string) bool {
	if chatID == t.ChatID {
		return true
	}
	for _, id := range t.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}

func (t *TelegramNotifier) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}
