// Package analyst asks a chat-completion model to comment on a forecast.
package analyst

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PredictiBoot/internal/model"
)

// SystemPrompt frames the model as a trader.
const SystemPrompt = "당신은 수년간의 경험을 가진 전문 주식 트레이더입니다."

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("openai api key is not configured")

// APIError is a non-2xx reply from the completions endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("openai api error: status %d: %s", e.Status, e.Message)
}

// Request is everything the prompt is built from.
type Request struct {
	StockName      string
	Message        string
	PredictedPrice string
	News           []model.NewsArticle
}

// Client calls the OpenAI chat completions API.
type Client struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	HTTP        *http.Client
}

// NewClient creates a client with optional proxy support.
func NewClient(apiKey, baseURL, modelName string, temperature float64, timeout time.Duration, proxyURL string) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Client{
		APIKey:      apiKey,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Model:       modelName,
		Temperature: temperature,
		HTTP:        &http.Client{Timeout: timeout, Transport: transport},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Analyze returns the model's commentary on a forecast.
func (c *Client) Analyze(ctx context.Context, req Request) (string, error) {
	if c.APIKey == "" {
		return "", ErrMissingAPIKey
	}
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: BuildPrompt(req)},
		},
		Temperature: c.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}

	var out chatResponse
	decodeErr := json.Unmarshal(respBody, &out)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if decodeErr == nil && out.Error != nil {
			msg = out.Error.Message
		}
		return "", APIError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode openai response: %w", decodeErr)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// NewsSummary renders the headlines for the prompt.
func NewsSummary(news []model.NewsArticle) string {
	if len(news) == 0 {
		return "제공된 최신 뉴스가 없습니다."
	}
	lines := make([]string, len(news))
	for i, a := range news {
		lines[i] = fmt.Sprintf("- 제목: %s\n  출처: %s\n  날짜: %s", a.Title, a.Source, a.Date)
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt renders the user prompt.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("당신은 수년간의 경험을 가진 전문 주식 트레이더입니다. 당신 앞에는 자체 개발한 예측 프로그램의 결과와 관련 최신 뉴스가 있습니다.\n\n")
	b.WriteString("**분석 대상 정보:**\n")
	fmt.Fprintf(&b, "1. **종목명:** %s\n", req.StockName)
	fmt.Fprintf(&b, "2. **예측 프로그램 결과:** %s\n", req.Message)
	fmt.Fprintf(&b, "3. **예측된 종가:** %s\n", req.PredictedPrice)
	b.WriteString("4. **관련 최신 뉴스:**\n")
	b.WriteString(NewsSummary(req.News))
	b.WriteString("\n\n**분석 요청:**\n")
	fmt.Fprintf(&b, "이 정보를 바탕으로, 예측 프로그램의 결과가 다음 거래일에 실현될 가능성에 대해 어떻게 생각하십니까? "+
		"특히 예측된 종가(%s)가 현재 뉴스 상황을 고려했을 때 합리적인 가격인지 평가해주세요. 아래 형식에 맞춰 답변해주세요.\n\n", req.PredictedPrice)
	b.WriteString("1. **예측 실현 확률:** 예측 결과가 맞을 확률을 퍼센트(%)로 제시해주세요.\n")
	b.WriteString("2. **긍정적 의견:** 주가에 긍정적인 영향을 줄 수 있는 뉴스는 무엇이며, 왜 그렇게 생각하는지 요약해주세요.\n")
	b.WriteString("3. **부정적 의견:** 주가에 부정적인 영향을 줄 수 있는 뉴스는 무엇이며, 왜 그렇게 생각하는지 요약해주세요.\n")
	b.WriteString("4. **최종 결론:** 위 내용을 종합하여 당신의 최종 의견을 말해주세요.\n")
	return b.String()
}
