package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatPrice renders the integer part of price with thousands separators.
func FormatPrice(price float64) string {
	return humanize.Comma(int64(price))
}

// FormatPrediction builds the user-facing forecast sentence.
func FormatPrediction(name, code string, target time.Time, price float64) string {
	return fmt.Sprintf("%s(%s)의 %d월 %d일 예상 종가는 %s원 입니다.",
		name, code, int(target.Month()), target.Day(), FormatPrice(price))
}

// ReportItem is one stock line of the daily report.
type ReportItem struct {
	Code       string
	Message    string
	LastClose  float64
	Predicted  float64
	High52w    float64
	Low52w     float64
	Position52 float64
	Err        error
}

// FormatDailyReport formats the scheduled watchlist forecasts into a Telegram message.
func FormatDailyReport(date time.Time, items []ReportItem) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>PredictiBoot 예측 리포트</b> | %s\n\n", date.Format("2006-01-02")))

	ok := 0
	for _, it := range items {
		if it.Err != nil {
			b.WriteString(fmt.Sprintf("❌ %s: %v\n\n", it.Code, it.Err))
			continue
		}
		ok++
		b.WriteString(it.Message + "\n")
		change := 0.0
		if it.LastClose > 0 {
			change = (it.Predicted - it.LastClose) / it.LastClose * 100
		}
		b.WriteString(fmt.Sprintf("  최근 종가 %s원 → 예측 %s원 (%+.2f%%)\n",
			FormatPrice(it.LastClose), FormatPrice(it.Predicted), change))
		if it.High52w > 0 {
			b.WriteString(fmt.Sprintf("  52주 범위 %s ~ %s원 (위치 %.0f%%)\n",
				FormatPrice(it.Low52w), FormatPrice(it.High52w), it.Position52*100))
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("완료 %d / %d", ok, len(items)))
	return b.String()
}

// HelpText lists the bot commands.
func HelpText() string {
	var b strings.Builder
	b.WriteString("사용 가능한 명령:\n")
	b.WriteString("• /predict <종목코드> [arima|lstm|ensemble]\n")
	b.WriteString("• /search <종목명>\n")
	b.WriteString("• /help")
	return b.String()
}
