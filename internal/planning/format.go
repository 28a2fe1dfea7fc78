package planning

import (
	"fmt"
	"math"
	"time"
)

// Duration は分数を時間と分に分解した表示用の値。
type Duration struct {
	Hours   int
	Minutes int
}

// IsZero は0分かを返す。
func (d Duration) IsZero() bool {
	return d.Hours == 0 && d.Minutes == 0
}

// TotalMinutes は合計分数を返す。
func (d Duration) TotalMinutes() int {
	return d.Hours*60 + d.Minutes
}

// String は "0min", "45min", "2h", "1h05min" の形式で表す。
func (d Duration) String() string {
	switch {
	case d.IsZero():
		return "0min"
	case d.Hours == 0:
		return fmt.Sprintf("%dmin", d.Minutes)
	case d.Minutes == 0:
		return fmt.Sprintf("%dh", d.Hours)
	}
	return fmt.Sprintf("%dh%02dmin", d.Hours, d.Minutes)
}

// SplitMinutes は分数を時間と分に分解する。負の値は0分として扱う。
func SplitMinutes(minutes int) Duration {
	if minutes <= 0 {
		return Duration{}
	}
	return Duration{Hours: minutes / 60, Minutes: minutes % 60}
}

// HoursToMinutes は時間を分に変換する（四捨五入）。
// 負の値やNaNは0分として扱う。
func HoursToMinutes(hours float64) int {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return 0
	}
	minutes := math.Round(hours * 60)
	if minutes >= math.MaxInt {
		return math.MaxInt
	}
	return int(minutes)
}

// MinutesToHours は分を時間に変換する（小数点以下2桁）。
func MinutesToHours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}

// Locale は日付表示に使うレイアウトを表す。
type Locale struct {
	Tag            string
	DateLayout     string
	DateTimeLayout string
}

var (
	// LocalePTBR はブラジルポルトガル語の表示形式（dd/mm/yyyy）。
	LocalePTBR = Locale{Tag: "pt-BR", DateLayout: "02/01/2006", DateTimeLayout: "02/01/2006 15:04"}
	// LocaleEN は英語（米国）の表示形式（mm/dd/yyyy）。
	LocaleEN = Locale{Tag: "en", DateLayout: "01/02/2006", DateTimeLayout: "01/02/2006 03:04 PM"}
)

// FormatDate は日付をロケールの形式で表す。nilまたはゼロ値は空文字を返す。
func FormatDate(t *time.Time, loc Locale) string {
	if t == nil || t.IsZero() {
		return ""
	}
	layout := loc.DateLayout
	if layout == "" {
		layout = LocalePTBR.DateLayout
	}
	return t.Format(layout)
}

// FormatDateTime は日時をロケールの形式で表す。nilまたはゼロ値は空文字を返す。
func FormatDateTime(t *time.Time, loc Locale) string {
	if t == nil || t.IsZero() {
		return ""
	}
	layout := loc.DateTimeLayout
	if layout == "" {
		layout = LocalePTBR.DateTimeLayout
	}
	return t.Format(layout)
}
