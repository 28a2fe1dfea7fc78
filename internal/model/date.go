package model

import (
	"strings"
	"time"
)

// DateLayout はAPIおよびDBで日付を表す形式（YYYY-MM-DD）。
const DateLayout = "2006-01-02"

// ParseDate はYYYY-MM-DD形式の文字列をUTCの日付に変換する。
// 形式が不正な場合はINVALID_DATEのAPIErrorを返す。
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, NewInvalidDateError(s)
	}
	return t, nil
}

// FormatDates は日付スライスをYYYY-MM-DD形式の文字列スライスに変換する。
func FormatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(DateLayout)
	}
	return out
}
