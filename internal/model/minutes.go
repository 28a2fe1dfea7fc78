package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Minutes はJSON上で数値または数値文字列として受け付ける分数。
// 解釈できない値・負の値・nullはエラーにせず0として扱う。
type Minutes int

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (m *Minutes) UnmarshalJSON(data []byte) error {
	*m = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	} else {
		raw = string(data)
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	if f >= math.MaxInt {
		*m = Minutes(math.MaxInt)
		return nil
	}
	*m = Minutes(int(f))
	return nil
}

// Int はint値を返す。
func (m Minutes) Int() int {
	return int(m)
}
