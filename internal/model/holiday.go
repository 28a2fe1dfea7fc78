package model

import "time"

// Holiday はカレンダー生成時に除外する休日を表す。
type Holiday struct {
	ID        string
	UserID    string
	Date      time.Time
	Name      string
	CreatedAt time.Time
}
