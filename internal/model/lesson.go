package model

import "time"

// MaxLessonMinutes は1回の授業に記録できる時間の上限（1日分）。
const MaxLessonMinutes = 24 * 60

// Lesson はコンポーネントに属する1回分の授業を表す。
type Lesson struct {
	ID              string
	UserID          string
	ComponentID     string
	Title           string
	Date            time.Time
	DurationMinutes int
	Notes           string   // サニタイズ済みHTML
	ResourceIDs     []string // Notes内のメンションから抽出したリソースID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LessonFilter は授業一覧の絞り込み条件を表す。
// From/Toがゼロ値の場合は日付で絞り込まない。
type LessonFilter struct {
	ComponentID string
	From        time.Time
	To          time.Time
	Query       string
}
