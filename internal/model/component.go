// Package model はドメインモデルを定義する。
package model

import "time"

// ComponentCategory はコンポーネントの区分を表す。
type ComponentCategory string

const (
	// CategoryOpening は導入（abertura）区分。
	CategoryOpening ComponentCategory = "abertura"
	// CategoryDevelopment は展開（desenvolvimento）区分。
	CategoryDevelopment ComponentCategory = "desenvolvimento"
	// CategoryClosing はまとめ（fechamento）区分。
	CategoryClosing ComponentCategory = "fechamento"
)

// Valid は区分が定義済みの値かを返す。
func (c ComponentCategory) Valid() bool {
	switch c {
	case CategoryOpening, CategoryDevelopment, CategoryClosing:
		return true
	}
	return false
}

// Folder はコンポーネントをまとめるフォルダを表す。
type Folder struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Component は授業計画の対象となる科目・単元を表す。
// WorkloadHoursは計画上の総授業時間（時間単位）。
type Component struct {
	ID            string
	UserID        string
	FolderID      *string
	Name          string
	Description   string // サニタイズ済みHTML
	Category      ComponentCategory
	WorkloadHours int
	Dates         []time.Time // 授業予定日（カレンダー生成結果を反映したもの）
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ComponentFilter はコンポーネント一覧の絞り込み条件を表す。
type ComponentFilter struct {
	FolderID string
	Query    string
}
