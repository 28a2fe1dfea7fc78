package model

import "time"

// ResourceType は教材リソースの種別を表す。
type ResourceType string

const (
	ResourceTypeDocument ResourceType = "document"
	ResourceTypeVideo    ResourceType = "video"
	ResourceTypeLink     ResourceType = "link"
	ResourceTypeBook     ResourceType = "book"
	ResourceTypePodcast  ResourceType = "podcast"
	ResourceTypeActivity ResourceType = "activity"
)

// Valid は種別が定義済みの値かを返す。
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypeDocument, ResourceTypeVideo, ResourceTypeLink,
		ResourceTypeBook, ResourceTypePodcast, ResourceTypeActivity:
		return true
	}
	return false
}

// Resource は再利用可能な教材を表す。
// 授業メモから @[タイトル](id) 形式で参照される。
type Resource struct {
	ID          string
	UserID      string
	Title       string
	Type        ResourceType
	URL         string
	Description string // サニタイズ済みHTML
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResourceFilter はリソース一覧の絞り込み条件を表す。
type ResourceFilter struct {
	Type  ResourceType
	Query string
}

// ResourcePreview はリソースURLから取得したプレビュー情報を表す。
type ResourcePreview struct {
	URL         string
	Title       string
	Description string
	IsFeed      bool
}
