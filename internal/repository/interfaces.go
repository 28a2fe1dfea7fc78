// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/planneredu/internal/model"
)

// FolderRepository はフォルダデータの永続化インターフェース。
type FolderRepository interface {
	// FindByID は指定IDのフォルダを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Folder, error)

	// ListByUserID はユーザーのフォルダ一覧を名前順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Folder, error)

	// Create はフォルダを作成する。
	Create(ctx context.Context, folder *model.Folder) error

	// Update はフォルダ名を更新する。
	Update(ctx context.Context, folder *model.Folder) error

	// Delete は指定IDのフォルダを削除する。
	// 所属するコンポーネントのfolder_idはNULLになる（ON DELETE SET NULL）。
	Delete(ctx context.Context, id string) error

	// DeleteByUserID はユーザーの全フォルダを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ComponentRepository はコンポーネントデータの永続化インターフェース。
type ComponentRepository interface {
	// FindByID は指定IDのコンポーネントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Component, error)

	// List はユーザーのコンポーネント一覧を名前順で返す。
	// filterのFolderIDが空でなければフォルダで、Queryが空でなければ名前・説明の部分一致で絞り込む。
	List(ctx context.Context, userID string, filter model.ComponentFilter) ([]*model.Component, error)

	// Create はコンポーネントを作成する。
	Create(ctx context.Context, component *model.Component) error

	// Update はコンポーネントを更新する。
	Update(ctx context.Context, component *model.Component) error

	// UpdateDates はコンポーネントの授業予定日を置き換える。
	UpdateDates(ctx context.Context, id string, dates []time.Time) error

	// Delete は指定IDのコンポーネントを削除する。
	// 関連するlessons、evaluationsはCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// DeleteByUserID はユーザーの全コンポーネントを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// LessonRepository は授業データの永続化インターフェース。
type LessonRepository interface {
	// FindByID は指定IDの授業を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Lesson, error)

	// List はユーザーの授業一覧を日付の降順で返す。
	List(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error)

	// Create は授業を作成する。
	Create(ctx context.Context, lesson *model.Lesson) error

	// Update は授業を更新する。
	Update(ctx context.Context, lesson *model.Lesson) error

	// Delete は指定IDの授業を削除する。
	Delete(ctx context.Context, id string) error

	// DeleteByUserID はユーザーの全授業を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ResourceRepository は教材リソースの永続化インターフェース。
type ResourceRepository interface {
	// FindByID は指定IDのリソースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Resource, error)

	// FindOwnedIDs はidsのうちユーザーが所有するリソースIDを返す。
	FindOwnedIDs(ctx context.Context, userID string, ids []string) ([]string, error)

	// List はユーザーのリソース一覧をタイトル順で返す。
	List(ctx context.Context, userID string, filter model.ResourceFilter) ([]*model.Resource, error)

	// Create はリソースを作成する。
	Create(ctx context.Context, resource *model.Resource) error

	// Update はリソースを更新する。
	Update(ctx context.Context, resource *model.Resource) error

	// Delete は指定IDのリソースを削除する。
	Delete(ctx context.Context, id string) error

	// DeleteByUserID はユーザーの全リソースを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// EvaluationRepository は評価データの永続化インターフェース。
type EvaluationRepository interface {
	// FindByID は指定IDの評価を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Evaluation, error)

	// ListByUserID はユーザーの評価一覧を返す。componentIDが空でなければ絞り込む。
	ListByUserID(ctx context.Context, userID, componentID string) ([]*model.Evaluation, error)

	// Create は評価を作成する。コンポーネントの比重の合計がmaxWeightを超える場合は
	// *WeightLimitErrorを返し、何も書き込まない。集計と書き込みは同一トランザクションで行う。
	Create(ctx context.Context, evaluation *model.Evaluation, maxWeight int) error

	// Update は評価を更新する。比重の扱いはCreateと同じで、更新対象自身は集計から除外する。
	Update(ctx context.Context, evaluation *model.Evaluation, maxWeight int) error

	// Delete は指定IDの評価を削除する。
	Delete(ctx context.Context, id string) error

	// DeleteByUserID はユーザーの全評価を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// HolidayRepository は休日データの永続化インターフェース。
type HolidayRepository interface {
	// FindByID は指定IDの休日を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Holiday, error)

	// ListByUserID はユーザーの休日一覧を日付順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Holiday, error)

	// Create は休日を作成する。同じ日付が登録済みの場合は名前を更新する。
	Create(ctx context.Context, holiday *model.Holiday) error

	// Delete は指定IDの休日を削除する。
	Delete(ctx context.Context, id string) error

	// DeleteByUserID はユーザーの全休日を削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// DeleteBefore はbeforeより前の日付の休日を全ユーザー分削除し、削除件数を返す。
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
