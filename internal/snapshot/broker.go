// Package snapshot はデータ変更の通知（変更イベントの配信）を提供する。
// サービス層は書き込み成功後にEventをPublishし、購読側（SSEエンドポイント）は
// 受け取ったイベントを契機に一覧を再取得する。
package snapshot

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

// Collection は変更対象のコレクション名。
type Collection string

const (
	CollectionFolders     Collection = "folders"
	CollectionComponents  Collection = "components"
	CollectionLessons     Collection = "lessons"
	CollectionResources   Collection = "resources"
	CollectionEvaluations Collection = "evaluations"
	CollectionHolidays    Collection = "holidays"
)

// Action は変更の種類。
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event は1件の変更を表す。
type Event struct {
	UserID     string     `json:"user_id"`
	Collection Collection `json:"collection"`
	Action     Action     `json:"action"`
	ID         string     `json:"id"`
	At         time.Time  `json:"at"`
}

// NewEvent は現在時刻のEventを生成する。
func NewEvent(userID string, collection Collection, action Action, id string) Event {
	return Event{
		UserID:     userID,
		Collection: collection,
		Action:     action,
		ID:         id,
		At:         time.Now().UTC(),
	}
}

// Filter は購読するイベントの条件。
// Collectionsが空の場合はユーザーの全コレクションを対象とする。
type Filter struct {
	UserID      string
	Collections []Collection
}

// Match はイベントが条件に合致するかを返す。
func (f Filter) Match(e Event) bool {
	if e.UserID != f.UserID {
		return false
	}
	return len(f.Collections) == 0 || slices.Contains(f.Collections, e.Collection)
}

// Publisher は変更イベントの発行インターフェース。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Broker は変更イベントの発行と購読を行う。
type Broker interface {
	Publisher

	// Subscribe は条件に合うイベントを受け取るチャネルと購読解除関数を返す。
	// ctxが終了した場合も購読は解除され、チャネルはcloseされる。
	Subscribe(ctx context.Context, filter Filter) (<-chan Event, func())
}

// NopPublisher はイベントを破棄するPublisher。テストや通知不要な構成で使う。
type NopPublisher struct{}

// Publish は何もしない。
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Notify はイベントを発行し、失敗した場合は警告ログのみ出力する。
// 書き込みは既に成功しているため、通知の失敗で呼び出し元をエラーにはしない。
func Notify(ctx context.Context, p Publisher, userID string, collection Collection, action Action, id string) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, NewEvent(userID, collection, action, id)); err != nil {
		slog.Warn("failed to publish change event",
			slog.String("user_id", userID),
			slog.String("collection", string(collection)),
			slog.String("action", string(action)),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
}
