package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/planneredu/internal/snapshot"
)

// DefaultHeartbeatInterval はSSE接続を維持するためのコメント送信間隔。
const DefaultHeartbeatInterval = 25 * time.Second

// EventSubscriber は変更イベントの購読インターフェース。
type EventSubscriber interface {
	Subscribe(ctx context.Context, filter snapshot.Filter) (<-chan snapshot.Event, func())
}

// EventsHandler は変更イベントをServer-Sent Eventsで配信するHTTPハンドラー。
type EventsHandler struct {
	subscriber EventSubscriber
	heartbeat  time.Duration
}

// NewEventsHandler はEventsHandlerを生成する。heartbeatが0以下の場合は既定値を使う。
func NewEventsHandler(subscriber EventSubscriber, heartbeat time.Duration) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &EventsHandler{subscriber: subscriber, heartbeat: heartbeat}
}

// Stream は認証ユーザーの変更イベントを配信する。
// collectionsクエリ（カンマ区切り）で対象コレクションを絞り込める。
// GET /api/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter := snapshot.Filter{UserID: userID}
	for _, c := range strings.Split(r.URL.Query().Get("collections"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			filter.Collections = append(filter.Collections, snapshot.Collection(c))
		}
	}

	rc := http.NewResponseController(w)
	// サーバーのWriteTimeoutで長時間接続が切断されないようにする
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		slog.Warn("SSEのフラッシュに対応していません", slog.String("error", err.Error()))
		return
	}

	events, cancel := h.subscriber.Subscribe(r.Context(), filter)
	defer cancel()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
