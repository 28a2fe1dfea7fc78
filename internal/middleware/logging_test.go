package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// newTestLogger はバッファに出力するJSONロガーを返す。
func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})), &buf
}

// decodeLogEntry は1行分のJSONログをデコードする。
func decodeLogEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

// TestLoggingMiddleware_LogsRequestFields はリクエストログに必要なフィールドが含まれることを検証する。
func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	logger, buf := newTestLogger()

	handler := NewLoggingMiddleware(logger)(okHandler)
	serveAs(handler, http.MethodGet, "/api/lessons", "")

	entry := decodeLogEntry(t, buf)
	if entry["msg"] != "http_request" {
		t.Errorf("msg = %q, want %q", entry["msg"], "http_request")
	}
	if entry["method"] != "GET" {
		t.Errorf("method = %q, want %q", entry["method"], "GET")
	}
	if entry["path"] != "/api/lessons" {
		t.Errorf("path = %q, want %q", entry["path"], "/api/lessons")
	}
	if status, ok := entry["status"].(float64); !ok || status != 200 {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if d, ok := entry["duration_ms"].(float64); !ok || d < 0 {
		t.Errorf("duration_ms = %v, want >= 0", entry["duration_ms"])
	}
	if _, ok := entry["user_id"]; ok {
		t.Errorf("user_id should be omitted for unauthenticated request, got %v", entry["user_id"])
	}
}

// TestLoggingMiddleware_UserIDFromInnerAuth は内側の認証ミドルウェアが
// 注入したユーザーIDがログに含まれることを検証する。
func TestLoggingMiddleware_UserIDFromInnerAuth(t *testing.T) {
	logger, buf := newTestLogger()

	handler := NewLoggingMiddleware(logger)(NewAuthMiddleware(testAuthConfig)(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/components", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, testAuthConfig.Secret, validClaims("teacher-log")))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := decodeLogEntry(t, buf)
	if entry["user_id"] != "teacher-log" {
		t.Errorf("user_id = %v, want %q", entry["user_id"], "teacher-log")
	}
}

// TestLoggingMiddleware_UserIDFromOuterContext は外側で注入済みのユーザーIDも記録されることを検証する。
func TestLoggingMiddleware_UserIDFromOuterContext(t *testing.T) {
	logger, buf := newTestLogger()

	handler := NewLoggingMiddleware(logger)(okHandler)
	serveAs(handler, http.MethodGet, "/api/lessons", "teacher-outer")

	if entry := decodeLogEntry(t, buf); entry["user_id"] != "teacher-outer" {
		t.Errorf("user_id = %v, want %q", entry["user_id"], "teacher-outer")
	}
}

// TestLoggingMiddleware_LevelByStatus はステータスコードに応じてログレベルが変わることを検証する。
func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		statusCode int
		wantLevel  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusCreated, "INFO"},
		{http.StatusBadRequest, "WARN"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			logger, buf := newTestLogger()

			handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			serveAs(handler, http.MethodGet, "/api/lessons", "")

			entry := decodeLogEntry(t, buf)
			if status := int(entry["status"].(float64)); status != tt.statusCode {
				t.Errorf("status = %d, want %d", status, tt.statusCode)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
		})
	}
}

// TestLoggingMiddleware_RouteAndRequestID はchiのルートパターンとリクエストIDが記録されることを検証する。
func TestLoggingMiddleware_RouteAndRequestID(t *testing.T) {
	logger, buf := newTestLogger()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(NewLoggingMiddleware(logger))
	r.Get("/api/components/{id}", okHandler)

	serveAs(r, http.MethodGet, "/api/components/abc", "")

	entry := decodeLogEntry(t, buf)
	if entry["route"] != "/api/components/{id}" {
		t.Errorf("route = %v, want %q", entry["route"], "/api/components/{id}")
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Error("expected request_id in log entry")
	}
}

// TestStatusRecorder_FlushDelegates はSSE用のFlushが下位に委譲されることを検証する。
func TestStatusRecorder_FlushDelegates(t *testing.T) {
	w := httptest.NewRecorder()
	rec := newStatusRecorder(w)

	rec.Flush()

	if !w.Flushed {
		t.Error("underlying recorder should be flushed")
	}
	if rec.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200", rec.statusCode)
	}
	if rec.Unwrap() != w {
		t.Error("Unwrap should return the wrapped writer")
	}
	if newStatusRecorder(rec) != rec {
		t.Error("newStatusRecorder should not double-wrap")
	}
}
