package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/planneredu/internal/lesson"
	"github.com/hitoshi/planneredu/internal/model"
)

// LessonServiceInterface は授業ハンドラーが必要とするサービスインターフェース。
type LessonServiceInterface interface {
	List(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error)
	Get(ctx context.Context, userID, lessonID string) (*model.Lesson, error)
	Create(ctx context.Context, userID string, in lesson.LessonInput) (*model.Lesson, error)
	Update(ctx context.Context, userID, lessonID string, in lesson.LessonInput) (*model.Lesson, error)
	Delete(ctx context.Context, userID, lessonID string) error
}

// LessonHandler は授業のHTTPハンドラー。
type LessonHandler struct {
	service LessonServiceInterface
}

// NewLessonHandler はLessonHandlerを生成する。
func NewLessonHandler(service LessonServiceInterface) *LessonHandler {
	return &LessonHandler{service: service}
}

// ListLessons は授業一覧を日付の降順で返す。
// GET /api/lessons?component_id=&from=&to=&q=
func (h *LessonHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	from, err := parseOptionalDate(q.Get("from"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	to, err := parseOptionalDate(q.Get("to"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	lessons, err := h.service.List(r.Context(), userID, model.LessonFilter{
		ComponentID: q.Get("component_id"),
		From:        from,
		To:          to,
		Query:       q.Get("q"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(lessons, toLessonResponse))
}

// GetLesson は授業を返す。
// GET /api/lessons/{id}
func (h *LessonHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	l, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLessonResponse(l))
}

// CreateLesson は授業を作成する。
// POST /api/lessons
func (h *LessonHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	in, ok := decodeLessonInput(w, r)
	if !ok {
		return
	}

	l, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLessonResponse(l))
}

// UpdateLesson は授業を更新する。
// PUT /api/lessons/{id}
func (h *LessonHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	in, ok := decodeLessonInput(w, r)
	if !ok {
		return
	}

	l, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLessonResponse(l))
}

// DeleteLesson は授業を削除する。
// DELETE /api/lessons/{id}
func (h *LessonHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeLessonInput(w http.ResponseWriter, r *http.Request) (lesson.LessonInput, bool) {
	var req lessonRequest
	if !decodeRequest(w, r, &req) {
		return lesson.LessonInput{}, false
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		handleServiceError(w, err)
		return lesson.LessonInput{}, false
	}
	return lesson.LessonInput{
		ComponentID:     req.ComponentID,
		Title:           req.Title,
		Date:            date,
		DurationMinutes: req.DurationMinutes.Int(),
		Notes:           req.Notes,
	}, true
}
