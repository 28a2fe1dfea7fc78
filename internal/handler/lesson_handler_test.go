package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/planneredu/internal/lesson"
	"github.com/hitoshi/planneredu/internal/model"
)

// mockLessonService はLessonServiceInterfaceのモック実装。
type mockLessonService struct {
	listFn   func(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error)
	getFn    func(ctx context.Context, userID, lessonID string) (*model.Lesson, error)
	createFn func(ctx context.Context, userID string, in lesson.LessonInput) (*model.Lesson, error)
	updateFn func(ctx context.Context, userID, lessonID string, in lesson.LessonInput) (*model.Lesson, error)
	deleteFn func(ctx context.Context, userID, lessonID string) error
}

func (m *mockLessonService) List(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, filter)
	}
	return nil, nil
}

func (m *mockLessonService) Get(ctx context.Context, userID, lessonID string) (*model.Lesson, error) {
	return m.getFn(ctx, userID, lessonID)
}

func (m *mockLessonService) Create(ctx context.Context, userID string, in lesson.LessonInput) (*model.Lesson, error) {
	return m.createFn(ctx, userID, in)
}

func (m *mockLessonService) Update(ctx context.Context, userID, lessonID string, in lesson.LessonInput) (*model.Lesson, error) {
	return m.updateFn(ctx, userID, lessonID, in)
}

func (m *mockLessonService) Delete(ctx context.Context, userID, lessonID string) error {
	return m.deleteFn(ctx, userID, lessonID)
}

func TestLessonHandler_ListLessons_ParsesFilter(t *testing.T) {
	var got model.LessonFilter
	svc := &mockLessonService{
		listFn: func(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error) {
			got = filter
			return []*model.Lesson{{
				ID:              "l-1",
				ComponentID:     "comp-1",
				Title:           "Frações",
				Date:            time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
				DurationMinutes: 90,
			}}, nil
		},
	}
	h := NewLessonHandler(svc)

	w := httptest.NewRecorder()
	h.ListLessons(w, newJSONRequest(http.MethodGet, "/api/lessons?component_id=comp-1&from=2024-03-01&to=2024-03-31&q=fra", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got.ComponentID != "comp-1" || got.Query != "fra" {
		t.Errorf("filter = %+v", got)
	}
	if !got.From.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || !got.To.Equal(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v, to = %v", got.From, got.To)
	}

	var resp []lessonResponse
	decodeBody(t, w, &resp)
	if len(resp) != 1 {
		t.Fatalf("len = %d", len(resp))
	}
	if resp[0].Date != "2024-03-04" || resp[0].Duration != "1h30min" {
		t.Errorf("resp = %+v", resp[0])
	}
	if resp[0].ResourceIDs == nil {
		t.Error("resource_ids should be an empty array")
	}
}

func TestLessonHandler_ListLessons_NoDatesMeansUnbounded(t *testing.T) {
	var got model.LessonFilter
	svc := &mockLessonService{
		listFn: func(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error) {
			got = filter
			return nil, nil
		},
	}
	h := NewLessonHandler(svc)

	w := httptest.NewRecorder()
	h.ListLessons(w, newJSONRequest(http.MethodGet, "/api/lessons", ""))

	if !got.From.IsZero() || !got.To.IsZero() {
		t.Errorf("from = %v, to = %v", got.From, got.To)
	}
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("body = %q", body)
	}
}

func TestLessonHandler_ListLessons_InvalidDate(t *testing.T) {
	svc := &mockLessonService{
		listFn: func(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error) {
			t.Error("service must not be called")
			return nil, nil
		},
	}
	h := NewLessonHandler(svc)

	w := httptest.NewRecorder()
	h.ListLessons(w, newJSONRequest(http.MethodGet, "/api/lessons?from=04/03/2024", ""))

	assertErrorResponse(t, w, http.StatusBadRequest, model.ErrCodeInvalidDate)
}

func TestLessonHandler_CreateLesson_PassesParsedDate(t *testing.T) {
	svc := &mockLessonService{
		createFn: func(ctx context.Context, userID string, in lesson.LessonInput) (*model.Lesson, error) {
			if !in.Date.Equal(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("Date = %v", in.Date)
			}
			if in.ComponentID != "comp-1" || in.DurationMinutes != 50 || in.Notes != "<p>ok</p>" {
				t.Errorf("input = %+v", in)
			}
			return &model.Lesson{
				ID:              "l-1",
				ComponentID:     in.ComponentID,
				Title:           in.Title,
				Date:            in.Date,
				DurationMinutes: in.DurationMinutes,
				Notes:           in.Notes,
				ResourceIDs:     []string{"r-1"},
			}, nil
		},
	}
	h := NewLessonHandler(svc)

	body := `{"component_id":"comp-1","title":"Frações","date":"2024-03-06","duration_minutes":50,"notes":"<p>ok</p>"}`
	w := httptest.NewRecorder()
	h.CreateLesson(w, newJSONRequest(http.MethodPost, "/api/lessons", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp lessonResponse
	decodeBody(t, w, &resp)
	if resp.Duration != "50min" || len(resp.ResourceIDs) != 1 || resp.ResourceIDs[0] != "r-1" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestLessonHandler_CreateLesson_LenientDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		want     int
	}{
		{"数値文字列", `"90"`, 90},
		{"解釈できない文字列", `"abc"`, 0},
		{"負の値", `-5`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := -1
			svc := &mockLessonService{
				createFn: func(ctx context.Context, userID string, in lesson.LessonInput) (*model.Lesson, error) {
					got = in.DurationMinutes
					return &model.Lesson{ID: "l-1", ComponentID: in.ComponentID, Title: in.Title, Date: in.Date, DurationMinutes: in.DurationMinutes}, nil
				},
			}
			h := NewLessonHandler(svc)

			body := `{"component_id":"comp-1","title":"Frações","date":"2024-03-06","duration_minutes":` + tt.duration + `}`
			w := httptest.NewRecorder()
			h.CreateLesson(w, newJSONRequest(http.MethodPost, "/api/lessons", body))

			if w.Code != http.StatusCreated {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if got != tt.want {
				t.Errorf("DurationMinutes = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLessonHandler_CreateLesson_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"壊れたJSON", `{"title":`, model.ErrCodeInvalidRequest},
		{"空ボディ", ``, model.ErrCodeInvalidRequest},
		{"日付形式が不正", `{"component_id":"c","title":"t","date":"06/03/2024"}`, model.ErrCodeValidationFailed},
		{"時間の上限超過", `{"component_id":"c","title":"t","date":"2024-03-06","duration_minutes":1441}`, model.ErrCodeValidationFailed},
		{"巨大な時間", `{"component_id":"c","title":"t","date":"2024-03-06","duration_minutes":"99999999999999"}`, model.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLessonHandler(&mockLessonService{})

			w := httptest.NewRecorder()
			h.CreateLesson(w, newJSONRequest(http.MethodPost, "/api/lessons", tt.body))

			assertErrorResponse(t, w, http.StatusBadRequest, tt.code)
		})
	}
}

func TestLessonHandler_UpdateLesson_NotFound(t *testing.T) {
	svc := &mockLessonService{
		updateFn: func(ctx context.Context, userID, lessonID string, in lesson.LessonInput) (*model.Lesson, error) {
			return nil, model.NewLessonNotFoundError(lessonID)
		},
	}
	h := NewLessonHandler(svc)

	req := withChiURLParam(newJSONRequest(http.MethodPut, "/api/lessons/l-9",
		`{"component_id":"c","title":"t","date":"2024-03-06"}`), "id", "l-9")
	w := httptest.NewRecorder()
	h.UpdateLesson(w, req)

	assertErrorResponse(t, w, http.StatusNotFound, model.ErrCodeLessonNotFound)
}

func TestLessonHandler_DeleteLesson(t *testing.T) {
	var gotID string
	svc := &mockLessonService{
		deleteFn: func(ctx context.Context, userID, lessonID string) error {
			gotID = lessonID
			return nil
		},
	}
	h := NewLessonHandler(svc)

	req := withChiURLParam(newJSONRequest(http.MethodDelete, "/api/lessons/l-1", ""), "id", "l-1")
	w := httptest.NewRecorder()
	h.DeleteLesson(w, req)

	if w.Code != http.StatusNoContent || gotID != "l-1" {
		t.Errorf("status = %d, id = %q", w.Code, gotID)
	}
}
