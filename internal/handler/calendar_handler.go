package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/planneredu/internal/calendar"
	"github.com/hitoshi/planneredu/internal/locale"
	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/planning"
)

// CalendarServiceInterface は休日・カレンダーハンドラーが必要とするサービスインターフェース。
type CalendarServiceInterface interface {
	ListHolidays(ctx context.Context, userID string) ([]*model.Holiday, error)
	CreateHoliday(ctx context.Context, userID string, date time.Time, name string) (*model.Holiday, error)
	DeleteHoliday(ctx context.Context, userID, holidayID string) error
	Generate(ctx context.Context, userID string, in calendar.GenerateInput) (*calendar.GenerateResult, error)
	ExportICS(ctx context.Context, userID, componentID string, loc *locale.Locale) ([]byte, error)
}

// LocaleResolver はAccept-Languageから表示ロケールを決定する。
type LocaleResolver interface {
	Resolve(acceptLanguage string) *locale.Locale
}

// CalendarHandler は休日とカレンダー生成のHTTPハンドラー。
type CalendarHandler struct {
	service CalendarServiceInterface
	locales LocaleResolver
}

// NewCalendarHandler はCalendarHandlerを生成する。
func NewCalendarHandler(service CalendarServiceInterface, locales LocaleResolver) *CalendarHandler {
	return &CalendarHandler{service: service, locales: locales}
}

// ListHolidays は休日一覧を返す。
// GET /api/holidays
func (h *CalendarHandler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	holidays, err := h.service.ListHolidays(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(holidays, toHolidayResponse))
}

// CreateHoliday は休日を登録する。
// POST /api/holidays
func (h *CalendarHandler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req holidayRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	holiday, err := h.service.CreateHoliday(r.Context(), userID, date, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayResponse(holiday))
}

// DeleteHoliday は休日を削除する。
// DELETE /api/holidays/{id}
func (h *CalendarHandler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteHoliday(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Generate は授業日を生成する。component_idとapplyを指定するとコンポーネントに保存する。
// POST /api/calendar/generate
func (h *CalendarHandler) Generate(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, "")
}

// GenerateForComponent はURLのコンポーネントを対象に授業日を生成する。
// POST /api/components/{id}/calendar
func (h *CalendarHandler) GenerateForComponent(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, chi.URLParam(r, "id"))
}

func (h *CalendarHandler) generate(w http.ResponseWriter, r *http.Request, componentID string) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req calendarRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	start, err := model.ParseDate(req.StartDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	holidays, err := parseDates(req.Holidays)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if componentID == "" {
		componentID = req.ComponentID
	}

	result, err := h.service.Generate(r.Context(), userID, calendar.GenerateInput{
		StartDate:   start,
		Weeks:       req.Weeks,
		Weekdays:    req.Weekdays,
		Holidays:    holidays,
		Mode:        planning.RecurrenceMode(req.Mode),
		ComponentID: componentID,
		Apply:       req.Apply,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	loc := h.locales.Resolve(r.Header.Get("Accept-Language"))
	resp := calendarResponse{
		Dates:     model.FormatDates(result.Dates),
		Formatted: make([]string, len(result.Dates)),
		Count:     loc.Plural(locale.MsgLessonCount, len(result.Dates)),
	}
	for i := range result.Dates {
		resp.Formatted[i] = planning.FormatDate(&result.Dates[i], loc.Format)
	}
	if result.Component != nil {
		c := toComponentResponse(result.Component)
		resp.Component = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportICS はコンポーネントの授業予定をiCalendar形式で返す。
// GET /api/components/{id}/calendar.ics
func (h *CalendarHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	componentID := chi.URLParam(r, "id")
	loc := h.locales.Resolve(r.Header.Get("Accept-Language"))
	data, err := h.service.ExportICS(r.Context(), userID, componentID, loc)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.ics"`, componentID))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
