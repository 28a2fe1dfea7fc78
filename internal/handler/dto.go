package handler

import (
	"time"

	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/planning"
)

// --- レスポンス ---

type folderResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type progressResponse struct {
	CompletedMinutes int     `json:"completed_minutes"`
	TotalMinutes     int     `json:"total_minutes"`
	Percentage       float64 `json:"percentage"`
	Completed        string  `json:"completed"`
	Total            string  `json:"total"`
}

type componentResponse struct {
	ID            string            `json:"id"`
	FolderID      *string           `json:"folder_id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Category      string            `json:"category"`
	WorkloadHours int               `json:"workload_hours"`
	Dates         []string          `json:"dates"`
	Progress      *progressResponse `json:"progress,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type lessonResponse struct {
	ID              string    `json:"id"`
	ComponentID     string    `json:"component_id"`
	Title           string    `json:"title"`
	Date            string    `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	Duration        string    `json:"duration"`
	Notes           string    `json:"notes"`
	ResourceIDs     []string  `json:"resource_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type resourceResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type previewResponse struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsFeed      bool   `json:"is_feed"`
}

type evaluationResponse struct {
	ID          string    `json:"id"`
	ComponentID string    `json:"component_id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Date        *string   `json:"date"`
	Weight      int       `json:"weight"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type evaluationSummaryResponse struct {
	ComponentID     string         `json:"component_id"`
	TotalWeight     int            `json:"total_weight"`
	RemainingWeight int            `json:"remaining_weight"`
	CountByType     map[string]int `json:"count_by_type"`
}

type holidayResponse struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
}

type calendarResponse struct {
	Dates     []string           `json:"dates"`
	Formatted []string           `json:"formatted"`
	Count     string             `json:"count"`
	Component *componentResponse `json:"component,omitempty"`
}

// --- リクエスト ---

type folderRequest struct {
	Name string `json:"name" validate:"notblank,max=120"`
}

type componentRequest struct {
	FolderID      *string `json:"folder_id"`
	Name          string  `json:"name" validate:"notblank,max=200"`
	Description   string  `json:"description" validate:"max=20000"`
	Category      string  `json:"category" validate:"component_category"`
	WorkloadHours int     `json:"workload_hours" validate:"min=0,max=10000"`
}

type lessonRequest struct {
	ComponentID     string        `json:"component_id" validate:"notblank"`
	Title           string        `json:"title" validate:"notblank,max=200"`
	Date            string        `json:"date" validate:"date"`
	DurationMinutes model.Minutes `json:"duration_minutes" validate:"min=0,max=1440"`
	Notes           string        `json:"notes" validate:"max=100000"`
}

type resourceRequest struct {
	Title       string   `json:"title" validate:"notblank,max=200"`
	Type        string   `json:"type" validate:"resource_type"`
	URL         string   `json:"url" validate:"omitempty,max=2048"`
	Description string   `json:"description" validate:"max=20000"`
	Tags        []string `json:"tags" validate:"max=30,dive,max=50"`
}

type previewRequest struct {
	URL string `json:"url" validate:"notblank,max=2048"`
}

type evaluationRequest struct {
	ComponentID string `json:"component_id" validate:"notblank"`
	Title       string `json:"title" validate:"notblank,max=200"`
	Type        string `json:"type" validate:"evaluation_type"`
	Date        string `json:"date" validate:"omitempty,date"`
	Weight      int    `json:"weight" validate:"min=0,max=100"`
}

type holidayRequest struct {
	Date string `json:"date" validate:"date"`
	Name string `json:"name" validate:"max=120"`
}

type calendarRequest struct {
	StartDate   string   `json:"start_date" validate:"date"`
	Weeks       int      `json:"weeks" validate:"min=0,max=104"`
	Weekdays    []int    `json:"weekdays" validate:"omitempty,max=7,dive,weekday"`
	Holidays    []string `json:"holidays" validate:"omitempty,max=366,dive,date"`
	Mode        string   `json:"mode" validate:"omitempty,recurrence_mode"`
	ComponentID string   `json:"component_id"`
	Apply       bool     `json:"apply"`
}

// --- 変換 ---

func toFolderResponse(f *model.Folder) folderResponse {
	return folderResponse{ID: f.ID, Name: f.Name, CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt}
}

func toProgressResponse(p planning.Progress) *progressResponse {
	return &progressResponse{
		CompletedMinutes: p.CompletedMinutes,
		TotalMinutes:     p.TotalMinutes,
		Percentage:       p.Percentage,
		Completed:        planning.SplitMinutes(p.CompletedMinutes).String(),
		Total:            planning.SplitMinutes(p.TotalMinutes).String(),
	}
}

func toComponentResponse(c *model.Component) componentResponse {
	return componentResponse{
		ID:            c.ID,
		FolderID:      c.FolderID,
		Name:          c.Name,
		Description:   c.Description,
		Category:      string(c.Category),
		WorkloadHours: c.WorkloadHours,
		Dates:         model.FormatDates(c.Dates),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toLessonResponse(l *model.Lesson) lessonResponse {
	ids := l.ResourceIDs
	if ids == nil {
		ids = []string{}
	}
	return lessonResponse{
		ID:              l.ID,
		ComponentID:     l.ComponentID,
		Title:           l.Title,
		Date:            l.Date.Format(model.DateLayout),
		DurationMinutes: l.DurationMinutes,
		Duration:        planning.SplitMinutes(l.DurationMinutes).String(),
		Notes:           l.Notes,
		ResourceIDs:     ids,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func toResourceResponse(r *model.Resource) resourceResponse {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return resourceResponse{
		ID:          r.ID,
		Title:       r.Title,
		Type:        string(r.Type),
		URL:         r.URL,
		Description: r.Description,
		Tags:        tags,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toEvaluationResponse(e *model.Evaluation) evaluationResponse {
	resp := evaluationResponse{
		ID:          e.ID,
		ComponentID: e.ComponentID,
		Title:       e.Title,
		Type:        string(e.Type),
		Weight:      e.Weight,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.Date != nil {
		d := e.Date.Format(model.DateLayout)
		resp.Date = &d
	}
	return resp
}

func toHolidayResponse(h *model.Holiday) holidayResponse {
	return holidayResponse{ID: h.ID, Date: h.Date.Format(model.DateLayout), Name: h.Name}
}

// mapSlice はスライスの各要素を変換する。nilの場合も空スライスを返す。
func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}
