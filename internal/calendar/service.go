// Package calendar は休日の管理と授業カレンダーの生成・iCalendar出力を提供する。
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/planneredu/internal/metrics"
	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/planning"
	"github.com/hitoshi/planneredu/internal/repository"
	"github.com/hitoshi/planneredu/internal/snapshot"
)

// MaxWeeks は1回の生成で指定できる週数の上限。
const MaxWeeks = 104

// DatesApplier は生成した授業日をコンポーネントに保存する。
type DatesApplier interface {
	ApplyDates(ctx context.Context, userID, componentID string, dates []time.Time) (*model.Component, error)
}

// GenerateInput はカレンダー生成の入力。
// Weekdaysがnilの場合はplanning.DefaultWeekdaysを使う。
type GenerateInput struct {
	StartDate   time.Time
	Weeks       int
	Weekdays    []int
	Holidays    []time.Time
	Mode        planning.RecurrenceMode
	ComponentID string
	Apply       bool
}

// GenerateResult はカレンダー生成の結果。ComponentはApply指定時のみ設定される。
type GenerateResult struct {
	Dates     []time.Time
	Component *model.Component
}

// Service は休日とカレンダー生成のサービス層。
type Service struct {
	holidayRepo   repository.HolidayRepository
	componentRepo repository.ComponentRepository
	lessonRepo    repository.LessonRepository
	applier       DatesApplier
	metrics       metrics.MetricsCollector
	publisher     snapshot.Publisher
	now           func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(
	holidayRepo repository.HolidayRepository,
	componentRepo repository.ComponentRepository,
	lessonRepo repository.LessonRepository,
	applier DatesApplier,
	collector metrics.MetricsCollector,
	publisher snapshot.Publisher,
) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		holidayRepo:   holidayRepo,
		componentRepo: componentRepo,
		lessonRepo:    lessonRepo,
		applier:       applier,
		metrics:       collector,
		publisher:     publisher,
		now:           time.Now,
	}
}

// --- 休日 ---

// ListHolidays はユーザーの休日一覧を日付順で返す。
func (s *Service) ListHolidays(ctx context.Context, userID string) ([]*model.Holiday, error) {
	holidays, err := s.holidayRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("休日一覧の取得に失敗しました: %w", err)
	}
	return holidays, nil
}

// CreateHoliday は休日を登録する。同じ日付が登録済みの場合は名前を更新する。
func (s *Service) CreateHoliday(ctx context.Context, userID string, date time.Time, name string) (*model.Holiday, error) {
	if date.IsZero() {
		return nil, model.NewValidationError([]string{"date is required"})
	}

	h := &model.Holiday{
		ID:        uuid.New().String(),
		UserID:    userID,
		Date:      dayOf(date),
		Name:      strings.TrimSpace(name),
		CreatedAt: s.now().UTC(),
	}
	if err := s.holidayRepo.Create(ctx, h); err != nil {
		return nil, fmt.Errorf("休日の登録に失敗しました: %w", err)
	}

	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionHolidays, snapshot.ActionCreated, h.ID)
	return h, nil
}

// DeleteHoliday は休日を削除する。
func (s *Service) DeleteHoliday(ctx context.Context, userID, holidayID string) error {
	h, err := s.holidayRepo.FindByID(ctx, holidayID)
	if err != nil {
		return fmt.Errorf("休日の取得に失敗しました: %w", err)
	}
	if h == nil || h.UserID != userID {
		return model.NewHolidayNotFoundError(holidayID)
	}
	if err := s.holidayRepo.Delete(ctx, holidayID); err != nil {
		return fmt.Errorf("休日の削除に失敗しました: %w", err)
	}

	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionHolidays, snapshot.ActionDeleted, holidayID)
	return nil
}

// PurgeHolidaysBefore はbeforeより前の休日を全ユーザー分削除する。定期クリーンアップから呼ばれる。
func (s *Service) PurgeHolidaysBefore(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.holidayRepo.DeleteBefore(ctx, dayOf(before))
	if err != nil {
		return 0, fmt.Errorf("古い休日の削除に失敗しました: %w", err)
	}
	s.metrics.RecordHolidaysPurged(n)
	return n, nil
}

// --- 生成 ---

// Generate は登録済みの休日とリクエストの休日を合わせて授業日を生成する。
// Applyが指定された場合は結果をコンポーネントの授業予定日として保存する。
func (s *Service) Generate(ctx context.Context, userID string, in GenerateInput) (*GenerateResult, error) {
	if err := s.checkInput(ctx, userID, in); err != nil {
		return nil, err
	}

	stored, err := s.holidayRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("休日一覧の取得に失敗しました: %w", err)
	}
	holidays := make([]time.Time, 0, len(stored)+len(in.Holidays))
	for _, h := range stored {
		holidays = append(holidays, h.Date)
	}
	holidays = append(holidays, in.Holidays...)

	weekdays := in.Weekdays
	if weekdays == nil {
		weekdays = planning.DefaultWeekdays
	}
	mode := in.Mode
	if mode == "" {
		mode = planning.ModeOffset
	}

	dates := planning.GenerateCalendar(planning.CalendarRequest{
		StartDate: dayOf(in.StartDate),
		Weeks:     in.Weeks,
		Weekdays:  weekdays,
		Holidays:  holidays,
		Mode:      mode,
	})
	s.metrics.RecordCalendarGenerated(string(mode), len(dates))

	slog.Info("calendar generated",
		slog.String("user_id", userID),
		slog.String("mode", string(mode)),
		slog.Int("weeks", in.Weeks),
		slog.Int("dates", len(dates)),
	)

	result := &GenerateResult{Dates: dates}
	if in.Apply {
		c, err := s.applier.ApplyDates(ctx, userID, in.ComponentID, dates)
		if err != nil {
			return nil, err
		}
		result.Component = c
	}
	return result, nil
}

func (s *Service) checkInput(ctx context.Context, userID string, in GenerateInput) error {
	var fields []string
	if in.StartDate.IsZero() {
		fields = append(fields, "start_date is required")
	}
	if in.Weeks > MaxWeeks {
		fields = append(fields, fmt.Sprintf("weeks must be at most %d", MaxWeeks))
	}
	if in.Apply && in.ComponentID == "" {
		fields = append(fields, "component_id is required when apply is set")
	}
	if len(fields) > 0 {
		return model.NewValidationError(fields)
	}
	if !in.Mode.Valid() {
		return model.NewInvalidCategoryError(string(in.Mode))
	}
	if in.ComponentID != "" {
		if _, err := s.ownedComponent(ctx, userID, in.ComponentID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ownedComponent(ctx context.Context, userID, componentID string) (*model.Component, error) {
	c, err := s.componentRepo.FindByID(ctx, componentID)
	if err != nil {
		return nil, fmt.Errorf("コンポーネントの取得に失敗しました: %w", err)
	}
	if c == nil || c.UserID != userID {
		return nil, model.NewComponentNotFoundError(componentID)
	}
	return c, nil
}

// dayOf は時刻の暦日部分をUTCの0時として返す。
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
