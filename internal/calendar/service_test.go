package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/planning"
	"github.com/hitoshi/planneredu/internal/snapshot"
)

// --- モック ---

type mockHolidayRepo struct {
	holidays     map[string]*model.Holiday
	deleteBefore func(ctx context.Context, before time.Time) (int64, error)
}

func newMockHolidayRepo(holidays ...*model.Holiday) *mockHolidayRepo {
	m := &mockHolidayRepo{holidays: map[string]*model.Holiday{}}
	for _, h := range holidays {
		m.holidays[h.ID] = h
	}
	return m
}

func (m *mockHolidayRepo) FindByID(ctx context.Context, id string) (*model.Holiday, error) {
	return m.holidays[id], nil
}
func (m *mockHolidayRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Holiday, error) {
	var out []*model.Holiday
	for _, h := range m.holidays {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}
func (m *mockHolidayRepo) Create(ctx context.Context, h *model.Holiday) error {
	m.holidays[h.ID] = h
	return nil
}
func (m *mockHolidayRepo) Delete(ctx context.Context, id string) error {
	delete(m.holidays, id)
	return nil
}
func (m *mockHolidayRepo) DeleteByUserID(ctx context.Context, userID string) error { return nil }
func (m *mockHolidayRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	if m.deleteBefore != nil {
		return m.deleteBefore(ctx, before)
	}
	return 0, nil
}

type mockComponentRepo struct {
	components map[string]*model.Component
}

func (m *mockComponentRepo) FindByID(ctx context.Context, id string) (*model.Component, error) {
	return m.components[id], nil
}
func (m *mockComponentRepo) List(ctx context.Context, userID string, filter model.ComponentFilter) ([]*model.Component, error) {
	return nil, nil
}
func (m *mockComponentRepo) Create(ctx context.Context, c *model.Component) error { return nil }
func (m *mockComponentRepo) Update(ctx context.Context, c *model.Component) error { return nil }
func (m *mockComponentRepo) UpdateDates(ctx context.Context, id string, dates []time.Time) error {
	return nil
}
func (m *mockComponentRepo) Delete(ctx context.Context, id string) error             { return nil }
func (m *mockComponentRepo) DeleteByUserID(ctx context.Context, userID string) error { return nil }

type mockLessonRepo struct {
	lessons    []*model.Lesson
	lastFilter model.LessonFilter
}

func (m *mockLessonRepo) FindByID(ctx context.Context, id string) (*model.Lesson, error) {
	return nil, nil
}
func (m *mockLessonRepo) List(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error) {
	m.lastFilter = filter
	return m.lessons, nil
}
func (m *mockLessonRepo) Create(ctx context.Context, l *model.Lesson) error       { return nil }
func (m *mockLessonRepo) Update(ctx context.Context, l *model.Lesson) error       { return nil }
func (m *mockLessonRepo) Delete(ctx context.Context, id string) error             { return nil }
func (m *mockLessonRepo) DeleteByUserID(ctx context.Context, userID string) error { return nil }

type mockApplier struct {
	calls []time.Time
	err   error
}

func (m *mockApplier) ApplyDates(ctx context.Context, userID, componentID string, dates []time.Time) (*model.Component, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.calls = dates
	return &model.Component{ID: componentID, UserID: userID, Dates: dates}, nil
}

type fakeMetrics struct {
	modes   []string
	dates   []int
	exports int
	purged  int64
}

func (m *fakeMetrics) RecordCalendarGenerated(mode string, dates int) {
	m.modes = append(m.modes, mode)
	m.dates = append(m.dates, dates)
}
func (m *fakeMetrics) RecordICSExport()                           { m.exports++ }
func (m *fakeMetrics) RecordPreview(bool)                         {}
func (m *fakeMetrics) RecordHTTPStatus(int)                       {}
func (m *fakeMetrics) RecordRequestLatency(string, time.Duration) {}
func (m *fakeMetrics) RecordHolidaysPurged(n int64)               { m.purged += n }

type recordingPublisher struct {
	events []snapshot.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e snapshot.Event) error {
	p.events = append(p.events, e)
	return nil
}

type testDeps struct {
	holidays   *mockHolidayRepo
	components *mockComponentRepo
	lessons    *mockLessonRepo
	applier    *mockApplier
	metrics    *fakeMetrics
	pub        *recordingPublisher
}

func newTestService(holidays ...*model.Holiday) (*Service, *testDeps) {
	d := &testDeps{
		holidays: newMockHolidayRepo(holidays...),
		lessons:  &mockLessonRepo{},
		applier:  &mockApplier{},
		metrics:  &fakeMetrics{},
		pub:      &recordingPublisher{},
	}
	d.components = &mockComponentRepo{components: map[string]*model.Component{
		"comp-1": {ID: "comp-1", UserID: "teacher-1", Name: "Matemática"},
		"comp-2": {ID: "comp-2", UserID: "teacher-2", Name: "História"},
	}}
	svc := NewService(d.holidays, d.components, d.lessons, d.applier, d.metrics, d.pub)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

func assertDates(t *testing.T, got []time.Time, want ...time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("dates = %v, want %v", model.FormatDates(got), model.FormatDates(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %s, want %s", i, got[i].Format(model.DateLayout), want[i].Format(model.DateLayout))
		}
	}
}

// --- 休日 ---

func TestService_CreateHoliday(t *testing.T) {
	svc, d := newTestService()

	h, err := svc.CreateHoliday(context.Background(), "teacher-1",
		time.Date(2024, 2, 12, 18, 0, 0, 0, time.FixedZone("BRT", -3*60*60)), " Carnaval ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Date.Equal(day(2024, 2, 12)) || h.Name != "Carnaval" {
		t.Errorf("unexpected holiday: %+v", h)
	}
	if len(d.pub.events) != 1 || d.pub.events[0].Collection != snapshot.CollectionHolidays {
		t.Errorf("events = %+v", d.pub.events)
	}

	_, err = svc.CreateHoliday(context.Background(), "teacher-1", time.Time{}, "x")
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
}

func TestService_DeleteHoliday_Ownership(t *testing.T) {
	svc, d := newTestService(
		&model.Holiday{ID: "h-1", UserID: "teacher-1", Date: day(2024, 4, 21)},
		&model.Holiday{ID: "h-2", UserID: "teacher-2", Date: day(2024, 4, 21)},
	)

	if err := svc.DeleteHoliday(context.Background(), "teacher-1", "h-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAPIErrorCode(t, svc.DeleteHoliday(context.Background(), "teacher-1", "h-2"), model.ErrCodeHolidayNotFound)
	if _, ok := d.holidays.holidays["h-2"]; !ok {
		t.Error("holiday of another user must not be deleted")
	}
}

func TestService_PurgeHolidaysBefore(t *testing.T) {
	svc, d := newTestService()
	var gotBefore time.Time
	d.holidays.deleteBefore = func(ctx context.Context, before time.Time) (int64, error) {
		gotBefore = before
		return 3, nil
	}

	n, err := svc.PurgeHolidaysBefore(context.Background(), time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 || d.metrics.purged != 3 {
		t.Errorf("n = %d, purged metric = %d", n, d.metrics.purged)
	}
	if !gotBefore.Equal(day(2022, 3, 1)) {
		t.Errorf("before = %v, want 2022-03-01", gotBefore)
	}
}

// --- 生成 ---

func TestService_Generate_MergesStoredAndRequestHolidays(t *testing.T) {
	// 2024-03-04は月曜日
	svc, d := newTestService(
		&model.Holiday{ID: "h-1", UserID: "teacher-1", Date: day(2024, 3, 6)},
		&model.Holiday{ID: "h-2", UserID: "teacher-2", Date: day(2024, 3, 11)},
	)

	res, err := svc.Generate(context.Background(), "teacher-1", GenerateInput{
		StartDate: day(2024, 3, 4),
		Weeks:     2,
		Weekdays:  []int{1, 3},
		Holidays:  []time.Time{day(2024, 3, 13)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 他ユーザーの休日（03-11）は除外に使われない
	assertDates(t, res.Dates, day(2024, 3, 4), day(2024, 3, 11))
	if res.Component != nil {
		t.Error("Component must be nil without apply")
	}
	if len(d.metrics.modes) != 1 || d.metrics.modes[0] != string(planning.ModeOffset) || d.metrics.dates[0] != 2 {
		t.Errorf("metrics = %+v", d.metrics)
	}
}

func TestService_Generate_DefaultWeekdays(t *testing.T) {
	svc, _ := newTestService()

	res, err := svc.Generate(context.Background(), "teacher-1", GenerateInput{StartDate: day(2024, 3, 4), Weeks: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertDates(t, res.Dates, day(2024, 3, 4), day(2024, 3, 6), day(2024, 3, 8))
}

func TestService_Generate_ForwardMode(t *testing.T) {
	// 2024-03-06は水曜日。月曜日は次週から
	svc, d := newTestService()

	res, err := svc.Generate(context.Background(), "teacher-1", GenerateInput{
		StartDate: day(2024, 3, 6), Weeks: 1, Weekdays: []int{1}, Mode: planning.ModeForward,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertDates(t, res.Dates, day(2024, 3, 11))
	if d.metrics.modes[0] != string(planning.ModeForward) {
		t.Errorf("mode metric = %q", d.metrics.modes[0])
	}
}

func TestService_Generate_Apply(t *testing.T) {
	svc, d := newTestService()

	res, err := svc.Generate(context.Background(), "teacher-1", GenerateInput{
		StartDate: day(2024, 3, 4), Weeks: 1, Weekdays: []int{2}, ComponentID: "comp-1", Apply: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Component == nil || res.Component.ID != "comp-1" {
		t.Fatalf("Component = %+v", res.Component)
	}
	assertDates(t, d.applier.calls, day(2024, 3, 5))
}

func TestService_Generate_ApplyErrorIsReturned(t *testing.T) {
	svc, d := newTestService()
	d.applier.err = errors.New("db down")

	_, err := svc.Generate(context.Background(), "teacher-1", GenerateInput{
		StartDate: day(2024, 3, 4), Weeks: 1, ComponentID: "comp-1", Apply: true,
	})
	if !errors.Is(err, d.applier.err) {
		t.Errorf("err = %v", err)
	}
}

func TestService_Generate_DegenerateInputIsEmpty(t *testing.T) {
	svc, _ := newTestService()

	res, err := svc.Generate(context.Background(), "teacher-1", GenerateInput{
		StartDate: day(2024, 3, 4), Weeks: 0, Weekdays: []int{1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Dates == nil || len(res.Dates) != 0 {
		t.Errorf("Dates = %v, want empty", res.Dates)
	}
}

func TestService_Generate_Validation(t *testing.T) {
	tests := []struct {
		name     string
		input    GenerateInput
		wantCode string
	}{
		{"開始日なし", GenerateInput{Weeks: 1}, model.ErrCodeValidationFailed},
		{"週数の上限超過", GenerateInput{StartDate: day(2024, 3, 4), Weeks: MaxWeeks + 1}, model.ErrCodeValidationFailed},
		{"applyにcomponent_idなし", GenerateInput{StartDate: day(2024, 3, 4), Weeks: 1, Apply: true}, model.ErrCodeValidationFailed},
		{"未定義の方式", GenerateInput{StartDate: day(2024, 3, 4), Weeks: 1, Mode: "backward"}, model.ErrCodeInvalidCategory},
		{"他ユーザーのコンポーネント", GenerateInput{StartDate: day(2024, 3, 4), Weeks: 1, ComponentID: "comp-2"}, model.ErrCodeComponentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newTestService()
			_, err := svc.Generate(context.Background(), "teacher-1", tt.input)
			assertAPIErrorCode(t, err, tt.wantCode)
			if len(d.metrics.modes) != 0 {
				t.Error("rejected request must not be recorded")
			}
		})
	}
}
