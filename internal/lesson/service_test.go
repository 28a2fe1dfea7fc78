package lesson

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/security"
	"github.com/hitoshi/planneredu/internal/snapshot"
)

// --- モック ---

type mockLessonRepo struct {
	lessons  map[string]*model.Lesson
	listFn   func(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error)
	updated  []*model.Lesson
	deleted  []string
	createFn func(ctx context.Context, l *model.Lesson) error
}

func newMockLessonRepo(lessons ...*model.Lesson) *mockLessonRepo {
	m := &mockLessonRepo{lessons: map[string]*model.Lesson{}}
	for _, l := range lessons {
		m.lessons[l.ID] = l
	}
	return m
}

func (m *mockLessonRepo) FindByID(ctx context.Context, id string) (*model.Lesson, error) {
	return m.lessons[id], nil
}
func (m *mockLessonRepo) List(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, filter)
	}
	return nil, nil
}
func (m *mockLessonRepo) Create(ctx context.Context, l *model.Lesson) error {
	if m.createFn != nil {
		return m.createFn(ctx, l)
	}
	m.lessons[l.ID] = l
	return nil
}
func (m *mockLessonRepo) Update(ctx context.Context, l *model.Lesson) error {
	m.updated = append(m.updated, l)
	return nil
}
func (m *mockLessonRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}
func (m *mockLessonRepo) DeleteByUserID(ctx context.Context, userID string) error { return nil }

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
func (m *mockComponentRepo) Delete(ctx context.Context, id string) error { return nil }
func (m *mockComponentRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return nil
}

type mockResourceRepo struct {
	findOwnedIDsFn func(ctx context.Context, userID string, ids []string) ([]string, error)
	calls          int
}

func (m *mockResourceRepo) FindByID(ctx context.Context, id string) (*model.Resource, error) {
	return nil, nil
}
func (m *mockResourceRepo) FindOwnedIDs(ctx context.Context, userID string, ids []string) ([]string, error) {
	m.calls++
	if m.findOwnedIDsFn != nil {
		return m.findOwnedIDsFn(ctx, userID, ids)
	}
	return nil, nil
}
func (m *mockResourceRepo) List(ctx context.Context, userID string, filter model.ResourceFilter) ([]*model.Resource, error) {
	return nil, nil
}
func (m *mockResourceRepo) Create(ctx context.Context, r *model.Resource) error { return nil }
func (m *mockResourceRepo) Update(ctx context.Context, r *model.Resource) error { return nil }
func (m *mockResourceRepo) Delete(ctx context.Context, id string) error         { return nil }
func (m *mockResourceRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return nil
}

type recordingPublisher struct {
	events []snapshot.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e snapshot.Event) error {
	p.events = append(p.events, e)
	return nil
}

// --- ヘルパー ---

var lessonDate = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func ownComponents() *mockComponentRepo {
	return &mockComponentRepo{components: map[string]*model.Component{
		"c-1":     {ID: "c-1", UserID: "teacher-1"},
		"c-2":     {ID: "c-2", UserID: "teacher-1"},
		"c-other": {ID: "c-other", UserID: "teacher-2"},
	}}
}

func newTestService(lessons *mockLessonRepo, resources *mockResourceRepo) (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewService(lessons, ownComponents(), resources, security.NewHTMLSanitizer(), pub)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }
	return svc, pub
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

// --- テスト ---

func TestService_Create_KeepsOnlyOwnedMentions(t *testing.T) {
	lessons := newMockLessonRepo()
	resources := &mockResourceRepo{
		findOwnedIDsFn: func(ctx context.Context, userID string, ids []string) ([]string, error) {
			if !reflect.DeepEqual(ids, []string{"r-2", "r-foreign", "r-1"}) {
				t.Errorf("ids = %v", ids)
			}
			// リポジトリの返却順は問わない
			return []string{"r-1", "r-2"}, nil
		},
	}
	svc, pub := newTestService(lessons, resources)

	l, err := svc.Create(context.Background(), "teacher-1", LessonInput{
		ComponentID:     "c-1",
		Title:           " Frações equivalentes ",
		Date:            lessonDate,
		DurationMinutes: 50,
		Notes:           `<p>Usar @[Vídeo](r-2), @[Alheio](r-foreign) e @[Apostila](r-1)</p><script>x()</script>`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(l.ResourceIDs, []string{"r-2", "r-1"}) {
		t.Errorf("ResourceIDs = %v, want [r-2 r-1]", l.ResourceIDs)
	}
	if strings.Contains(l.Notes, "script") {
		t.Errorf("Notes not sanitized: %q", l.Notes)
	}
	if l.Title != "Frações equivalentes" {
		t.Errorf("Title = %q", l.Title)
	}
	if l.ID == "" || l.UserID != "teacher-1" || !l.CreatedAt.Equal(l.UpdatedAt) {
		t.Errorf("unexpected lesson: %+v", l)
	}
	if _, ok := lessons.lessons[l.ID]; !ok {
		t.Error("lesson should be stored")
	}
	if len(pub.events) != 1 || pub.events[0].Collection != snapshot.CollectionLessons {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestService_Create_NoMentionsSkipsLookup(t *testing.T) {
	resources := &mockResourceRepo{}
	svc, _ := newTestService(newMockLessonRepo(), resources)

	l, err := svc.Create(context.Background(), "teacher-1", LessonInput{
		ComponentID: "c-1", Title: "Aula", Date: lessonDate, DurationMinutes: 0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resources.calls != 0 {
		t.Errorf("FindOwnedIDs calls = %d, want 0", resources.calls)
	}
	if l.ResourceIDs == nil || len(l.ResourceIDs) != 0 {
		t.Errorf("ResourceIDs = %v, want empty non-nil", l.ResourceIDs)
	}
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name     string
		input    LessonInput
		wantCode string
	}{
		{"コンポーネントなし", LessonInput{Title: "A", Date: lessonDate}, model.ErrCodeValidationFailed},
		{"タイトルなし", LessonInput{ComponentID: "c-1", Title: "  ", Date: lessonDate}, model.ErrCodeValidationFailed},
		{"日付なし", LessonInput{ComponentID: "c-1", Title: "A"}, model.ErrCodeValidationFailed},
		{"負の時間", LessonInput{ComponentID: "c-1", Title: "A", Date: lessonDate, DurationMinutes: -5}, model.ErrCodeValidationFailed},
		{"上限超過", LessonInput{ComponentID: "c-1", Title: "A", Date: lessonDate, DurationMinutes: model.MaxLessonMinutes + 1}, model.ErrCodeValidationFailed},
		{"他人のコンポーネント", LessonInput{ComponentID: "c-other", Title: "A", Date: lessonDate}, model.ErrCodeComponentNotFound},
		{"存在しないコンポーネント", LessonInput{ComponentID: "c-404", Title: "A", Date: lessonDate}, model.ErrCodeComponentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lessons := newMockLessonRepo()
			svc, _ := newTestService(lessons, &mockResourceRepo{})

			_, err := svc.Create(context.Background(), "teacher-1", tt.input)
			assertAPIErrorCode(t, err, tt.wantCode)
			if len(lessons.lessons) != 0 {
				t.Error("nothing should be stored")
			}
		})
	}
}

func TestService_Create_MentionLookupError(t *testing.T) {
	lookupErr := errors.New("db down")
	resources := &mockResourceRepo{
		findOwnedIDsFn: func(ctx context.Context, userID string, ids []string) ([]string, error) {
			return nil, lookupErr
		},
	}
	svc, _ := newTestService(newMockLessonRepo(), resources)

	_, err := svc.Create(context.Background(), "teacher-1", LessonInput{
		ComponentID: "c-1", Title: "A", Date: lessonDate, Notes: "@[X](r-1)",
	})
	if !errors.Is(err, lookupErr) {
		t.Errorf("error = %v, want wrapped lookup error", err)
	}
}

func TestService_Update_MovesLessonToAnotherComponent(t *testing.T) {
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	lessons := newMockLessonRepo(&model.Lesson{
		ID: "l-1", UserID: "teacher-1", ComponentID: "c-1", Title: "Old", CreatedAt: created,
	})
	svc, pub := newTestService(lessons, &mockResourceRepo{})

	l, err := svc.Update(context.Background(), "teacher-1", "l-1", LessonInput{
		ComponentID: "c-2", Title: "New", Date: lessonDate, DurationMinutes: 90,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.ComponentID != "c-2" || l.DurationMinutes != 90 || !l.Date.Equal(lessonDate) {
		t.Errorf("unexpected lesson: %+v", l)
	}
	if !l.CreatedAt.Equal(created) {
		t.Error("CreatedAt must not change on update")
	}
	if len(lessons.updated) != 1 {
		t.Errorf("Update calls = %d, want 1", len(lessons.updated))
	}
	if len(pub.events) != 1 || pub.events[0].Action != snapshot.ActionUpdated {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestService_Update_OtherUsersLessonIsNotFound(t *testing.T) {
	lessons := newMockLessonRepo(&model.Lesson{ID: "l-1", UserID: "teacher-2", ComponentID: "c-other"})
	svc, _ := newTestService(lessons, &mockResourceRepo{})

	_, err := svc.Update(context.Background(), "teacher-1", "l-1", LessonInput{
		ComponentID: "c-1", Title: "A", Date: lessonDate,
	})
	assertAPIErrorCode(t, err, model.ErrCodeLessonNotFound)
	if len(lessons.updated) != 0 {
		t.Error("lesson of another user must not be updated")
	}
}

func TestService_List_RejectsInvertedRange(t *testing.T) {
	lessons := newMockLessonRepo()
	lessons.listFn = func(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error) {
		t.Fatal("repository should not be called")
		return nil, nil
	}
	svc, _ := newTestService(lessons, &mockResourceRepo{})

	_, err := svc.List(context.Background(), "teacher-1", model.LessonFilter{
		From: lessonDate, To: lessonDate.AddDate(0, 0, -1),
	})
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
}

func TestService_List_PassesFilter(t *testing.T) {
	lessons := newMockLessonRepo()
	var got model.LessonFilter
	lessons.listFn = func(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error) {
		got = filter
		return []*model.Lesson{{ID: "l-1"}}, nil
	}
	svc, _ := newTestService(lessons, &mockResourceRepo{})

	filter := model.LessonFilter{ComponentID: "c-1", From: lessonDate, To: lessonDate, Query: "frações"}
	result, err := svc.List(context.Background(), "teacher-1", filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || got != filter {
		t.Errorf("result = %v, filter = %+v", result, got)
	}
}

func TestService_Delete(t *testing.T) {
	lessons := newMockLessonRepo(&model.Lesson{ID: "l-1", UserID: "teacher-1"})
	svc, pub := newTestService(lessons, &mockResourceRepo{})

	if err := svc.Delete(context.Background(), "teacher-1", "l-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAPIErrorCode(t, svc.Delete(context.Background(), "teacher-1", "l-missing"), model.ErrCodeLessonNotFound)

	if !reflect.DeepEqual(lessons.deleted, []string{"l-1"}) {
		t.Errorf("deleted = %v", lessons.deleted)
	}
	if len(pub.events) != 1 || pub.events[0].Action != snapshot.ActionDeleted {
		t.Errorf("events = %+v", pub.events)
	}
}
