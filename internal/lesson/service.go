// Package lesson は授業のドメインロジックを提供する。
package lesson

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/repository"
	"github.com/hitoshi/planneredu/internal/security"
	"github.com/hitoshi/planneredu/internal/snapshot"
)

// LessonInput は授業の作成・更新の入力。
type LessonInput struct {
	ComponentID     string
	Title           string
	Date            time.Time
	DurationMinutes int
	Notes           string
}

// Service は授業のサービス層。
type Service struct {
	lessonRepo    repository.LessonRepository
	componentRepo repository.ComponentRepository
	resourceRepo  repository.ResourceRepository
	sanitizer     security.HTMLSanitizer
	publisher     snapshot.Publisher
	now           func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	lessonRepo repository.LessonRepository,
	componentRepo repository.ComponentRepository,
	resourceRepo repository.ResourceRepository,
	sanitizer security.HTMLSanitizer,
	publisher snapshot.Publisher,
) *Service {
	return &Service{
		lessonRepo:    lessonRepo,
		componentRepo: componentRepo,
		resourceRepo:  resourceRepo,
		sanitizer:     sanitizer,
		publisher:     publisher,
		now:           time.Now,
	}
}

// List はユーザーの授業一覧を日付の降順で返す。
func (s *Service) List(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, model.NewValidationError([]string{"to must not be before from"})
	}
	lessons, err := s.lessonRepo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("授業一覧の取得に失敗しました: %w", err)
	}
	return lessons, nil
}

// Get は指定IDの授業を返す。
func (s *Service) Get(ctx context.Context, userID, lessonID string) (*model.Lesson, error) {
	return s.ownedLesson(ctx, userID, lessonID)
}

// Create は授業を作成する。
// メモはサニタイズし、メモ内のリソース参照のうち本人のリソースIDのみを保存する。
func (s *Service) Create(ctx context.Context, userID string, in LessonInput) (*model.Lesson, error) {
	if err := s.checkInput(ctx, userID, in); err != nil {
		return nil, err
	}

	notes := s.sanitizer.Sanitize(in.Notes)
	resourceIDs, err := s.ownedMentions(ctx, userID, notes)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	l := &model.Lesson{
		ID:              uuid.New().String(),
		UserID:          userID,
		ComponentID:     in.ComponentID,
		Title:           strings.TrimSpace(in.Title),
		Date:            in.Date,
		DurationMinutes: in.DurationMinutes,
		Notes:           notes,
		ResourceIDs:     resourceIDs,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.lessonRepo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("授業の作成に失敗しました: %w", err)
	}

	slog.Info("lesson created",
		slog.String("user_id", userID),
		slog.String("lesson_id", l.ID),
		slog.String("component_id", l.ComponentID),
	)
	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionLessons, snapshot.ActionCreated, l.ID)
	return l, nil
}

// Update は授業を更新する。
func (s *Service) Update(ctx context.Context, userID, lessonID string, in LessonInput) (*model.Lesson, error) {
	l, err := s.ownedLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.checkInput(ctx, userID, in); err != nil {
		return nil, err
	}

	notes := s.sanitizer.Sanitize(in.Notes)
	resourceIDs, err := s.ownedMentions(ctx, userID, notes)
	if err != nil {
		return nil, err
	}

	l.ComponentID = in.ComponentID
	l.Title = strings.TrimSpace(in.Title)
	l.Date = in.Date
	l.DurationMinutes = in.DurationMinutes
	l.Notes = notes
	l.ResourceIDs = resourceIDs
	l.UpdatedAt = s.now().UTC()

	if err := s.lessonRepo.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("授業の更新に失敗しました: %w", err)
	}

	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionLessons, snapshot.ActionUpdated, l.ID)
	return l, nil
}

// Delete は授業を削除する。
func (s *Service) Delete(ctx context.Context, userID, lessonID string) error {
	if _, err := s.ownedLesson(ctx, userID, lessonID); err != nil {
		return err
	}
	if err := s.lessonRepo.Delete(ctx, lessonID); err != nil {
		return fmt.Errorf("授業の削除に失敗しました: %w", err)
	}

	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionLessons, snapshot.ActionDeleted, lessonID)
	return nil
}

func (s *Service) ownedLesson(ctx context.Context, userID, lessonID string) (*model.Lesson, error) {
	l, err := s.lessonRepo.FindByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("授業の取得に失敗しました: %w", err)
	}
	if l == nil || l.UserID != userID {
		return nil, model.NewLessonNotFoundError(lessonID)
	}
	return l, nil
}

// checkInput は入力値と、授業が属するコンポーネントの所有者を検証する。
func (s *Service) checkInput(ctx context.Context, userID string, in LessonInput) error {
	var fields []string
	if strings.TrimSpace(in.ComponentID) == "" {
		fields = append(fields, "component_id is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		fields = append(fields, "title is required")
	}
	if in.Date.IsZero() {
		fields = append(fields, "date is required")
	}
	if in.DurationMinutes < 0 {
		fields = append(fields, "duration_minutes must be 0 or greater")
	}
	if in.DurationMinutes > model.MaxLessonMinutes {
		fields = append(fields, fmt.Sprintf("duration_minutes must be at most %d", model.MaxLessonMinutes))
	}
	if len(fields) > 0 {
		return model.NewValidationError(fields)
	}

	c, err := s.componentRepo.FindByID(ctx, in.ComponentID)
	if err != nil {
		return fmt.Errorf("コンポーネントの取得に失敗しました: %w", err)
	}
	if c == nil || c.UserID != userID {
		return model.NewComponentNotFoundError(in.ComponentID)
	}
	return nil
}

// ownedMentions はメモ内で参照されたリソースIDのうち、ユーザーが所有するものを出現順で返す。
func (s *Service) ownedMentions(ctx context.Context, userID, notes string) ([]string, error) {
	mentioned := MentionedResourceIDs(notes)
	if len(mentioned) == 0 {
		return []string{}, nil
	}

	owned, err := s.resourceRepo.FindOwnedIDs(ctx, userID, mentioned)
	if err != nil {
		return nil, fmt.Errorf("参照リソースの確認に失敗しました: %w", err)
	}

	ids := make([]string, 0, len(owned))
	for _, id := range mentioned {
		if slices.Contains(owned, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
