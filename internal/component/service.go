// Package component はフォルダとコンポーネント（科目・単元）のドメインロジックを提供する。
package component

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/planning"
	"github.com/hitoshi/planneredu/internal/repository"
	"github.com/hitoshi/planneredu/internal/security"
	"github.com/hitoshi/planneredu/internal/snapshot"
)

// ComponentInput はコンポーネントの作成・更新の入力。
type ComponentInput struct {
	FolderID      *string
	Name          string
	Description   string
	Category      model.ComponentCategory
	WorkloadHours int
}

// ComponentWithProgress はコンポーネントと、その時点の授業から算出した進捗。
type ComponentWithProgress struct {
	*model.Component
	Progress planning.Progress
}

// Service はフォルダとコンポーネントのサービス層。
type Service struct {
	folderRepo    repository.FolderRepository
	componentRepo repository.ComponentRepository
	lessonRepo    repository.LessonRepository
	sanitizer     security.HTMLSanitizer
	publisher     snapshot.Publisher
	now           func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	folderRepo repository.FolderRepository,
	componentRepo repository.ComponentRepository,
	lessonRepo repository.LessonRepository,
	sanitizer security.HTMLSanitizer,
	publisher snapshot.Publisher,
) *Service {
	return &Service{
		folderRepo:    folderRepo,
		componentRepo: componentRepo,
		lessonRepo:    lessonRepo,
		sanitizer:     sanitizer,
		publisher:     publisher,
		now:           time.Now,
	}
}

// --- フォルダ ---

// ListFolders はユーザーのフォルダ一覧を返す。
func (s *Service) ListFolders(ctx context.Context, userID string) ([]*model.Folder, error) {
	folders, err := s.folderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("フォルダ一覧の取得に失敗しました: %w", err)
	}
	return folders, nil
}

// CreateFolder はフォルダを作成する。
func (s *Service) CreateFolder(ctx context.Context, userID, name string) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError([]string{"name is required"})
	}

	now := s.now().UTC()
	folder := &model.Folder{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("フォルダの作成に失敗しました: %w", err)
	}

	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionFolders, snapshot.ActionCreated, folder.ID)
	return folder, nil
}

// RenameFolder はフォルダ名を変更する。
func (s *Service) RenameFolder(ctx context.Context, userID, folderID, name string) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError([]string{"name is required"})
	}

	folder, err := s.ownedFolder(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}

	folder.Name = name
	folder.UpdatedAt = s.now().UTC()
	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, fmt.Errorf("フォルダの更新に失敗しました: %w", err)
	}

	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionFolders, snapshot.ActionUpdated, folder.ID)
	return folder, nil
}

// DeleteFolder はフォルダを削除する。所属コンポーネントはフォルダなしになる。
func (s *Service) DeleteFolder(ctx context.Context, userID, folderID string) error {
	if _, err := s.ownedFolder(ctx, userID, folderID); err != nil {
		return err
	}
	if err := s.folderRepo.Delete(ctx, folderID); err != nil {
		return fmt.Errorf("フォルダの削除に失敗しました: %w", err)
	}

	slog.Info("folder deleted",
		slog.String("user_id", userID),
		slog.String("folder_id", folderID),
	)
	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionFolders, snapshot.ActionDeleted, folderID)
	// 所属していたコンポーネントのfolder_idも変わるため一覧の再取得を促す
	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionComponents, snapshot.ActionUpdated, "")
	return nil
}

func (s *Service) ownedFolder(ctx context.Context, userID, folderID string) (*model.Folder, error) {
	folder, err := s.folderRepo.FindByID(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("フォルダの取得に失敗しました: %w", err)
	}
	if folder == nil || folder.UserID != userID {
		return nil, model.NewFolderNotFoundError(folderID)
	}
	return folder, nil
}

// --- コンポーネント ---

// List はユーザーのコンポーネント一覧を名前順で返す。
func (s *Service) List(ctx context.Context, userID string, filter model.ComponentFilter) ([]*model.Component, error) {
	components, err := s.componentRepo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("コンポーネント一覧の取得に失敗しました: %w", err)
	}
	return components, nil
}

// ListWithProgress はコンポーネント一覧を、呼び出し時点の授業から算出した進捗付きで返す。
// 進捗は保存せず、毎回授業一覧から再計算する。
func (s *Service) ListWithProgress(ctx context.Context, userID string, filter model.ComponentFilter) ([]ComponentWithProgress, error) {
	components, err := s.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	lessons, err := s.lessonRepo.List(ctx, userID, model.LessonFilter{})
	if err != nil {
		return nil, fmt.Errorf("授業一覧の取得に失敗しました: %w", err)
	}

	workloads := make([]planning.ComponentWorkload, len(components))
	for i, c := range components {
		workloads[i] = planning.ComponentWorkload{ID: c.ID, WorkloadHours: float64(c.WorkloadHours)}
	}
	progress := planning.ComputeProgressByComponent(workloads, lessonDurations(lessons))

	results := make([]ComponentWithProgress, len(components))
	for i, c := range components {
		results[i] = ComponentWithProgress{Component: c, Progress: progress[c.ID]}
	}
	return results, nil
}

// Get は指定IDのコンポーネントを返す。
func (s *Service) Get(ctx context.Context, userID, componentID string) (*model.Component, error) {
	return s.ownedComponent(ctx, userID, componentID)
}

// GetProgress はコンポーネントの進捗を返す。
func (s *Service) GetProgress(ctx context.Context, userID, componentID string) (*planning.Progress, error) {
	c, err := s.ownedComponent(ctx, userID, componentID)
	if err != nil {
		return nil, err
	}

	lessons, err := s.lessonRepo.List(ctx, userID, model.LessonFilter{ComponentID: componentID})
	if err != nil {
		return nil, fmt.Errorf("授業一覧の取得に失敗しました: %w", err)
	}

	p := planning.ComputeProgress(float64(c.WorkloadHours), c.ID, lessonDurations(lessons))
	return &p, nil
}

// Create はコンポーネントを作成する。説明文はサニタイズして保存する。
func (s *Service) Create(ctx context.Context, userID string, in ComponentInput) (*model.Component, error) {
	if err := s.checkInput(ctx, userID, in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := &model.Component{
		ID:            uuid.New().String(),
		UserID:        userID,
		FolderID:      normalizeFolderID(in.FolderID),
		Name:          strings.TrimSpace(in.Name),
		Description:   s.sanitizer.Sanitize(in.Description),
		Category:      in.Category,
		WorkloadHours: in.WorkloadHours,
		Dates:         []time.Time{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.componentRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("コンポーネントの作成に失敗しました: %w", err)
	}

	slog.Info("component created",
		slog.String("user_id", userID),
		slog.String("component_id", c.ID),
	)
	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionComponents, snapshot.ActionCreated, c.ID)
	return c, nil
}

// Update はコンポーネントを更新する。授業予定日はApplyDatesでのみ変更する。
func (s *Service) Update(ctx context.Context, userID, componentID string, in ComponentInput) (*model.Component, error) {
	c, err := s.ownedComponent(ctx, userID, componentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkInput(ctx, userID, in); err != nil {
		return nil, err
	}

	c.FolderID = normalizeFolderID(in.FolderID)
	c.Name = strings.TrimSpace(in.Name)
	c.Description = s.sanitizer.Sanitize(in.Description)
	c.Category = in.Category
	c.WorkloadHours = in.WorkloadHours
	c.UpdatedAt = s.now().UTC()

	if err := s.componentRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("コンポーネントの更新に失敗しました: %w", err)
	}

	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionComponents, snapshot.ActionUpdated, c.ID)
	return c, nil
}

// ApplyDates はカレンダー生成結果をコンポーネントの授業予定日として保存する。
func (s *Service) ApplyDates(ctx context.Context, userID, componentID string, dates []time.Time) (*model.Component, error) {
	c, err := s.ownedComponent(ctx, userID, componentID)
	if err != nil {
		return nil, err
	}

	if err := s.componentRepo.UpdateDates(ctx, componentID, dates); err != nil {
		return nil, fmt.Errorf("授業予定日の保存に失敗しました: %w", err)
	}
	c.Dates = dates

	slog.Info("component dates applied",
		slog.String("user_id", userID),
		slog.String("component_id", componentID),
		slog.Int("dates", len(dates)),
	)
	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionComponents, snapshot.ActionUpdated, componentID)
	return c, nil
}

// Delete はコンポーネントを削除する。授業と評価も削除される。
func (s *Service) Delete(ctx context.Context, userID, componentID string) error {
	if _, err := s.ownedComponent(ctx, userID, componentID); err != nil {
		return err
	}
	if err := s.componentRepo.Delete(ctx, componentID); err != nil {
		return fmt.Errorf("コンポーネントの削除に失敗しました: %w", err)
	}

	slog.Info("component deleted",
		slog.String("user_id", userID),
		slog.String("component_id", componentID),
	)
	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionComponents, snapshot.ActionDeleted, componentID)
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

// checkInput は入力値とフォルダの所有者を検証する。
func (s *Service) checkInput(ctx context.Context, userID string, in ComponentInput) error {
	var fields []string
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, "name is required")
	}
	if in.WorkloadHours < 0 {
		fields = append(fields, "workload_hours must be 0 or greater")
	}
	if len(fields) > 0 {
		return model.NewValidationError(fields)
	}
	if !in.Category.Valid() {
		return model.NewInvalidCategoryError(string(in.Category))
	}

	if folderID := normalizeFolderID(in.FolderID); folderID != nil {
		if _, err := s.ownedFolder(ctx, userID, *folderID); err != nil {
			return err
		}
	}
	return nil
}

// normalizeFolderID は空文字のフォルダIDをnil（フォルダなし）として扱う。
func normalizeFolderID(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := strings.TrimSpace(*id)
	return &v
}

func lessonDurations(lessons []*model.Lesson) []planning.LessonDuration {
	out := make([]planning.LessonDuration, len(lessons))
	for i, l := range lessons {
		out[i] = planning.LessonDuration{ComponentID: l.ComponentID, DurationMinutes: l.DurationMinutes}
	}
	return out
}
