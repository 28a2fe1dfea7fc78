// Package evaluation はコンポーネントの評価（試験・課題など）のドメインロジックを提供する。
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/repository"
	"github.com/hitoshi/planneredu/internal/snapshot"
)

// EvaluationInput は評価の作成・更新の入力。
type EvaluationInput struct {
	ComponentID string
	Title       string
	Type        model.EvaluationType
	Date        *time.Time
	Weight      int
}

// Service は評価のサービス層。
type Service struct {
	evaluationRepo repository.EvaluationRepository
	componentRepo  repository.ComponentRepository
	publisher      snapshot.Publisher
	now            func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	evaluationRepo repository.EvaluationRepository,
	componentRepo repository.ComponentRepository,
	publisher snapshot.Publisher,
) *Service {
	return &Service{
		evaluationRepo: evaluationRepo,
		componentRepo:  componentRepo,
		publisher:      publisher,
		now:            time.Now,
	}
}

// List はユーザーの評価一覧を返す。componentIDが空でなければ絞り込む。
func (s *Service) List(ctx context.Context, userID, componentID string) ([]*model.Evaluation, error) {
	evaluations, err := s.evaluationRepo.ListByUserID(ctx, userID, componentID)
	if err != nil {
		return nil, fmt.Errorf("評価一覧の取得に失敗しました: %w", err)
	}
	return evaluations, nil
}

// Get は指定IDの評価を返す。
func (s *Service) Get(ctx context.Context, userID, evaluationID string) (*model.Evaluation, error) {
	return s.ownedEvaluation(ctx, userID, evaluationID)
}

// Create は評価を作成する。
// コンポーネントの評価比重の合計がMaxEvaluationWeightを超える場合はエラーを返す。
func (s *Service) Create(ctx context.Context, userID string, in EvaluationInput) (*model.Evaluation, error) {
	if err := s.checkInput(ctx, userID, in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	e := &model.Evaluation{
		ID:          uuid.New().String(),
		UserID:      userID,
		ComponentID: in.ComponentID,
		Title:       strings.TrimSpace(in.Title),
		Type:        in.Type,
		Date:        utcDate(in.Date),
		Weight:      in.Weight,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.evaluationRepo.Create(ctx, e, model.MaxEvaluationWeight); err != nil {
		return nil, writeError("評価の作成に失敗しました", err)
	}

	slog.Info("evaluation created",
		slog.String("user_id", userID),
		slog.String("evaluation_id", e.ID),
		slog.String("component_id", e.ComponentID),
		slog.Int("weight", e.Weight),
	)
	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionEvaluations, snapshot.ActionCreated, e.ID)
	return e, nil
}

// Update は評価を更新する。比重の合計は更新対象自身を除いて再計算する。
func (s *Service) Update(ctx context.Context, userID, evaluationID string, in EvaluationInput) (*model.Evaluation, error) {
	e, err := s.ownedEvaluation(ctx, userID, evaluationID)
	if err != nil {
		return nil, err
	}
	if err := s.checkInput(ctx, userID, in); err != nil {
		return nil, err
	}

	updated := *e
	updated.ComponentID = in.ComponentID
	updated.Title = strings.TrimSpace(in.Title)
	updated.Type = in.Type
	updated.Date = utcDate(in.Date)
	updated.Weight = in.Weight
	updated.UpdatedAt = s.now().UTC()

	if err := s.evaluationRepo.Update(ctx, &updated, model.MaxEvaluationWeight); err != nil {
		return nil, writeError("評価の更新に失敗しました", err)
	}

	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionEvaluations, snapshot.ActionUpdated, updated.ID)
	return &updated, nil
}

// Delete は評価を削除する。
func (s *Service) Delete(ctx context.Context, userID, evaluationID string) error {
	if _, err := s.ownedEvaluation(ctx, userID, evaluationID); err != nil {
		return err
	}
	if err := s.evaluationRepo.Delete(ctx, evaluationID); err != nil {
		return fmt.Errorf("評価の削除に失敗しました: %w", err)
	}

	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionEvaluations, snapshot.ActionDeleted, evaluationID)
	return nil
}

// Summary はコンポーネントの評価比重の合計・残り・種別ごとの件数を返す。
func (s *Service) Summary(ctx context.Context, userID, componentID string) (*model.EvaluationSummary, error) {
	if err := s.checkComponent(ctx, userID, componentID); err != nil {
		return nil, err
	}

	evaluations, err := s.evaluationRepo.ListByUserID(ctx, userID, componentID)
	if err != nil {
		return nil, fmt.Errorf("評価一覧の取得に失敗しました: %w", err)
	}

	summary := &model.EvaluationSummary{
		ComponentID: componentID,
		CountByType: make(map[model.EvaluationType]int),
	}
	for _, e := range evaluations {
		summary.TotalWeight += e.Weight
		summary.CountByType[e.Type]++
	}
	summary.RemainingWeight = max(model.MaxEvaluationWeight-summary.TotalWeight, 0)
	return summary, nil
}

func (s *Service) ownedEvaluation(ctx context.Context, userID, evaluationID string) (*model.Evaluation, error) {
	e, err := s.evaluationRepo.FindByID(ctx, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("評価の取得に失敗しました: %w", err)
	}
	if e == nil || e.UserID != userID {
		return nil, model.NewEvaluationNotFoundError(evaluationID)
	}
	return e, nil
}

func (s *Service) checkComponent(ctx context.Context, userID, componentID string) error {
	c, err := s.componentRepo.FindByID(ctx, componentID)
	if err != nil {
		return fmt.Errorf("コンポーネントの取得に失敗しました: %w", err)
	}
	if c == nil || c.UserID != userID {
		return model.NewComponentNotFoundError(componentID)
	}
	return nil
}

// checkInput は入力値とコンポーネントの所有者を検証する。
// 比重の合計はリポジトリが書き込みと同じトランザクションで確認する。
func (s *Service) checkInput(ctx context.Context, userID string, in EvaluationInput) error {
	var fields []string
	if strings.TrimSpace(in.ComponentID) == "" {
		fields = append(fields, "component_id is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		fields = append(fields, "title is required")
	}
	if in.Weight < 0 || in.Weight > model.MaxEvaluationWeight {
		fields = append(fields, fmt.Sprintf("weight must be between 0 and %d", model.MaxEvaluationWeight))
	}
	if len(fields) > 0 {
		return model.NewValidationError(fields)
	}
	if !in.Type.Valid() {
		return model.NewInvalidCategoryError(string(in.Type))
	}
	return s.checkComponent(ctx, userID, in.ComponentID)
}

// writeError は比重上限による拒否をAPIErrorに変換し、それ以外はラップして返す。
func writeError(msg string, err error) error {
	var limitErr *repository.WeightLimitError
	if errors.As(err, &limitErr) {
		return model.NewEvaluationWeightExceededError(limitErr.Total)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func utcDate(d *time.Time) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &t
}
