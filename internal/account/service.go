// Package account はユーザーデータのエクスポートと退会処理のドメインロジックを提供する。
package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/repository"
)

// ExportVersion はエクスポート形式のバージョン。
const ExportVersion = 1

// Export はユーザーが所有する全データのスナップショット。
type Export struct {
	Version     int
	UserID      string
	ExportedAt  time.Time
	Folders     []*model.Folder
	Components  []*model.Component
	Lessons     []*model.Lesson
	Resources   []*model.Resource
	Evaluations []*model.Evaluation
	Holidays    []*model.Holiday
}

// Repositories はアカウント操作で扱うリポジトリの集合。
type Repositories struct {
	Folders     repository.FolderRepository
	Components  repository.ComponentRepository
	Lessons     repository.LessonRepository
	Resources   repository.ResourceRepository
	Evaluations repository.EvaluationRepository
	Holidays    repository.HolidayRepository
}

// Service はアカウントのサービス層。
type Service struct {
	repos Repositories
	now   func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repos Repositories) *Service {
	return &Service{repos: repos, now: time.Now}
}

// Export はユーザーの全データを取得する。各コレクションは並行して読み込む。
func (s *Service) Export(ctx context.Context, userID string) (*Export, error) {
	out := &Export{
		Version:    ExportVersion,
		UserID:     userID,
		ExportedAt: s.now().UTC(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Folders, err = s.repos.Folders.ListByUserID(ctx, userID)
		return wrapLoad("フォルダ", err)
	})
	g.Go(func() (err error) {
		out.Components, err = s.repos.Components.List(ctx, userID, model.ComponentFilter{})
		return wrapLoad("コンポーネント", err)
	})
	g.Go(func() (err error) {
		out.Lessons, err = s.repos.Lessons.List(ctx, userID, model.LessonFilter{})
		return wrapLoad("授業", err)
	})
	g.Go(func() (err error) {
		out.Resources, err = s.repos.Resources.List(ctx, userID, model.ResourceFilter{})
		return wrapLoad("リソース", err)
	})
	g.Go(func() (err error) {
		out.Evaluations, err = s.repos.Evaluations.ListByUserID(ctx, userID, "")
		return wrapLoad("評価", err)
	})
	g.Go(func() (err error) {
		out.Holidays, err = s.repos.Holidays.ListByUserID(ctx, userID)
		return wrapLoad("休日", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("account exported",
		slog.String("user_id", userID),
		slog.Int("components", len(out.Components)),
		slog.Int("lessons", len(out.Lessons)),
	)
	return out, nil
}

func wrapLoad(name string, err error) error {
	if err != nil {
		return fmt.Errorf("%sの取得に失敗しました: %w", name, err)
	}
	return nil
}

// Withdraw はユーザーが所有する全データを削除する。
// 削除順序: evaluations → lessons → components → folders → resources → holidays
// 途中で失敗した場合はそこで中断し、再実行で残りを削除できる。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	steps := []struct {
		name    string
		deleter interface {
			DeleteByUserID(ctx context.Context, userID string) error
		}
	}{
		{"評価", s.repos.Evaluations},
		{"授業", s.repos.Lessons},
		{"コンポーネント", s.repos.Components},
		{"フォルダ", s.repos.Folders},
		{"リソース", s.repos.Resources},
		{"休日", s.repos.Holidays},
	}
	for _, step := range steps {
		if err := step.deleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("%sの削除に失敗しました: %w", step.name, err)
		}
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)
	return nil
}
