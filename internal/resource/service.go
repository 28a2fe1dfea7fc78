// Package resource は教材リソースのドメインロジックを提供する。
package resource

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/repository"
	"github.com/hitoshi/planneredu/internal/security"
	"github.com/hitoshi/planneredu/internal/snapshot"
)

// ResourceInput はリソースの作成・更新の入力。
type ResourceInput struct {
	Title       string
	Type        model.ResourceType
	URL         string
	Description string
	Tags        []string
}

// Service は教材リソースのサービス層。
type Service struct {
	repo      repository.ResourceRepository
	guard     SSRFValidator
	sanitizer security.HTMLSanitizer
	previewer *Previewer
	publisher snapshot.Publisher
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.ResourceRepository,
	guard SSRFValidator,
	sanitizer security.HTMLSanitizer,
	previewer *Previewer,
	publisher snapshot.Publisher,
) *Service {
	return &Service{
		repo:      repo,
		guard:     guard,
		sanitizer: sanitizer,
		previewer: previewer,
		publisher: publisher,
		now:       time.Now,
	}
}

// List はユーザーのリソース一覧を返す。
func (s *Service) List(ctx context.Context, userID string, filter model.ResourceFilter) ([]*model.Resource, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, model.NewInvalidCategoryError(string(filter.Type))
	}
	resources, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("リソース一覧の取得に失敗しました: %w", err)
	}
	return resources, nil
}

// Get は指定IDのリソースを返す。
func (s *Service) Get(ctx context.Context, userID, resourceID string) (*model.Resource, error) {
	return s.ownedResource(ctx, userID, resourceID)
}

// Create はリソースを作成する。URLが指定された場合はSSRF検証を行う。
func (s *Service) Create(ctx context.Context, userID string, in ResourceInput) (*model.Resource, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	r := &model.Resource{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Type:        in.Type,
		URL:         strings.TrimSpace(in.URL),
		Description: s.sanitizer.Sanitize(in.Description),
		Tags:        normalizeTags(in.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("リソースの作成に失敗しました: %w", err)
	}

	slog.Info("resource created",
		slog.String("user_id", userID),
		slog.String("resource_id", r.ID),
		slog.String("type", string(r.Type)),
	)
	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionResources, snapshot.ActionCreated, r.ID)
	return r, nil
}

// Update はリソースを更新する。
func (s *Service) Update(ctx context.Context, userID, resourceID string, in ResourceInput) (*model.Resource, error) {
	r, err := s.ownedResource(ctx, userID, resourceID)
	if err != nil {
		return nil, err
	}
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	r.Title = strings.TrimSpace(in.Title)
	r.Type = in.Type
	r.URL = strings.TrimSpace(in.URL)
	r.Description = s.sanitizer.Sanitize(in.Description)
	r.Tags = normalizeTags(in.Tags)
	r.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("リソースの更新に失敗しました: %w", err)
	}

	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionResources, snapshot.ActionUpdated, r.ID)
	return r, nil
}

// Delete はリソースを削除する。
// 授業のresource_idsに残った参照は表示時に解決できないものとして扱われる。
func (s *Service) Delete(ctx context.Context, userID, resourceID string) error {
	if _, err := s.ownedResource(ctx, userID, resourceID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, resourceID); err != nil {
		return fmt.Errorf("リソースの削除に失敗しました: %w", err)
	}

	snapshot.Notify(ctx, s.publisher, userID, snapshot.CollectionResources, snapshot.ActionDeleted, resourceID)
	return nil
}

// Preview はURLのタイトルと説明文を取得する。
func (s *Service) Preview(ctx context.Context, rawURL string) (*model.ResourcePreview, error) {
	return s.previewer.Preview(ctx, rawURL)
}

func (s *Service) ownedResource(ctx context.Context, userID, resourceID string) (*model.Resource, error) {
	r, err := s.repo.FindByID(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("リソースの取得に失敗しました: %w", err)
	}
	if r == nil || r.UserID != userID {
		return nil, model.NewResourceNotFoundError(resourceID)
	}
	return r, nil
}

func (s *Service) checkInput(in ResourceInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return model.NewValidationError([]string{"title is required"})
	}
	if !in.Type.Valid() {
		return model.NewInvalidCategoryError(string(in.Type))
	}

	rawURL := strings.TrimSpace(in.URL)
	if rawURL == "" {
		return nil
	}
	if err := checkURLShape(rawURL); err != nil {
		return err
	}
	if err := s.guard.ValidateURL(rawURL); err != nil {
		return model.NewSSRFBlockedError()
	}
	return nil
}

// checkURLShape はURLがhttp(s)の絶対URLであることを検証する。
func checkURLShape(rawURL string) error {
	if rawURL == "" {
		return model.NewInvalidURLError("URL is empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return model.NewInvalidURLError(err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return model.NewInvalidURLError(fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return model.NewInvalidURLError("host is missing")
	}
	return nil
}

// normalizeTags は前後の空白を除去し、空文字と重複（大文字小文字を区別しない）を取り除く。
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
