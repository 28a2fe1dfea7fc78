package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/planneredu/internal/model"
)

// PostgresResourceRepo はPostgreSQLを使用した教材リソースリポジトリ。
type PostgresResourceRepo struct {
	db *sql.DB
}

// NewPostgresResourceRepo はPostgresResourceRepoを生成する。
func NewPostgresResourceRepo(db *sql.DB) *PostgresResourceRepo {
	return &PostgresResourceRepo{db: db}
}

const resourceColumns = `id, user_id, title, type, url, description, tags, created_at, updated_at`

func scanResource(row interface{ Scan(...any) error }) (*model.Resource, error) {
	res := &model.Resource{}
	var tags pq.StringArray
	if err := row.Scan(&res.ID, &res.UserID, &res.Title, &res.Type, &res.URL, &res.Description,
		&tags, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, err
	}
	res.Tags = []string(tags)
	return res, nil
}

// FindByID は指定IDのリソースを取得する。見つからない場合はnilを返す。
func (r *PostgresResourceRepo) FindByID(ctx context.Context, id string) (*model.Resource, error) {
	if !isUUID(id) {
		return nil, nil
	}
	res, err := scanResource(r.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リソースの取得に失敗しました: %w", err)
	}
	return res, nil
}

// FindOwnedIDs はidsのうちユーザーが所有するリソースIDを返す。
func (r *PostgresResourceRepo) FindOwnedIDs(ctx context.Context, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id::text FROM resources WHERE user_id = $1 AND id::text = ANY($2)`,
		userID, pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("リソースIDの確認に失敗しました: %w", err)
	}
	defer rows.Close()

	owned := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("リソースIDの読み取りに失敗しました: %w", err)
		}
		owned = append(owned, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リソースIDの走査に失敗しました: %w", err)
	}
	return owned, nil
}

// List はユーザーのリソース一覧をタイトル順で返す。
func (r *PostgresResourceRepo) List(ctx context.Context, userID string, filter model.ResourceFilter) ([]*model.Resource, error) {
	var where whereBuilder
	where.add("user_id = ?", userID)
	if filter.Type != "" {
		where.add("type = ?", string(filter.Type))
	}
	where.search(filter.Query, "title", "description", "array_to_string(tags, ' ')")

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources`+where.String()+` ORDER BY title ASC`,
		where.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("リソース一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var resources []*model.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("リソース行の読み取りに失敗しました: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リソース一覧の走査に失敗しました: %w", err)
	}
	return resources, nil
}

// Create はリソースを作成する。
func (r *PostgresResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO resources (id, user_id, title, type, url, description, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		res.ID, res.UserID, res.Title, string(res.Type), res.URL, res.Description,
		pq.Array(nonNilStrings(res.Tags)), res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("リソースの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はリソースを更新する。
func (r *PostgresResourceRepo) Update(ctx context.Context, res *model.Resource) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE resources
		 SET title = $2, type = $3, url = $4, description = $5, tags = $6, updated_at = $7
		 WHERE id = $1`,
		res.ID, res.Title, string(res.Type), res.URL, res.Description,
		pq.Array(nonNilStrings(res.Tags)), res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("リソースの更新に失敗しました: %w", err)
	}
	return expectAffected(result, "リソース", res.ID)
}

// Delete は指定IDのリソースを削除する。
func (r *PostgresResourceRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("リソースの削除に失敗しました: %w", err)
	}
	return expectAffected(result, "リソース", id)
}

// DeleteByUserID はユーザーの全リソースを削除する。
func (r *PostgresResourceRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ユーザーの全リソースの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ResourceRepository = (*PostgresResourceRepo)(nil)
