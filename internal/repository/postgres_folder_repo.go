package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/planneredu/internal/model"
)

// PostgresFolderRepo はPostgreSQLを使用したフォルダリポジトリ。
type PostgresFolderRepo struct {
	db *sql.DB
}

// NewPostgresFolderRepo はPostgresFolderRepoを生成する。
func NewPostgresFolderRepo(db *sql.DB) *PostgresFolderRepo {
	return &PostgresFolderRepo{db: db}
}

// FindByID は指定IDのフォルダを取得する。見つからない場合はnilを返す。
func (r *PostgresFolderRepo) FindByID(ctx context.Context, id string) (*model.Folder, error) {
	if !isUUID(id) {
		return nil, nil
	}
	f := &model.Folder{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at, updated_at FROM folders WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.UserID, &f.Name, &f.CreatedAt, &f.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フォルダの取得に失敗しました: %w", err)
	}
	return f, nil
}

// ListByUserID はユーザーのフォルダ一覧を名前順で返す。
func (r *PostgresFolderRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Folder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at, updated_at
		 FROM folders WHERE user_id = $1 ORDER BY name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("フォルダ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var folders []*model.Folder
	for rows.Next() {
		f := &model.Folder{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("フォルダ行の読み取りに失敗しました: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フォルダ一覧の走査に失敗しました: %w", err)
	}
	return folders, nil
}

// Create はフォルダを作成する。
func (r *PostgresFolderRepo) Create(ctx context.Context, f *model.Folder) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO folders (id, user_id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.UserID, f.Name, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("フォルダの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はフォルダ名を更新する。
func (r *PostgresFolderRepo) Update(ctx context.Context, f *model.Folder) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE folders SET name = $2, updated_at = $3 WHERE id = $1`,
		f.ID, f.Name, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("フォルダの更新に失敗しました: %w", err)
	}
	return expectAffected(result, "フォルダ", f.ID)
}

// Delete は指定IDのフォルダを削除する。
func (r *PostgresFolderRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("フォルダの削除に失敗しました: %w", err)
	}
	return expectAffected(result, "フォルダ", id)
}

// DeleteByUserID はユーザーの全フォルダを削除する。
func (r *PostgresFolderRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ユーザーの全フォルダの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FolderRepository = (*PostgresFolderRepo)(nil)
