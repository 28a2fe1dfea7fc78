package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/planneredu/internal/model"
)

// PostgresComponentRepo はPostgreSQLを使用したコンポーネントリポジトリ。
type PostgresComponentRepo struct {
	db *sql.DB
}

// NewPostgresComponentRepo はPostgresComponentRepoを生成する。
func NewPostgresComponentRepo(db *sql.DB) *PostgresComponentRepo {
	return &PostgresComponentRepo{db: db}
}

const componentColumns = `id, user_id, folder_id, name, description, category, workload_hours, dates::text[], created_at, updated_at`

// scanComponent は1行をmodel.Componentに読み込む。
func scanComponent(row interface{ Scan(...any) error }) (*model.Component, error) {
	c := &model.Component{}
	var folderID sql.NullString
	var dates pq.StringArray
	if err := row.Scan(&c.ID, &c.UserID, &folderID, &c.Name, &c.Description, &c.Category,
		&c.WorkloadHours, &dates, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if folderID.Valid {
		c.FolderID = &folderID.String
	}
	parsed, err := parseDateArray(dates)
	if err != nil {
		return nil, err
	}
	c.Dates = parsed
	return c, nil
}

// parseDateArray はDATE[]をtext[]として読み込んだ値をtime.Timeに変換する。
func parseDateArray(values []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(values))
	for _, v := range values {
		d, err := time.Parse(model.DateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("日付配列の解析に失敗しました: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// FindByID は指定IDのコンポーネントを取得する。見つからない場合はnilを返す。
func (r *PostgresComponentRepo) FindByID(ctx context.Context, id string) (*model.Component, error) {
	if !isUUID(id) {
		return nil, nil
	}
	c, err := scanComponent(r.db.QueryRowContext(ctx,
		`SELECT `+componentColumns+` FROM components WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("コンポーネントの取得に失敗しました: %w", err)
	}
	return c, nil
}

// List はユーザーのコンポーネント一覧を名前順で返す。
func (r *PostgresComponentRepo) List(ctx context.Context, userID string, filter model.ComponentFilter) ([]*model.Component, error) {
	if filter.FolderID != "" && !isUUID(filter.FolderID) {
		return nil, nil
	}

	var where whereBuilder
	where.add("user_id = ?", userID)
	if filter.FolderID != "" {
		where.add("folder_id = ?", filter.FolderID)
	}
	where.search(filter.Query, "name", "description")

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+componentColumns+` FROM components`+where.String()+` ORDER BY name ASC, created_at ASC`,
		where.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("コンポーネント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var components []*model.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("コンポーネント行の読み取りに失敗しました: %w", err)
		}
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コンポーネント一覧の走査に失敗しました: %w", err)
	}
	return components, nil
}

// Create はコンポーネントを作成する。
func (r *PostgresComponentRepo) Create(ctx context.Context, c *model.Component) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO components (id, user_id, folder_id, name, description, category, workload_hours, dates, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date[], $9, $10)`,
		c.ID, c.UserID, c.FolderID, c.Name, c.Description, c.Category, c.WorkloadHours,
		pq.Array(model.FormatDates(c.Dates)), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("コンポーネントの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はコンポーネントを更新する。予定日はUpdateDatesで更新する。
func (r *PostgresComponentRepo) Update(ctx context.Context, c *model.Component) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE components
		 SET folder_id = $2, name = $3, description = $4, category = $5, workload_hours = $6, updated_at = $7
		 WHERE id = $1`,
		c.ID, c.FolderID, c.Name, c.Description, c.Category, c.WorkloadHours, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("コンポーネントの更新に失敗しました: %w", err)
	}
	return expectAffected(result, "コンポーネント", c.ID)
}

// UpdateDates はコンポーネントの授業予定日を置き換える。
func (r *PostgresComponentRepo) UpdateDates(ctx context.Context, id string, dates []time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE components SET dates = $2::date[], updated_at = NOW() WHERE id = $1`,
		id, pq.Array(model.FormatDates(dates)),
	)
	if err != nil {
		return fmt.Errorf("授業予定日の更新に失敗しました: %w", err)
	}
	return expectAffected(result, "コンポーネント", id)
}

// Delete は指定IDのコンポーネントを削除する。
func (r *PostgresComponentRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM components WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("コンポーネントの削除に失敗しました: %w", err)
	}
	return expectAffected(result, "コンポーネント", id)
}

// DeleteByUserID はユーザーの全コンポーネントを削除する。
func (r *PostgresComponentRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM components WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ユーザーの全コンポーネントの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ComponentRepository = (*PostgresComponentRepo)(nil)
