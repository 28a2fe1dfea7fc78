package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/planneredu/internal/model"
)

// PostgresLessonRepo はPostgreSQLを使用した授業リポジトリ。
type PostgresLessonRepo struct {
	db *sql.DB
}

// NewPostgresLessonRepo はPostgresLessonRepoを生成する。
func NewPostgresLessonRepo(db *sql.DB) *PostgresLessonRepo {
	return &PostgresLessonRepo{db: db}
}

const lessonColumns = `id, user_id, component_id, title, date, duration_minutes, notes, resource_ids, created_at, updated_at`

func scanLesson(row interface{ Scan(...any) error }) (*model.Lesson, error) {
	l := &model.Lesson{}
	var resourceIDs pq.StringArray
	if err := row.Scan(&l.ID, &l.UserID, &l.ComponentID, &l.Title, &l.Date, &l.DurationMinutes,
		&l.Notes, &resourceIDs, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.ResourceIDs = []string(resourceIDs)
	return l, nil
}

// FindByID は指定IDの授業を取得する。見つからない場合はnilを返す。
func (r *PostgresLessonRepo) FindByID(ctx context.Context, id string) (*model.Lesson, error) {
	if !isUUID(id) {
		return nil, nil
	}
	l, err := scanLesson(r.db.QueryRowContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("授業の取得に失敗しました: %w", err)
	}
	return l, nil
}

// List はユーザーの授業一覧を日付の降順で返す。
func (r *PostgresLessonRepo) List(ctx context.Context, userID string, filter model.LessonFilter) ([]*model.Lesson, error) {
	if filter.ComponentID != "" && !isUUID(filter.ComponentID) {
		return nil, nil
	}

	var where whereBuilder
	where.add("user_id = ?", userID)
	if filter.ComponentID != "" {
		where.add("component_id = ?", filter.ComponentID)
	}
	if !filter.From.IsZero() {
		where.add("date >= ?::date", filter.From.Format(model.DateLayout))
	}
	if !filter.To.IsZero() {
		where.add("date <= ?::date", filter.To.Format(model.DateLayout))
	}
	where.search(filter.Query, "title", "notes")

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons`+where.String()+` ORDER BY date DESC, created_at DESC`,
		where.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("授業一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var lessons []*model.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("授業行の読み取りに失敗しました: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("授業一覧の走査に失敗しました: %w", err)
	}
	return lessons, nil
}

// Create は授業を作成する。
func (r *PostgresLessonRepo) Create(ctx context.Context, l *model.Lesson) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lessons (id, user_id, component_id, title, date, duration_minutes, notes, resource_ids, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10)`,
		l.ID, l.UserID, l.ComponentID, l.Title, l.Date.Format(model.DateLayout), l.DurationMinutes,
		l.Notes, pq.Array(nonNilStrings(l.ResourceIDs)), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("授業の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は授業を更新する。
func (r *PostgresLessonRepo) Update(ctx context.Context, l *model.Lesson) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE lessons
		 SET component_id = $2, title = $3, date = $4::date, duration_minutes = $5, notes = $6, resource_ids = $7, updated_at = $8
		 WHERE id = $1`,
		l.ID, l.ComponentID, l.Title, l.Date.Format(model.DateLayout), l.DurationMinutes,
		l.Notes, pq.Array(nonNilStrings(l.ResourceIDs)), l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("授業の更新に失敗しました: %w", err)
	}
	return expectAffected(result, "授業", l.ID)
}

// Delete は指定IDの授業を削除する。
func (r *PostgresLessonRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("授業の削除に失敗しました: %w", err)
	}
	return expectAffected(result, "授業", id)
}

// DeleteByUserID はユーザーの全授業を削除する。
func (r *PostgresLessonRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ユーザーの全授業の削除に失敗しました: %w", err)
	}
	return nil
}

// nonNilStrings はnilスライスを空スライスに置き換える（NOT NULLの配列カラム用）。
func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// compile-time interface check
var _ LessonRepository = (*PostgresLessonRepo)(nil)
