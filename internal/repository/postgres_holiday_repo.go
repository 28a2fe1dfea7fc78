package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/planneredu/internal/model"
)

// PostgresHolidayRepo はPostgreSQLを使用した休日リポジトリ。
type PostgresHolidayRepo struct {
	db *sql.DB
}

// NewPostgresHolidayRepo はPostgresHolidayRepoを生成する。
func NewPostgresHolidayRepo(db *sql.DB) *PostgresHolidayRepo {
	return &PostgresHolidayRepo{db: db}
}

// FindByID は指定IDの休日を取得する。見つからない場合はnilを返す。
func (r *PostgresHolidayRepo) FindByID(ctx context.Context, id string) (*model.Holiday, error) {
	if !isUUID(id) {
		return nil, nil
	}
	h := &model.Holiday{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, date, name, created_at FROM holidays WHERE id = $1`,
		id,
	).Scan(&h.ID, &h.UserID, &h.Date, &h.Name, &h.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("休日の取得に失敗しました: %w", err)
	}
	return h, nil
}

// ListByUserID はユーザーの休日一覧を日付順で返す。
func (r *PostgresHolidayRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Holiday, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, date, name, created_at FROM holidays WHERE user_id = $1 ORDER BY date ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("休日一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var holidays []*model.Holiday
	for rows.Next() {
		h := &model.Holiday{}
		if err := rows.Scan(&h.ID, &h.UserID, &h.Date, &h.Name, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("休日行の読み取りに失敗しました: %w", err)
		}
		holidays = append(holidays, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("休日一覧の走査に失敗しました: %w", err)
	}
	return holidays, nil
}

// Create は休日を作成する。同じ日付が登録済みの場合は名前を更新し、既存のIDをhに反映する。
func (r *PostgresHolidayRepo) Create(ctx context.Context, h *model.Holiday) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO holidays (id, user_id, date, name, created_at)
		 VALUES ($1, $2, $3::date, $4, $5)
		 ON CONFLICT (user_id, date) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, created_at`,
		h.ID, h.UserID, h.Date.Format(model.DateLayout), h.Name, h.CreatedAt,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("休日の作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの休日を削除する。
func (r *PostgresHolidayRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("休日の削除に失敗しました: %w", err)
	}
	return expectAffected(result, "休日", id)
}

// DeleteByUserID はユーザーの全休日を削除する。
func (r *PostgresHolidayRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ユーザーの全休日の削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteBefore はbeforeより前の日付の休日を削除し、削除件数を返す。
func (r *PostgresHolidayRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM holidays WHERE date < $1::date`,
		before.Format(model.DateLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("古い休日の削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ HolidayRepository = (*PostgresHolidayRepo)(nil)
