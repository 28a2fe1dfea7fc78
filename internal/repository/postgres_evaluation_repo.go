package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/planneredu/internal/model"
)

// PostgresEvaluationRepo はPostgreSQLを使用した評価リポジトリ。
type PostgresEvaluationRepo struct {
	db *sql.DB
}

// NewPostgresEvaluationRepo はPostgresEvaluationRepoを生成する。
func NewPostgresEvaluationRepo(db *sql.DB) *PostgresEvaluationRepo {
	return &PostgresEvaluationRepo{db: db}
}

const evaluationColumns = `id, user_id, component_id, title, type, date, weight, created_at, updated_at`

func scanEvaluation(row interface{ Scan(...any) error }) (*model.Evaluation, error) {
	e := &model.Evaluation{}
	var date sql.NullTime
	if err := row.Scan(&e.ID, &e.UserID, &e.ComponentID, &e.Title, &e.Type, &date,
		&e.Weight, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if date.Valid {
		d := date.Time
		e.Date = &d
	}
	return e, nil
}

// dateArg は任意の日付をDATEカラム用の引数に変換する。
func dateArg(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Format(model.DateLayout)
}

// FindByID は指定IDの評価を取得する。見つからない場合はnilを返す。
func (r *PostgresEvaluationRepo) FindByID(ctx context.Context, id string) (*model.Evaluation, error) {
	if !isUUID(id) {
		return nil, nil
	}
	e, err := scanEvaluation(r.db.QueryRowContext(ctx,
		`SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("評価の取得に失敗しました: %w", err)
	}
	return e, nil
}

// ListByUserID はユーザーの評価一覧を日付順（未定は末尾）で返す。
func (r *PostgresEvaluationRepo) ListByUserID(ctx context.Context, userID, componentID string) ([]*model.Evaluation, error) {
	if componentID != "" && !isUUID(componentID) {
		return nil, nil
	}

	var where whereBuilder
	where.add("user_id = ?", userID)
	if componentID != "" {
		where.add("component_id = ?", componentID)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+evaluationColumns+` FROM evaluations`+where.String()+` ORDER BY date ASC NULLS LAST, title ASC`,
		where.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("評価一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var evaluations []*model.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("評価行の読み取りに失敗しました: %w", err)
		}
		evaluations = append(evaluations, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("評価一覧の走査に失敗しました: %w", err)
	}
	return evaluations, nil
}

// WeightLimitError はコンポーネントの評価比重の合計が上限を超える書き込みを拒否したことを表す。
type WeightLimitError struct {
	Total int // 書き込んだ場合の合計
}

// Error はerrorインターフェースを実装する。
func (e *WeightLimitError) Error() string {
	return fmt.Sprintf("評価比重の合計が上限を超えます: %d", e.Total)
}

// Create は評価を作成する。
// コンポーネント行をロックしたトランザクション内で比重を集計し、合計がmaxWeightを超える場合は
// *WeightLimitErrorを返す。
func (r *PostgresEvaluationRepo) Create(ctx context.Context, e *model.Evaluation, maxWeight int) error {
	return r.withWeightLock(ctx, e, maxWeight, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO evaluations (id, user_id, component_id, title, type, date, weight, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9)`,
			e.ID, e.UserID, e.ComponentID, e.Title, string(e.Type), dateArg(e.Date), e.Weight, e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("評価の作成に失敗しました: %w", err)
		}
		return nil
	})
}

// Update は評価を更新する。比重の合計は更新対象自身を除いて集計する。
func (r *PostgresEvaluationRepo) Update(ctx context.Context, e *model.Evaluation, maxWeight int) error {
	return r.withWeightLock(ctx, e, maxWeight, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE evaluations
			 SET component_id = $2, title = $3, type = $4, date = $5::date, weight = $6, updated_at = $7
			 WHERE id = $1`,
			e.ID, e.ComponentID, e.Title, string(e.Type), dateArg(e.Date), e.Weight, e.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("評価の更新に失敗しました: %w", err)
		}
		return expectAffected(result, "評価", e.ID)
	})
}

// withWeightLock はコンポーネント行をFOR UPDATEでロックし、比重の合計を確認してからwriteを実行する。
// 同じコンポーネントへの並行した書き込みはロックの解放まで待たされる。
func (r *PostgresEvaluationRepo) withWeightLock(ctx context.Context, e *model.Evaluation, maxWeight int, write func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM components WHERE id = $1 FOR UPDATE`, e.ComponentID,
	).Scan(&locked)
	if err == sql.ErrNoRows {
		return fmt.Errorf("コンポーネントが存在しません: %s", e.ComponentID)
	}
	if err != nil {
		return fmt.Errorf("コンポーネントのロックに失敗しました: %w", err)
	}

	var current int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(weight), 0) FROM evaluations WHERE component_id = $1 AND id <> $2`,
		e.ComponentID, e.ID,
	).Scan(&current)
	if err != nil {
		return fmt.Errorf("評価比重の集計に失敗しました: %w", err)
	}
	if total := current + e.Weight; total > maxWeight {
		return &WeightLimitError{Total: total}
	}

	if err := write(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete は指定IDの評価を削除する。
func (r *PostgresEvaluationRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM evaluations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("評価の削除に失敗しました: %w", err)
	}
	return expectAffected(result, "評価", id)
}

// DeleteByUserID はユーザーの全評価を削除する。
func (r *PostgresEvaluationRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM evaluations WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ユーザーの全評価の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ EvaluationRepository = (*PostgresEvaluationRepo)(nil)
