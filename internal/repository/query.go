package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// likeEscaper はLIKEパターンのワイルドカードとエスケープ文字を無効化する。
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// isUUID はidがUUIDカラムと比較できる形式かを返す。
// 形式外のIDはPostgresで構文エラーになるため、呼び出し側で未検出として扱う。
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// whereBuilder は動的なWHERE句とプレースホルダ引数を組み立てる。
type whereBuilder struct {
	clauses []string
	args    []any
}

// add は条件を追加する。条件中の "?" は次のプレースホルダ番号に置き換えられる。
func (b *whereBuilder) add(clause string, args ...any) {
	for _, a := range args {
		b.args = append(b.args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(b.args)), 1)
	}
	b.clauses = append(b.clauses, clause)
}

// search はcolumnsのいずれかにqが部分一致する条件を追加する（大文字小文字を区別しない）。
// q中の % と _ は文字どおりに一致する。
func (b *whereBuilder) search(q string, columns ...string) {
	q = strings.TrimSpace(q)
	if q == "" {
		return
	}
	b.args = append(b.args, likeEscaper.Replace(q))
	placeholder := fmt.Sprintf("$%d", len(b.args))
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf(`%s ILIKE '%%' || %s || '%%' ESCAPE '\'`, c, placeholder)
	}
	b.clauses = append(b.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (b *whereBuilder) String() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// expectAffected はRowsAffectedが0の場合にエラーを返す。
func expectAffected(result sql.Result, what, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%sが見つかりません: %s", what, id)
	}
	return nil
}
