package handler

import (
	"context"

	"github.com/hitoshi/planneredu/internal/account"
)

// AccountServiceAdapter は account.Service を AccountServiceInterface に適合させるアダプタ。
type AccountServiceAdapter struct {
	svc *account.Service
}

// NewAccountServiceAdapter はAccountServiceAdapterを生成する。
func NewAccountServiceAdapter(svc *account.Service) *AccountServiceAdapter {
	return &AccountServiceAdapter{svc: svc}
}

// Export はユーザーの全データをhandlerレスポンス型で返す。
func (a *AccountServiceAdapter) Export(ctx context.Context, userID string) (*exportResponse, error) {
	exp, err := a.svc.Export(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toExportResponse(exp), nil
}

// Withdraw はユーザーの全データを削除する。
func (a *AccountServiceAdapter) Withdraw(ctx context.Context, userID string) error {
	return a.svc.Withdraw(ctx, userID)
}

// toExportResponse はaccount.Exportをレスポンス型に変換する。
// 空のコレクションはnullではなく空配列になる。
func toExportResponse(exp *account.Export) *exportResponse {
	return &exportResponse{
		Version:     exp.Version,
		ExportedAt:  exp.ExportedAt,
		Folders:     mapSlice(exp.Folders, toFolderResponse),
		Components:  mapSlice(exp.Components, toComponentResponse),
		Lessons:     mapSlice(exp.Lessons, toLessonResponse),
		Resources:   mapSlice(exp.Resources, toResourceResponse),
		Evaluations: mapSlice(exp.Evaluations, toEvaluationResponse),
		Holidays:    mapSlice(exp.Holidays, toHolidayResponse),
	}
}
