package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// Export はユーザーの全データをエクスポート形式で返す。
	Export(ctx context.Context, userID string) (*exportResponse, error)
	// Withdraw はユーザーの退会処理を実行する。
	// evaluations、lessons、components、folders、resources、holidaysを一括削除する。
	Withdraw(ctx context.Context, userID string) error
}

// exportResponse はアカウントエクスポートのJSON文書。
type exportResponse struct {
	Version     int                  `json:"version"`
	ExportedAt  time.Time            `json:"exported_at"`
	Folders     []folderResponse     `json:"folders"`
	Components  []componentResponse  `json:"components"`
	Lessons     []lessonResponse     `json:"lessons"`
	Resources   []resourceResponse   `json:"resources"`
	Evaluations []evaluationResponse `json:"evaluations"`
	Holidays    []holidayResponse    `json:"holidays"`
}

// AccountHandler はアカウント管理のHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{
		service: service,
	}
}

// Export はユーザーの全データをJSONファイルとして返す。
// GET /api/account/export
func (h *AccountHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	doc, err := h.service.Export(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("planneredu-%s.json", doc.ExportedAt.Format("20060102"))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	writeJSON(w, http.StatusOK, doc)
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/account
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
