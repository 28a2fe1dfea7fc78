package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/planneredu/internal/component"
	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/planning"
)

// ComponentServiceInterface はフォルダ・コンポーネントハンドラーが必要とするサービスインターフェース。
type ComponentServiceInterface interface {
	ListFolders(ctx context.Context, userID string) ([]*model.Folder, error)
	CreateFolder(ctx context.Context, userID, name string) (*model.Folder, error)
	RenameFolder(ctx context.Context, userID, folderID, name string) (*model.Folder, error)
	DeleteFolder(ctx context.Context, userID, folderID string) error

	ListWithProgress(ctx context.Context, userID string, filter model.ComponentFilter) ([]component.ComponentWithProgress, error)
	Get(ctx context.Context, userID, componentID string) (*model.Component, error)
	GetProgress(ctx context.Context, userID, componentID string) (*planning.Progress, error)
	Create(ctx context.Context, userID string, in component.ComponentInput) (*model.Component, error)
	Update(ctx context.Context, userID, componentID string, in component.ComponentInput) (*model.Component, error)
	Delete(ctx context.Context, userID, componentID string) error
}

// ComponentHandler はフォルダとコンポーネントのHTTPハンドラー。
type ComponentHandler struct {
	service ComponentServiceInterface
}

// NewComponentHandler はComponentHandlerを生成する。
func NewComponentHandler(service ComponentServiceInterface) *ComponentHandler {
	return &ComponentHandler{service: service}
}

// --- フォルダ ---

// ListFolders はフォルダ一覧を返す。
// GET /api/folders
func (h *ComponentHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	folders, err := h.service.ListFolders(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(folders, toFolderResponse))
}

// CreateFolder はフォルダを作成する。
// POST /api/folders
func (h *ComponentHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req folderRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	folder, err := h.service.CreateFolder(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFolderResponse(folder))
}

// RenameFolder はフォルダ名を変更する。
// PUT /api/folders/{id}
func (h *ComponentHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req folderRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	folder, err := h.service.RenameFolder(r.Context(), userID, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFolderResponse(folder))
}

// DeleteFolder はフォルダを削除する。所属コンポーネントはフォルダ未設定になる。
// DELETE /api/folders/{id}
func (h *ComponentHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteFolder(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- コンポーネント ---

// ListComponents は進捗付きのコンポーネント一覧を返す。
// GET /api/components?folder_id=&q=
func (h *ComponentHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter := model.ComponentFilter{
		FolderID: r.URL.Query().Get("folder_id"),
		Query:    r.URL.Query().Get("q"),
	}
	items, err := h.service.ListWithProgress(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]componentResponse, len(items))
	for i, item := range items {
		resp[i] = toComponentResponse(item.Component)
		resp[i].Progress = toProgressResponse(item.Progress)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetComponent はコンポーネントを返す。
// GET /api/components/{id}
func (h *ComponentHandler) GetComponent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toComponentResponse(c))
}

// GetProgress はコンポーネントの進捗を返す。
// GET /api/components/{id}/progress
func (h *ComponentHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProgress(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(*p))
}

// CreateComponent はコンポーネントを作成する。
// POST /api/components
func (h *ComponentHandler) CreateComponent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req componentRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), userID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toComponentResponse(c))
}

// UpdateComponent はコンポーネントを更新する。授業予定日は変更しない。
// PUT /api/components/{id}
func (h *ComponentHandler) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req componentRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	c, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toComponentResponse(c))
}

// DeleteComponent はコンポーネントを削除する。
// DELETE /api/components/{id}
func (h *ComponentHandler) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req componentRequest) toInput() component.ComponentInput {
	return component.ComponentInput{
		FolderID:      req.FolderID,
		Name:          req.Name,
		Description:   req.Description,
		Category:      model.ComponentCategory(req.Category),
		WorkloadHours: req.WorkloadHours,
	}
}
