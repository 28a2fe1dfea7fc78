package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/resource"
)

// ResourceServiceInterface はリソースハンドラーが必要とするサービスインターフェース。
type ResourceServiceInterface interface {
	List(ctx context.Context, userID string, filter model.ResourceFilter) ([]*model.Resource, error)
	Get(ctx context.Context, userID, resourceID string) (*model.Resource, error)
	Create(ctx context.Context, userID string, in resource.ResourceInput) (*model.Resource, error)
	Update(ctx context.Context, userID, resourceID string, in resource.ResourceInput) (*model.Resource, error)
	Delete(ctx context.Context, userID, resourceID string) error
	Preview(ctx context.Context, rawURL string) (*model.ResourcePreview, error)
}

// ResourceHandler は教材リソースのHTTPハンドラー。
type ResourceHandler struct {
	service ResourceServiceInterface
}

// NewResourceHandler はResourceHandlerを生成する。
func NewResourceHandler(service ResourceServiceInterface) *ResourceHandler {
	return &ResourceHandler{service: service}
}

// ListResources はリソース一覧を返す。
// GET /api/resources?type=&q=
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	resources, err := h.service.List(r.Context(), userID, model.ResourceFilter{
		Type:  model.ResourceType(r.URL.Query().Get("type")),
		Query: r.URL.Query().Get("q"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(resources, toResourceResponse))
}

// GetResource はリソースを返す。
// GET /api/resources/{id}
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	res, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceResponse(res))
}

// CreateResource はリソースを作成する。
// POST /api/resources
func (h *ResourceHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req resourceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	res, err := h.service.Create(r.Context(), userID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResourceResponse(res))
}

// UpdateResource はリソースを更新する。
// PUT /api/resources/{id}
func (h *ResourceHandler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req resourceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	res, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceResponse(res))
}

// DeleteResource はリソースを削除する。
// DELETE /api/resources/{id}
func (h *ResourceHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
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

// PreviewResource はURLのタイトルと説明文を取得する。
// POST /api/resources/preview
func (h *ResourceHandler) PreviewResource(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	var req previewRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	p, err := h.service.Preview(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{
		URL:         p.URL,
		Title:       p.Title,
		Description: p.Description,
		IsFeed:      p.IsFeed,
	})
}

func (req resourceRequest) toInput() resource.ResourceInput {
	return resource.ResourceInput{
		Title:       req.Title,
		Type:        model.ResourceType(req.Type),
		URL:         req.URL,
		Description: req.Description,
		Tags:        req.Tags,
	}
}
