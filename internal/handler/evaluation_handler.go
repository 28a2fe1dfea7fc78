package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/planneredu/internal/evaluation"
	"github.com/hitoshi/planneredu/internal/model"
)

// EvaluationServiceInterface は評価ハンドラーが必要とするサービスインターフェース。
type EvaluationServiceInterface interface {
	List(ctx context.Context, userID, componentID string) ([]*model.Evaluation, error)
	Get(ctx context.Context, userID, evaluationID string) (*model.Evaluation, error)
	Create(ctx context.Context, userID string, in evaluation.EvaluationInput) (*model.Evaluation, error)
	Update(ctx context.Context, userID, evaluationID string, in evaluation.EvaluationInput) (*model.Evaluation, error)
	Delete(ctx context.Context, userID, evaluationID string) error
	Summary(ctx context.Context, userID, componentID string) (*model.EvaluationSummary, error)
}

// EvaluationHandler は評価のHTTPハンドラー。
type EvaluationHandler struct {
	service EvaluationServiceInterface
}

// NewEvaluationHandler はEvaluationHandlerを生成する。
func NewEvaluationHandler(service EvaluationServiceInterface) *EvaluationHandler {
	return &EvaluationHandler{service: service}
}

// ListEvaluations は評価一覧を返す。
// GET /api/evaluations?component_id=
func (h *EvaluationHandler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	evaluations, err := h.service.List(r.Context(), userID, r.URL.Query().Get("component_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(evaluations, toEvaluationResponse))
}

// GetEvaluation は評価を返す。
// GET /api/evaluations/{id}
func (h *EvaluationHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	e, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluationResponse(e))
}

// CreateEvaluation は評価を作成する。
// POST /api/evaluations
func (h *EvaluationHandler) CreateEvaluation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	in, ok := decodeEvaluationInput(w, r)
	if !ok {
		return
	}

	e, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEvaluationResponse(e))
}

// UpdateEvaluation は評価を更新する。
// PUT /api/evaluations/{id}
func (h *EvaluationHandler) UpdateEvaluation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	in, ok := decodeEvaluationInput(w, r)
	if !ok {
		return
	}

	e, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluationResponse(e))
}

// DeleteEvaluation は評価を削除する。
// DELETE /api/evaluations/{id}
func (h *EvaluationHandler) DeleteEvaluation(w http.ResponseWriter, r *http.Request) {
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

// Summary はコンポーネントの評価比重の集計を返す。
// GET /api/components/{id}/evaluations/summary
func (h *EvaluationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	s, err := h.service.Summary(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	counts := make(map[string]int, len(s.CountByType))
	for t, n := range s.CountByType {
		counts[string(t)] = n
	}
	writeJSON(w, http.StatusOK, evaluationSummaryResponse{
		ComponentID:     s.ComponentID,
		TotalWeight:     s.TotalWeight,
		RemainingWeight: s.RemainingWeight,
		CountByType:     counts,
	})
}

func decodeEvaluationInput(w http.ResponseWriter, r *http.Request) (evaluation.EvaluationInput, bool) {
	var req evaluationRequest
	if !decodeRequest(w, r, &req) {
		return evaluation.EvaluationInput{}, false
	}

	in := evaluation.EvaluationInput{
		ComponentID: req.ComponentID,
		Title:       req.Title,
		Type:        model.EvaluationType(req.Type),
		Weight:      req.Weight,
	}
	if req.Date != "" {
		d, err := model.ParseDate(req.Date)
		if err != nil {
			handleServiceError(w, err)
			return evaluation.EvaluationInput{}, false
		}
		in.Date = &d
	}
	return in, true
}
