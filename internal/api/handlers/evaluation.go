package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wonny/lens/backend/internal/contracts"
	"github.com/wonny/lens/backend/internal/evaluation"
	"github.com/wonny/lens/backend/pkg/logger"
)

// maxBodyBytes bounds an evaluation request body
const maxBodyBytes = 1 << 20

// EvaluationHandler handles portfolio evaluation endpoints
// ⭐ SSOT: 평가 API 핸들러는 이 구조체에서만
type EvaluationHandler struct {
	evaluator *evaluation.Evaluator
	logger    *logger.Logger
}

// NewEvaluationHandler creates a new evaluation handler
func NewEvaluationHandler(evaluator *evaluation.Evaluator, log *logger.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		evaluator: evaluator,
		logger:    log,
	}
}

// Evaluate runs one evaluation
// POST /api/evaluations
func (h *EvaluationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluation.Request

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if contracts.IsEngineError(err) {
			respondEngineError(w, r, err)
			return
		}
		respondError(w, r, http.StatusBadRequest, "invalid_request", "request body is not a valid evaluation request")
		return
	}

	// volatile fields: never part of the request fingerprint
	now := time.Now().UTC()
	req.RequestID = RequestIDFrom(r.Context())
	req.RequestedAt = &now

	result, err := h.evaluator.Evaluate(r.Context(), req)
	if err != nil {
		log := h.logger.WithError(err).WithField("request_id", req.RequestID)
		if contracts.IsEngineError(err) {
			log.Info("Evaluation rejected")
		} else {
			log.Error("Evaluation failed")
		}
		respondEngineError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
