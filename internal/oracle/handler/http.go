package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veil/internal/oracle"
	"veil/internal/platform/middleware"
	"veil/internal/transport/http/shared"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// Register mounts the oracle callback endpoint. No separate authentication:
// the proof itself is the credential, and a failed proof rejects the call.
func (h *Handler) Register(r chi.Router) {
	r.Post("/oracle/callback", h.handleCallback)
}

type callbackRequest struct {
	RequestID  domain.RequestID `json:"request_id"`
	Cleartexts []uint32         `json:"cleartexts"`
	Proof      string           `json:"proof"`
}

type callbackResponse struct {
	RecordID    domain.RecordID    `json:"record_id"`
	Kind        oracle.RequestKind `json:"kind"`
	GoalReached *bool              `json:"goal_reached,omitempty"`
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid callback body"))
		return
	}
	if req.RequestID.IsZero() || req.Proof == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request_id and proof are required"))
		return
	}

	proof, err := base64.StdEncoding.DecodeString(req.Proof)
	if err != nil {
		// Compact JWT form is also accepted as-is.
		proof = []byte(req.Proof)
	}

	result, err := h.OnOracleCallback(ctx, req.RequestID, req.Cleartexts, proof)
	if err != nil {
		h.logger.WarnContext(ctx, "oracle callback rejected",
			"request_id", middleware.GetRequestID(ctx),
			"oracle_request_id", req.RequestID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, callbackResponse{
		RecordID:    result.Target,
		Kind:        result.Kind,
		GoalReached: result.GoalReached,
	})
}
