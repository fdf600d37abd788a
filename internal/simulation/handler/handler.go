package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veil/internal/fhe"
	"veil/internal/platform/middleware"
	"veil/internal/simulation"
	"veil/internal/transport/http/shared"
	"veil/pkg/domain"
)

// Service defines the simulation operations the transport needs.
type Service interface {
	Compute(ctx context.Context, id domain.RecordID) (simulation.Result, error)
	RequestScoreDecryption(ctx context.Context, id domain.RecordID) (domain.RequestID, error)
	CompareToGoal(ctx context.Context, id domain.RecordID) (fhe.Ciphertext, error)
	RequestComparisonDecryption(ctx context.Context, id domain.RecordID) (domain.RequestID, error)
	Get(ctx context.Context, id domain.RecordID) (simulation.Result, error)
}

// Handler exposes score computation, goal comparison and their decryption
// request endpoints.
type Handler struct {
	logger      *slog.Logger
	simulations Service
}

func New(simulations Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, simulations: simulations}
}

// Register mounts the simulation routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/records/{id}/simulation", h.handleCompute)
	r.Get("/records/{id}/simulation", h.handleGet)
	r.Post("/records/{id}/simulation/decryption", h.handleRequestScoreDecryption)
	r.Post("/records/{id}/simulation/comparison", h.handleCompare)
	r.Post("/records/{id}/simulation/comparison/decryption", h.handleRequestComparisonDecryption)
}

type computeResponse struct {
	RecordID       domain.RecordID `json:"record_id"`
	EncryptedScore fhe.Ciphertext  `json:"encrypted_score"`
	ComputedAt     time.Time       `json:"computed_at"`
}

func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.simulations.Compute(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "simulation rejected",
			"request_id", middleware.GetRequestID(ctx),
			"record_id", id.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, computeResponse{
		RecordID:       result.RecordID,
		EncryptedScore: result.EncryptedScore,
		ComputedAt:     result.ComputedAt,
	})
}

type resultResponse struct {
	RecordID       domain.RecordID `json:"record_id"`
	EncryptedScore fhe.Ciphertext  `json:"encrypted_score"`
	ComputedAt     time.Time       `json:"computed_at"`
	ScoreRevealed  bool            `json:"score_revealed"`
	Score          *uint32         `json:"score,omitempty"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.simulations.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := resultResponse{
		RecordID:       result.RecordID,
		EncryptedScore: result.EncryptedScore,
		ComputedAt:     result.ComputedAt,
	}
	if score, revealed := result.PlainScore(); revealed {
		resp.ScoreRevealed = true
		resp.Score = &score
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

type decryptionResponse struct {
	RequestID domain.RequestID `json:"request_id"`
}

func (h *Handler) handleRequestScoreDecryption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	requestID, err := h.simulations.RequestScoreDecryption(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "score decryption request rejected",
			"request_id", middleware.GetRequestID(ctx),
			"record_id", id.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusAccepted, decryptionResponse{RequestID: requestID})
}

type comparisonResponse struct {
	RecordID            domain.RecordID `json:"record_id"`
	EncryptedComparison fhe.Ciphertext  `json:"encrypted_comparison"`
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	comparison, err := h.simulations.CompareToGoal(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, comparisonResponse{RecordID: id, EncryptedComparison: comparison})
}

func (h *Handler) handleRequestComparisonDecryption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	requestID, err := h.simulations.RequestComparisonDecryption(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "comparison decryption request rejected",
			"request_id", middleware.GetRequestID(ctx),
			"record_id", id.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusAccepted, decryptionResponse{RequestID: requestID})
}
