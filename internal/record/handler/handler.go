package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veil/internal/fhe"
	"veil/internal/platform/middleware"
	"veil/internal/record"
	"veil/internal/transport/http/shared"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// Service defines the record operations the transport needs.
type Service interface {
	Submit(ctx context.Context, fields record.FieldSet) (record.EncryptedRecord, error)
	RequestFieldDecryption(ctx context.Context, id domain.RecordID) (domain.RequestID, error)
	GetDecryptedRecord(ctx context.Context, id domain.RecordID) (record.Shadow, error)
	List(ctx context.Context) ([]record.EncryptedRecord, error)
}

// Handler exposes record submission, field decryption requests and shadow
// reads.
type Handler struct {
	logger  *slog.Logger
	records Service
}

func New(records Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, records: records}
}

// Register mounts the record routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/records", h.handleSubmit)
	r.Get("/records", h.handleList)
	r.Get("/records/{id}", h.handleGetShadow)
	r.Post("/records/{id}/decryption", h.handleRequestDecryption)
}

type submitRequest struct {
	Skill          fhe.Ciphertext `json:"skill"`
	LearningEffort fhe.Ciphertext `json:"learning_effort"`
	Impact         fhe.Ciphertext `json:"impact"`
	Goal           fhe.Ciphertext `json:"goal"`
}

type submitResponse struct {
	ID        domain.RecordID `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	rec, err := h.records.Submit(ctx, record.FieldSet{
		Skill:          req.Skill,
		LearningEffort: req.LearningEffort,
		Impact:         req.Impact,
		Goal:           req.Goal,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "record submission rejected",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, submitResponse{ID: rec.ID, CreatedAt: rec.CreatedAt})
}

type shadowResponse struct {
	ID       domain.RecordID     `json:"id"`
	Revealed bool                `json:"revealed"`
	Values   *record.FieldValues `json:"values,omitempty"`
}

func (h *Handler) handleGetShadow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shadow, err := h.records.GetDecryptedRecord(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := shadowResponse{ID: id}
	if values, revealed := shadow.Revealed(); revealed {
		resp.Revealed = true
		resp.Values = &values
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

type decryptionResponse struct {
	RequestID domain.RequestID `json:"request_id"`
}

func (h *Handler) handleRequestDecryption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	requestID, err := h.records.RequestFieldDecryption(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "field decryption request rejected",
			"request_id", middleware.GetRequestID(ctx),
			"record_id", id.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusAccepted, decryptionResponse{RequestID: requestID})
}

type listItem struct {
	ID        domain.RecordID `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := h.records.List(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	items := make([]listItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, listItem{ID: rec.ID, CreatedAt: rec.CreatedAt})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"records": items})
}
