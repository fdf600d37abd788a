package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"veil/internal/events"
	"veil/internal/fhe"
	"veil/internal/oracle/ledger"
	"veil/internal/platform/locks"
	"veil/internal/platform/metrics"
	"veil/internal/record"
	"veil/pkg/domain"
)

func newRecordRouter(t *testing.T) (http.Handler, *record.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := record.NewService(
		record.NewInMemoryStore(),
		ledger.NewInMemory(),
		locks.NewPerRecord(),
		events.NewMemoryPublisher(),
		metrics.NewForTest(),
		logger,
	)

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r, svc
}

func submitBody(t *testing.T) []byte {
	t.Helper()
	algebra := fhe.NewPlaintextAlgebra()
	body, err := json.Marshal(map[string]fhe.Ciphertext{
		"skill":           algebra.Encrypt(10),
		"learning_effort": algebra.Encrypt(20),
		"impact":          algebra.Encrypt(30),
		"goal":            algebra.Encrypt(25),
	})
	if err != nil {
		t.Fatalf("failed to marshal submit body: %v", err)
	}
	return body
}

func TestSubmitAndReadShadowViaHandlers(t *testing.T) {
	router, _ := newRecordRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/records", bytes.NewReader(submitBody(t)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 submitting record, got %d", rec.Code)
	}

	var submitResp struct {
		ID domain.RecordID `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&submitResp); err != nil {
		t.Fatalf("failed to decode submit response: %v", err)
	}
	if submitResp.ID == 0 {
		t.Fatalf("expected assigned record id")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/records/"+submitResp.ID.String(), nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching shadow, got %d", getRec.Code)
	}

	var shadowResp struct {
		Revealed bool                `json:"revealed"`
		Values   *record.FieldValues `json:"values"`
	}
	if err := json.NewDecoder(getRec.Body).Decode(&shadowResp); err != nil {
		t.Fatalf("failed to decode shadow response: %v", err)
	}
	if shadowResp.Revealed || shadowResp.Values != nil {
		t.Fatalf("expected unrevealed shadow right after submit")
	}
}

func TestSubmitRejectsIncompleteFieldSet(t *testing.T) {
	router, _ := newRecordRouter(t)
	algebra := fhe.NewPlaintextAlgebra()

	body, _ := json.Marshal(map[string]fhe.Ciphertext{
		"skill": algebra.Encrypt(10),
		"goal":  algebra.Encrypt(25),
	})
	req := httptest.NewRequest(http.MethodPost, "/records", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete field set, got %d", rec.Code)
	}
}

func TestRequestDecryptionReturnsRequestID(t *testing.T) {
	router, _ := newRecordRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/records", bytes.NewReader(submitBody(t)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var submitResp struct {
		ID domain.RecordID `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&submitResp); err != nil {
		t.Fatalf("failed to decode submit response: %v", err)
	}

	decReq := httptest.NewRequest(http.MethodPost, "/records/"+submitResp.ID.String()+"/decryption", nil)
	decRec := httptest.NewRecorder()
	router.ServeHTTP(decRec, decReq)
	if decRec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 requesting decryption, got %d", decRec.Code)
	}

	var decResp struct {
		RequestID domain.RequestID `json:"request_id"`
	}
	if err := json.NewDecoder(decRec.Body).Decode(&decResp); err != nil {
		t.Fatalf("failed to decode decryption response: %v", err)
	}
	if decResp.RequestID.IsZero() {
		t.Fatalf("expected non-zero request id")
	}
}

func TestRequestDecryptionConflictsOnceRevealed(t *testing.T) {
	router, svc := newRecordRouter(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/records", bytes.NewReader(submitBody(t)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var submitResp struct {
		ID domain.RecordID `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&submitResp); err != nil {
		t.Fatalf("failed to decode submit response: %v", err)
	}

	requestID, err := svc.RequestFieldDecryption(ctx, submitResp.ID)
	if err != nil {
		t.Fatalf("failed to request decryption: %v", err)
	}
	values := record.FieldValues{Skill: 10, LearningEffort: 20, Impact: 30, Goal: 25}
	if err := svc.ApplyFieldDecryption(ctx, submitResp.ID, requestID, values); err != nil {
		t.Fatalf("failed to apply decryption: %v", err)
	}

	decReq := httptest.NewRequest(http.MethodPost, "/records/"+submitResp.ID.String()+"/decryption", nil)
	decRec := httptest.NewRecorder()
	router.ServeHTTP(decRec, decReq)
	if decRec.Code != http.StatusConflict {
		t.Fatalf("expected 409 requesting decryption of revealed record, got %d", decRec.Code)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/records/"+submitResp.ID.String(), nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	var shadowResp struct {
		Revealed bool                `json:"revealed"`
		Values   *record.FieldValues `json:"values"`
	}
	if err := json.NewDecoder(getRec.Body).Decode(&shadowResp); err != nil {
		t.Fatalf("failed to decode shadow response: %v", err)
	}
	if !shadowResp.Revealed || shadowResp.Values == nil {
		t.Fatalf("expected revealed shadow with values")
	}
	if *shadowResp.Values != values {
		t.Fatalf("expected revealed values %+v, got %+v", values, *shadowResp.Values)
	}
}

func TestUnknownRecordReturns404(t *testing.T) {
	router, _ := newRecordRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/records/9999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown record, got %d", rec.Code)
	}
}

func TestMalformedRecordIDReturns400(t *testing.T) {
	router, _ := newRecordRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/records/not-a-number", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed record id, got %d", rec.Code)
	}
}
