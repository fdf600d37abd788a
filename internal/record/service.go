package record

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"veil/internal/events"
	"veil/internal/fhe"
	"veil/internal/oracle"
	"veil/internal/platform/locks"
	"veil/internal/platform/metrics"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/sentinel"
)

// DecryptionLedger is the slice of the oracle request ledger this service
// needs: issuing requests. Resolution belongs to the protocol handler.
type DecryptionLedger interface {
	Issue(ctx context.Context, ciphertexts []fhe.Ciphertext, kind oracle.RequestKind, target domain.RecordID) (domain.RequestID, error)
}

// Service is the Record Store component: it owns submission, field
// decryption requests, and the one-time reveal of the decrypted shadow.
type Service struct {
	store   Store
	ledger  DecryptionLedger
	locks   *locks.PerRecord
	events  events.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(
	store Store,
	ledger DecryptionLedger,
	recordLocks *locks.PerRecord,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:   store,
		ledger:  ledger,
		locks:   recordLocks,
		events:  publisher,
		metrics: m,
		logger:  logger,
	}
}

// Submit stores a new encrypted record and returns it with its assigned id.
// Ciphertext content cannot be validated by construction; only presence of
// all four handles is checked.
func (s *Service) Submit(ctx context.Context, fields FieldSet) (EncryptedRecord, error) {
	if !fields.Complete() {
		return EncryptedRecord{}, dErrors.New(dErrors.CodeBadRequest, "all four encrypted fields are required")
	}
	rec, err := s.store.Create(ctx, fields)
	if err != nil {
		return EncryptedRecord{}, dErrors.Wrap(dErrors.CodeInternal, "failed to store record", err)
	}
	s.metrics.RecordsSubmitted.Inc()
	s.logger.InfoContext(ctx, "record submitted", "record_id", rec.ID.String())
	return rec, nil
}

// RequestFieldDecryption issues a single multi-value oracle request covering
// all four fields. Fails with AlreadyRevealed once the shadow is committed.
func (s *Service) RequestFieldDecryption(ctx context.Context, id domain.RecordID) (domain.RequestID, error) {
	release := s.locks.Acquire(id)
	defer release()

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.RequestID{}, translateStoreErr(err)
	}
	shadow, err := s.store.Shadow(ctx, id)
	if err != nil {
		return domain.RequestID{}, translateStoreErr(err)
	}
	if _, revealed := shadow.Revealed(); revealed {
		return domain.RequestID{}, dErrors.New(dErrors.CodeAlreadyRevealed, "record fields are already revealed")
	}

	requestID, err := s.ledger.Issue(ctx, rec.Fields.Ordered(), oracle.KindRecordFields, id)
	if err != nil {
		return domain.RequestID{}, err
	}
	s.metrics.RequestsIssued.WithLabelValues(string(oracle.KindRecordFields)).Inc()
	s.logger.InfoContext(ctx, "field decryption requested",
		"record_id", id.String(),
		"oracle_request_id", requestID.String(),
	)
	return requestID, nil
}

// ApplyFieldDecryption commits the oracle-provided plaintext. Only the
// decryption protocol handler calls this, after proof verification. The
// AlreadyRevealed check is a defensive double-check; the ledger's
// single-resolution guarantee should already prevent replay.
func (s *Service) ApplyFieldDecryption(ctx context.Context, id domain.RecordID, requestID domain.RequestID, values FieldValues) error {
	release := s.locks.Acquire(id)
	defer release()

	if err := s.store.Reveal(ctx, id, values); err != nil {
		return translateStoreErr(err)
	}
	s.metrics.DecryptionsApplied.WithLabelValues(string(oracle.KindRecordFields)).Inc()

	if err := s.events.Emit(ctx, events.Event{
		Type:      events.TypeFieldsRevealed,
		RecordID:  id,
		RequestID: requestID,
		Timestamp: time.Now(),
	}); err != nil {
		s.logger.WarnContext(ctx, "completion event dropped",
			"record_id", id.String(),
			"error", err.Error(),
		)
	}
	s.logger.InfoContext(ctx, "record fields revealed", "record_id", id.String())
	return nil
}

// GetDecryptedRecord returns the shadow state. An unrevealed shadow is
// reported explicitly; plaintext zeros are never fabricated.
func (s *Service) GetDecryptedRecord(ctx context.Context, id domain.RecordID) (Shadow, error) {
	shadow, err := s.store.Shadow(ctx, id)
	if err != nil {
		return Shadow{}, translateStoreErr(err)
	}
	return shadow, nil
}

// Get returns the encrypted record itself.
func (s *Service) Get(ctx context.Context, id domain.RecordID) (EncryptedRecord, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return EncryptedRecord{}, translateStoreErr(err)
	}
	return rec, nil
}

// List returns all records in creation order.
func (s *Service) List(ctx context.Context) ([]EncryptedRecord, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list records", err)
	}
	return recs, nil
}

func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(dErrors.CodeNotFound, "record not found", err)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(dErrors.CodeAlreadyRevealed, "record fields are already revealed", err)
	default:
		return dErrors.Wrap(dErrors.CodeInternal, "record store failure", err)
	}
}
