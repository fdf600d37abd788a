package record

import (
	"context"
	"fmt"

	"veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// Store owns EncryptedRecord and Shadow persistence. Implementations return
// sentinel errors (pkg/platform/sentinel); the service translates them.
type Store interface {
	// Create persists the fields under a freshly assigned id (monotonic,
	// creation order, never reused) with an unrevealed shadow.
	Create(ctx context.Context, fields FieldSet) (EncryptedRecord, error)
	// FindByID returns the encrypted record, or sentinel.ErrNotFound.
	FindByID(ctx context.Context, id domain.RecordID) (EncryptedRecord, error)
	// Shadow returns the record's decrypted shadow, or sentinel.ErrNotFound.
	Shadow(ctx context.Context, id domain.RecordID) (Shadow, error)
	// Reveal commits plaintext values exactly once. Returns
	// sentinel.ErrNotFound for unknown records and sentinel.ErrAlreadyUsed
	// when the shadow is already revealed.
	Reveal(ctx context.Context, id domain.RecordID, values FieldValues) error
	// List returns all records in creation order.
	List(ctx context.Context) ([]EncryptedRecord, error)
}

func sentinelNotFound(id domain.RecordID) error {
	return fmt.Errorf("record %s: %w", id, sentinel.ErrNotFound)
}

func sentinelAlreadyUsed(id domain.RecordID) error {
	return fmt.Errorf("record %s shadow: %w", id, sentinel.ErrAlreadyUsed)
}
