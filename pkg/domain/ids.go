package domain

import (
	"strconv"

	"github.com/google/uuid"

	dErrors "veil/pkg/domain-errors"
)

// RecordID identifies one encrypted record. Ids are assigned by the record
// store in creation order and are never reused, so external collaborators can
// rely on them for deterministic listing.
type RecordID uint64

func (id RecordID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseRecordID parses a record id from its decimal string form. Zero is not
// a valid id; the store starts assigning at 1.
func ParseRecordID(s string) (RecordID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "record id must not be empty")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "record id must be a decimal integer")
	}
	if n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "record id must be positive")
	}
	return RecordID(n), nil
}

// RequestID identifies one outstanding oracle decryption request. Unlike
// record ids these must be unpredictable, so they are random UUIDs.
type RequestID uuid.UUID

// NewRequestID allocates a fresh random request id.
func NewRequestID() RequestID {
	return RequestID(uuid.New())
}

func (id RequestID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id is the nil UUID.
func (id RequestID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// ParseRequestID parses and validates a request id string.
func ParseRequestID(s string) (RequestID, error) {
	if s == "" {
		return RequestID{}, dErrors.New(dErrors.CodeInvalidInput, "request id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return RequestID{}, dErrors.New(dErrors.CodeInvalidInput, "request id must be a valid UUID")
	}
	if u == uuid.Nil {
		return RequestID{}, dErrors.New(dErrors.CodeInvalidInput, "request id must not be the nil UUID")
	}
	return RequestID(u), nil
}

// MarshalText implements encoding.TextMarshaler so request ids render as
// canonical UUID strings in JSON payloads.
func (id RequestID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *RequestID) UnmarshalText(text []byte) error {
	parsed, err := ParseRequestID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
