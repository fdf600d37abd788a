// Package oracle holds the decryption request model shared by the ledger,
// the proof verifier and the protocol handler.
package oracle

import (
	"time"

	"veil/internal/fhe"
	"veil/pkg/domain"
)

// RequestKind tags what an oracle decryption request targets, which in turn
// fixes how many cleartext values the callback must carry.
type RequestKind string

const (
	// KindRecordFields decrypts all four fields of a record at once.
	KindRecordFields RequestKind = "record-fields"
	// KindSimulationScore decrypts a computed score.
	KindSimulationScore RequestKind = "simulation-score"
	// KindGoalComparison decrypts a score-versus-goal comparison boolean.
	KindGoalComparison RequestKind = "goal-comparison"
)

// ExpectedValues returns how many cleartext values a callback for this kind
// must deliver.
func (k RequestKind) ExpectedValues() int {
	switch k {
	case KindRecordFields:
		return 4
	default:
		return 1
	}
}

// Valid reports whether k is one of the defined kinds.
func (k RequestKind) Valid() bool {
	switch k {
	case KindRecordFields, KindSimulationScore, KindGoalComparison:
		return true
	}
	return false
}

// Request is one outstanding decryption request. The ordered ciphertext list
// is retained until resolution so the callback proof can be verified against
// exactly what was sent to the oracle.
type Request struct {
	ID          domain.RequestID
	Target      domain.RecordID
	Kind        RequestKind
	Ciphertexts []fhe.Ciphertext
	IssuedAt    time.Time
}
