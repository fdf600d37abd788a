package simulation

import (
	"time"

	"veil/internal/fhe"
	"veil/pkg/domain"
)

// Score formula coefficients: score = (skill*2 + learningEffort + impact*3) / 6,
// evaluated entirely in ciphertext space with truncating unsigned division.
const (
	skillWeight  = 2
	impactWeight = 3
	weightSum    = 6
)

// Result is the derived encrypted score for one record. At most one exists
// per record; Computed is implied by existence. PlainScore is a tagged state
// so an unrevealed score is never confused with a real zero.
type Result struct {
	RecordID       domain.RecordID
	EncryptedScore fhe.Ciphertext
	ComputedAt     time.Time

	plainScore *uint32
}

// PlainScore returns the revealed score and whether the reveal has happened.
func (r Result) PlainScore() (uint32, bool) {
	if r.plainScore == nil {
		return 0, false
	}
	return *r.plainScore, true
}

// withPlainScore returns a copy carrying the revealed value.
func (r Result) withPlainScore(v uint32) Result {
	r.plainScore = &v
	return r
}
