package record

import (
	"time"

	"veil/internal/fhe"
	"veil/pkg/domain"
)

// FieldSet holds the four encrypted attributes of one record, in the fixed
// order the oracle protocol uses: skill, learning effort, impact, goal.
type FieldSet struct {
	Skill          fhe.Ciphertext
	LearningEffort fhe.Ciphertext
	Impact         fhe.Ciphertext
	Goal           fhe.Ciphertext
}

// Ordered returns the fields in protocol order.
func (f FieldSet) Ordered() []fhe.Ciphertext {
	return []fhe.Ciphertext{f.Skill, f.LearningEffort, f.Impact, f.Goal}
}

// Complete reports whether all four handles are present.
func (f FieldSet) Complete() bool {
	return !f.Skill.IsZero() && !f.LearningEffort.IsZero() && !f.Impact.IsZero() && !f.Goal.IsZero()
}

// EncryptedRecord is one submitted record. Ciphertext fields are immutable
// after creation; derived values flow through the simulation and decryption
// pipeline instead.
type EncryptedRecord struct {
	ID        domain.RecordID
	Fields    FieldSet
	CreatedAt time.Time
}

// FieldValues is the plaintext mirror of a FieldSet.
type FieldValues struct {
	Skill          uint32 `json:"skill"`
	LearningEffort uint32 `json:"learning_effort"`
	Impact         uint32 `json:"impact"`
	Goal           uint32 `json:"goal"`
}

// Shadow is the decrypted side of a record. It is a tagged state: either
// unrevealed (no plaintext exists, not zeros-as-data) or revealed with all
// four values. The transition happens at most once.
type Shadow struct {
	values *FieldValues
}

// UnrevealedShadow is the state every record starts in.
func UnrevealedShadow() Shadow {
	return Shadow{}
}

// RevealedShadow wraps committed plaintext values.
func RevealedShadow(values FieldValues) Shadow {
	return Shadow{values: &values}
}

// Revealed returns the committed values and whether the reveal has happened.
// When the second return is false the first must be ignored.
func (s Shadow) Revealed() (FieldValues, bool) {
	if s.values == nil {
		return FieldValues{}, false
	}
	return *s.values, true
}
