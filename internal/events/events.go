// Package events carries completion notifications to external collaborators.
// The core emits an event whenever an oracle callback commits plaintext; the
// UI (out of scope here) consumes them instead of polling read endpoints.
package events

import (
	"context"
	"errors"
	"time"

	"veil/pkg/domain"
)

// ErrInboxFull is returned by AsyncPublisher.Emit when the worker has fallen
// behind and the buffer is saturated.
var ErrInboxFull = errors.New("event inbox full")

// Type names what was completed.
type Type string

const (
	// TypeFieldsRevealed fires when all four record fields are committed.
	TypeFieldsRevealed Type = "record_fields_revealed"
	// TypeScoreRevealed fires when a simulation score is committed.
	TypeScoreRevealed Type = "score_revealed"
	// TypeGoalComparisonDecrypted fires when a goal-comparison boolean comes
	// back. The boolean is carried in the event only; it is never persisted.
	TypeGoalComparisonDecrypted Type = "goal_comparison_decrypted"
)

// Event is one completion notification.
type Event struct {
	Type        Type             `json:"type"`
	RecordID    domain.RecordID  `json:"record_id"`
	RequestID   domain.RequestID `json:"request_id"`
	Score       *uint32          `json:"score,omitempty"`
	GoalReached *bool            `json:"goal_reached,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Publisher delivers completion events. Implementations must tolerate being
// called from request handling paths, so Emit should not block on slow
// consumers.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
