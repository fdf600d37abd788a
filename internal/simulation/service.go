package simulation

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
	"veil/internal/record"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/sentinel"
)

// RecordReader is the slice of the record store the engine needs. The engine
// reads encrypted records and never mutates them.
type RecordReader interface {
	FindByID(ctx context.Context, id domain.RecordID) (record.EncryptedRecord, error)
}

// DecryptionLedger issues oracle requests for scores and comparisons.
type DecryptionLedger interface {
	Issue(ctx context.Context, ciphertexts []fhe.Ciphertext, kind oracle.RequestKind, target domain.RecordID) (domain.RequestID, error)
}

// Service is the Simulation Engine: it derives the encrypted score, runs
// encrypted goal comparisons, and owns the score's reveal state.
type Service struct {
	store   Store
	records RecordReader
	algebra fhe.Algebra
	ledger  DecryptionLedger
	locks   *locks.PerRecord
	events  events.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(
	store Store,
	records RecordReader,
	algebra fhe.Algebra,
	ledger DecryptionLedger,
	recordLocks *locks.PerRecord,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:   store,
		records: records,
		algebra: algebra,
		ledger:  ledger,
		locks:   recordLocks,
		events:  publisher,
		metrics: m,
		logger:  logger,
	}
}

// Compute derives the encrypted score for a record. At most one computation
// per record; a second call fails with SimulationAlreadyRun.
func (s *Service) Compute(ctx context.Context, id domain.RecordID) (Result, error) {
	release := s.locks.Acquire(id)
	defer release()

	if _, err := s.store.FindByRecord(ctx, id); err == nil {
		return Result{}, dErrors.New(dErrors.CodeSimulationAlreadyRun, "simulation already run for this record")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return Result{}, dErrors.Wrap(dErrors.CodeInternal, "simulation store failure", err)
	}

	rec, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.Wrap(dErrors.CodeNotFound, "record not found", err)
		}
		return Result{}, dErrors.Wrap(dErrors.CodeInternal, "record lookup failure", err)
	}

	score, err := s.evaluate(rec.Fields)
	if err != nil {
		return Result{}, dErrors.Wrap(dErrors.CodeInternal, "score evaluation failed", err)
	}

	result := Result{RecordID: id, EncryptedScore: score, ComputedAt: time.Now()}
	if err := s.store.Create(ctx, result); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Result{}, dErrors.New(dErrors.CodeSimulationAlreadyRun, "simulation already run for this record")
		}
		return Result{}, dErrors.Wrap(dErrors.CodeInternal, "failed to store simulation result", err)
	}
	s.metrics.SimulationsComputed.Inc()
	s.logger.InfoContext(ctx, "simulation computed", "record_id", id.String())
	return result, nil
}

// evaluate computes (skill*skillWeight + learningEffort + impact*impactWeight) / weightSum
// entirely in ciphertext space.
func (s *Service) evaluate(fields record.FieldSet) (fhe.Ciphertext, error) {
	two, err := s.algebra.Constant(skillWeight)
	if err != nil {
		return nil, err
	}
	three, err := s.algebra.Constant(impactWeight)
	if err != nil {
		return nil, err
	}
	weightedSkill, err := s.algebra.Mul(fields.Skill, two)
	if err != nil {
		return nil, err
	}
	weightedImpact, err := s.algebra.Mul(fields.Impact, three)
	if err != nil {
		return nil, err
	}
	sum, err := s.algebra.Add(weightedSkill, fields.LearningEffort)
	if err != nil {
		return nil, err
	}
	sum, err = s.algebra.Add(sum, weightedImpact)
	if err != nil {
		return nil, err
	}
	return s.algebra.DivConst(sum, weightSum)
}

// RequestScoreDecryption issues a single-value oracle request for the score.
func (s *Service) RequestScoreDecryption(ctx context.Context, id domain.RecordID) (domain.RequestID, error) {
	release := s.locks.Acquire(id)
	defer release()

	result, err := s.findResult(ctx, id)
	if err != nil {
		return domain.RequestID{}, err
	}
	if _, revealed := result.PlainScore(); revealed {
		return domain.RequestID{}, dErrors.New(dErrors.CodeAlreadyRevealed, "score is already revealed")
	}

	requestID, err := s.ledger.Issue(ctx, []fhe.Ciphertext{result.EncryptedScore}, oracle.KindSimulationScore, id)
	if err != nil {
		return domain.RequestID{}, err
	}
	s.metrics.RequestsIssued.WithLabelValues(string(oracle.KindSimulationScore)).Inc()
	s.logger.InfoContext(ctx, "score decryption requested",
		"record_id", id.String(),
		"oracle_request_id", requestID.String(),
	)
	return requestID, nil
}

// ApplyScoreDecryption commits the decrypted score. Called only by the
// decryption protocol handler after proof verification.
func (s *Service) ApplyScoreDecryption(ctx context.Context, id domain.RecordID, requestID domain.RequestID, score uint32) error {
	release := s.locks.Acquire(id)
	defer release()

	if err := s.store.SetPlainScore(ctx, id, score); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(dErrors.CodeSimulationNotRun, "no simulation result for record", err)
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return dErrors.Wrap(dErrors.CodeAlreadyRevealed, "score is already revealed", err)
		default:
			return dErrors.Wrap(dErrors.CodeInternal, "simulation store failure", err)
		}
	}
	s.metrics.DecryptionsApplied.WithLabelValues(string(oracle.KindSimulationScore)).Inc()

	if err := s.events.Emit(ctx, events.Event{
		Type:      events.TypeScoreRevealed,
		RecordID:  id,
		RequestID: requestID,
		Score:     &score,
		Timestamp: time.Now(),
	}); err != nil {
		s.logger.WarnContext(ctx, "completion event dropped",
			"record_id", id.String(),
			"error", err.Error(),
		)
	}
	s.logger.InfoContext(ctx, "score revealed", "record_id", id.String(), "score", score)
	return nil
}

// CompareToGoal computes greaterThan(score, goal) fresh. Side-effect-free and
// repeatable; nothing is persisted.
func (s *Service) CompareToGoal(ctx context.Context, id domain.RecordID) (fhe.Ciphertext, error) {
	result, err := s.findResult(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.FindByID(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "record lookup failure", err)
	}
	comparison, err := s.algebra.GreaterThan(result.EncryptedScore, rec.Fields.Goal)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "comparison evaluation failed", err)
	}
	return comparison, nil
}

// RequestComparisonDecryption recomputes the comparison ciphertext and issues
// a single-value oracle request for it. Repeated calls issue independent
// requests; the decrypted boolean travels in the callback/event only and is
// never stored.
func (s *Service) RequestComparisonDecryption(ctx context.Context, id domain.RecordID) (domain.RequestID, error) {
	comparison, err := s.CompareToGoal(ctx, id)
	if err != nil {
		return domain.RequestID{}, err
	}
	requestID, err := s.ledger.Issue(ctx, []fhe.Ciphertext{comparison}, oracle.KindGoalComparison, id)
	if err != nil {
		return domain.RequestID{}, err
	}
	s.metrics.RequestsIssued.WithLabelValues(string(oracle.KindGoalComparison)).Inc()
	s.logger.InfoContext(ctx, "goal comparison decryption requested",
		"record_id", id.String(),
		"oracle_request_id", requestID.String(),
	)
	return requestID, nil
}

// EmitComparisonResult publishes the decrypted comparison boolean. Called by
// the protocol handler; the value is not persisted.
func (s *Service) EmitComparisonResult(ctx context.Context, id domain.RecordID, requestID domain.RequestID, reached bool) {
	s.metrics.DecryptionsApplied.WithLabelValues(string(oracle.KindGoalComparison)).Inc()
	if err := s.events.Emit(ctx, events.Event{
		Type:        events.TypeGoalComparisonDecrypted,
		RecordID:    id,
		RequestID:   requestID,
		GoalReached: &reached,
		Timestamp:   time.Now(),
	}); err != nil {
		s.logger.WarnContext(ctx, "completion event dropped",
			"record_id", id.String(),
			"error", err.Error(),
		)
	}
	s.logger.InfoContext(ctx, "goal comparison revealed",
		"record_id", id.String(),
		"goal_reached", reached,
	)
}

// Get returns the simulation result, or SimulationNotRun.
func (s *Service) Get(ctx context.Context, id domain.RecordID) (Result, error) {
	return s.findResult(ctx, id)
}

func (s *Service) findResult(ctx context.Context, id domain.RecordID) (Result, error) {
	result, err := s.store.FindByRecord(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.Wrap(dErrors.CodeSimulationNotRun, "no simulation result for record", err)
		}
		return Result{}, dErrors.Wrap(dErrors.CodeInternal, "simulation store failure", err)
	}
	return result, nil
}
