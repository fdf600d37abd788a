package simulation_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil/internal/events"
	"veil/internal/fhe"
	"veil/internal/oracle/ledger"
	"veil/internal/platform/locks"
	"veil/internal/platform/metrics"
	"veil/internal/record"
	"veil/internal/simulation"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

type simFixture struct {
	simulations *simulation.Service
	records     *record.InMemoryStore
	ledger      *ledger.InMemoryLedger
	events      *events.MemoryPublisher
	algebra     *fhe.PlaintextAlgebra
	ctx         context.Context
}

func newSimFixture(t *testing.T) *simFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &simFixture{
		records: record.NewInMemoryStore(),
		ledger:  ledger.NewInMemory(),
		events:  events.NewMemoryPublisher(),
		algebra: fhe.NewPlaintextAlgebra(),
		ctx:     context.Background(),
	}
	f.simulations = simulation.NewService(
		simulation.NewInMemoryStore(), f.records, f.algebra, f.ledger,
		locks.NewPerRecord(), f.events, metrics.NewForTest(), logger)
	return f
}

func (f *simFixture) submit(t *testing.T, skill, effort, impact, goal uint32) domain.RecordID {
	t.Helper()
	rec, err := f.records.Create(f.ctx, record.FieldSet{
		Skill:          f.algebra.Encrypt(skill),
		LearningEffort: f.algebra.Encrypt(effort),
		Impact:         f.algebra.Encrypt(impact),
		Goal:           f.algebra.Encrypt(goal),
	})
	require.NoError(t, err)
	return rec.ID
}

// The fixed formula: (skill*2 + learningEffort + impact*3) / 6, truncating.
func TestComputeScoreFormula(t *testing.T) {
	f := newSimFixture(t)
	id := f.submit(t, 10, 20, 30, 25)

	result, err := f.simulations.Compute(f.ctx, id)
	require.NoError(t, err)

	score, err := f.algebra.Decrypt(result.EncryptedScore)
	require.NoError(t, err)
	assert.Equal(t, uint32(23), score) // (10*2+20+30*3)/6 = 130/6 truncated
}

func TestComputeTruncates(t *testing.T) {
	f := newSimFixture(t)
	id := f.submit(t, 1, 1, 1, 0) // (2+1+3)/6 = 1 exactly; then an uneven one
	result, err := f.simulations.Compute(f.ctx, id)
	require.NoError(t, err)
	score, err := f.algebra.Decrypt(result.EncryptedScore)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), score)

	id2 := f.submit(t, 1, 2, 1, 0) // (2+2+3)/6 = 7/6 -> 1
	result2, err := f.simulations.Compute(f.ctx, id2)
	require.NoError(t, err)
	score2, err := f.algebra.Decrypt(result2.EncryptedScore)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), score2)
}

func TestComputeRunsAtMostOnce(t *testing.T) {
	f := newSimFixture(t)
	id := f.submit(t, 10, 20, 30, 25)

	_, err := f.simulations.Compute(f.ctx, id)
	require.NoError(t, err)

	_, err = f.simulations.Compute(f.ctx, id)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSimulationAlreadyRun))
}

func TestComputeUnknownRecord(t *testing.T) {
	f := newSimFixture(t)

	_, err := f.simulations.Compute(f.ctx, domain.RecordID(99))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestScoreDecryptionLifecycle(t *testing.T) {
	f := newSimFixture(t)
	id := f.submit(t, 10, 20, 30, 25)

	// Requesting before compute fails.
	_, err := f.simulations.RequestScoreDecryption(f.ctx, id)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSimulationNotRun))

	_, err = f.simulations.Compute(f.ctx, id)
	require.NoError(t, err)

	requestID, err := f.simulations.RequestScoreDecryption(f.ctx, id)
	require.NoError(t, err)
	assert.False(t, requestID.IsZero())

	require.NoError(t, f.simulations.ApplyScoreDecryption(f.ctx, id, requestID, 23))

	result, err := f.simulations.Get(f.ctx, id)
	require.NoError(t, err)
	score, revealed := result.PlainScore()
	require.True(t, revealed)
	assert.Equal(t, uint32(23), score)

	// Reveal is terminal: neither apply nor a fresh request may repeat it.
	err = f.simulations.ApplyScoreDecryption(f.ctx, id, requestID, 23)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyRevealed))

	_, err = f.simulations.RequestScoreDecryption(f.ctx, id)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyRevealed))
}

func TestScoreRevealEmitsEvent(t *testing.T) {
	f := newSimFixture(t)
	id := f.submit(t, 10, 20, 30, 25)
	_, err := f.simulations.Compute(f.ctx, id)
	require.NoError(t, err)
	requestID, err := f.simulations.RequestScoreDecryption(f.ctx, id)
	require.NoError(t, err)

	require.NoError(t, f.simulations.ApplyScoreDecryption(f.ctx, id, requestID, 23))

	history := f.events.History()
	require.Len(t, history, 1)
	assert.Equal(t, events.TypeScoreRevealed, history[0].Type)
	require.NotNil(t, history[0].Score)
	assert.Equal(t, uint32(23), *history[0].Score)
}

func TestCompareToGoal(t *testing.T) {
	f := newSimFixture(t)

	t.Run("score above goal", func(t *testing.T) {
		id := f.submit(t, 10, 20, 30, 20) // score 23 > goal 20
		_, err := f.simulations.Compute(f.ctx, id)
		require.NoError(t, err)

		comparison, err := f.simulations.CompareToGoal(f.ctx, id)
		require.NoError(t, err)
		reached, err := f.algebra.DecryptBool(comparison)
		require.NoError(t, err)
		assert.True(t, reached)
	})

	t.Run("score at or below goal", func(t *testing.T) {
		id := f.submit(t, 10, 20, 30, 23) // score 23, not strictly greater
		_, err := f.simulations.Compute(f.ctx, id)
		require.NoError(t, err)

		comparison, err := f.simulations.CompareToGoal(f.ctx, id)
		require.NoError(t, err)
		reached, err := f.algebra.DecryptBool(comparison)
		require.NoError(t, err)
		assert.False(t, reached)
	})

	t.Run("requires a computed simulation", func(t *testing.T) {
		id := f.submit(t, 1, 1, 1, 1)
		_, err := f.simulations.CompareToGoal(f.ctx, id)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeSimulationNotRun))
	})
}

// Comparison is side-effect-free and repeatable: every request issues an
// independent ledger entry and nothing is persisted.
func TestComparisonDecryptionIsNotDeduplicated(t *testing.T) {
	f := newSimFixture(t)
	id := f.submit(t, 10, 20, 30, 20)
	_, err := f.simulations.Compute(f.ctx, id)
	require.NoError(t, err)

	first, err := f.simulations.RequestComparisonDecryption(f.ctx, id)
	require.NoError(t, err)
	second, err := f.simulations.RequestComparisonDecryption(f.ctx, id)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, f.ledger.OpenCount())
}

// Two records processed in interleaved order end in identical per-record
// state: no cross-record interference.
func TestOrderingIndependenceAcrossRecords(t *testing.T) {
	f := newSimFixture(t)
	a := f.submit(t, 10, 20, 30, 25)
	b := f.submit(t, 4, 5, 6, 1)

	// Compute b first, then a; decrypt a first, then b.
	_, err := f.simulations.Compute(f.ctx, b)
	require.NoError(t, err)
	_, err = f.simulations.Compute(f.ctx, a)
	require.NoError(t, err)

	reqA, err := f.simulations.RequestScoreDecryption(f.ctx, a)
	require.NoError(t, err)
	reqB, err := f.simulations.RequestScoreDecryption(f.ctx, b)
	require.NoError(t, err)

	require.NoError(t, f.simulations.ApplyScoreDecryption(f.ctx, a, reqA, 23))
	require.NoError(t, f.simulations.ApplyScoreDecryption(f.ctx, b, reqB, 5))

	resultA, err := f.simulations.Get(f.ctx, a)
	require.NoError(t, err)
	scoreA, _ := resultA.PlainScore()
	assert.Equal(t, uint32(23), scoreA)

	resultB, err := f.simulations.Get(f.ctx, b)
	require.NoError(t, err)
	scoreB, _ := resultB.PlainScore()
	assert.Equal(t, uint32(5), scoreB)
}
