//go:build integration

package record_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"veil/internal/fhe"
	"veil/internal/record"
	"veil/pkg/domain"
	"veil/pkg/platform/sentinel"
	"veil/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *record.PostgresStore
	algebra  *fhe.PlaintextAlgebra
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = record.NewPostgres(s.postgres.DB)
	s.algebra = fhe.NewPlaintextAlgebra()
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "records"))
}

func (s *PostgresStoreSuite) newFieldSet() record.FieldSet {
	return record.FieldSet{
		Skill:          s.algebra.Encrypt(10),
		LearningEffort: s.algebra.Encrypt(20),
		Impact:         s.algebra.Encrypt(30),
		Goal:           s.algebra.Encrypt(25),
	}
}

func (s *PostgresStoreSuite) TestCreateAssignsMonotonicIDs() {
	ctx := context.Background()

	first, err := s.store.Create(ctx, s.newFieldSet())
	s.Require().NoError(err)
	second, err := s.store.Create(ctx, s.newFieldSet())
	s.Require().NoError(err)

	s.Greater(uint64(second.ID), uint64(first.ID))

	found, err := s.store.FindByID(ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(first.Fields.Skill, found.Fields.Skill)
	s.Equal(first.Fields.Goal, found.Fields.Goal)
}

func (s *PostgresStoreSuite) TestShadowStartsUnrevealed() {
	ctx := context.Background()

	rec, err := s.store.Create(ctx, s.newFieldSet())
	s.Require().NoError(err)

	shadow, err := s.store.Shadow(ctx, rec.ID)
	s.Require().NoError(err)
	_, revealed := shadow.Revealed()
	s.False(revealed)
}

func (s *PostgresStoreSuite) TestRevealIsOneShot() {
	ctx := context.Background()

	rec, err := s.store.Create(ctx, s.newFieldSet())
	s.Require().NoError(err)

	values := record.FieldValues{Skill: 10, LearningEffort: 20, Impact: 30, Goal: 25}
	s.Require().NoError(s.store.Reveal(ctx, rec.ID, values))

	err = s.store.Reveal(ctx, rec.ID, record.FieldValues{Skill: 99})
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrAlreadyUsed))

	shadow, err := s.store.Shadow(ctx, rec.ID)
	s.Require().NoError(err)
	got, revealed := shadow.Revealed()
	s.True(revealed)
	s.Equal(values, got)
}

func (s *PostgresStoreSuite) TestRevealUnknownRecord() {
	err := s.store.Reveal(context.Background(), domain.RecordID(424242), record.FieldValues{})
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

// Concurrent reveal attempts must produce exactly one winner; the conditional
// update arbitrates at the database.
func (s *PostgresStoreSuite) TestConcurrentRevealSingleWinner() {
	ctx := context.Background()

	rec, err := s.store.Create(ctx, s.newFieldSet())
	s.Require().NoError(err)

	const goroutines = 32
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := s.store.Reveal(ctx, rec.ID, record.FieldValues{Skill: uint32(n)})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				conflictCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresStoreSuite) TestListReturnsCreationOrder() {
	ctx := context.Background()

	var ids []domain.RecordID
	for i := 0; i < 3; i++ {
		rec, err := s.store.Create(ctx, s.newFieldSet())
		s.Require().NoError(err)
		ids = append(ids, rec.ID)
	}

	listed, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(listed, 3)
	for i, rec := range listed {
		s.Equal(ids[i], rec.ID)
	}
}
