package record

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"veil/internal/fhe"
	"veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

type RecordStoreSuite struct {
	suite.Suite
	store   *InMemoryStore
	algebra *fhe.PlaintextAlgebra
	ctx     context.Context
}

func (s *RecordStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.algebra = fhe.NewPlaintextAlgebra()
	s.ctx = context.Background()
}

func TestRecordStoreSuite(t *testing.T) {
	suite.Run(t, new(RecordStoreSuite))
}

func (s *RecordStoreSuite) newFields(skill, effort, impact, goal uint32) FieldSet {
	return FieldSet{
		Skill:          s.algebra.Encrypt(skill),
		LearningEffort: s.algebra.Encrypt(effort),
		Impact:         s.algebra.Encrypt(impact),
		Goal:           s.algebra.Encrypt(goal),
	}
}

func (s *RecordStoreSuite) TestCreateAssignsMonotonicIDs() {
	first, err := s.store.Create(s.ctx, s.newFields(1, 2, 3, 4))
	s.Require().NoError(err)
	second, err := s.store.Create(s.ctx, s.newFields(5, 6, 7, 8))
	s.Require().NoError(err)

	s.Equal(domain.RecordID(1), first.ID)
	s.Equal(domain.RecordID(2), second.ID)

	listed, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(first.ID, listed[0].ID)
	s.Equal(second.ID, listed[1].ID)
}

func (s *RecordStoreSuite) TestShadowStartsUnrevealed() {
	rec, err := s.store.Create(s.ctx, s.newFields(1, 2, 3, 4))
	s.Require().NoError(err)

	shadow, err := s.store.Shadow(s.ctx, rec.ID)
	s.Require().NoError(err)
	_, revealed := shadow.Revealed()
	s.False(revealed)
}

func (s *RecordStoreSuite) TestRevealCommitsOnce() {
	rec, err := s.store.Create(s.ctx, s.newFields(1, 2, 3, 4))
	s.Require().NoError(err)

	values := FieldValues{Skill: 1, LearningEffort: 2, Impact: 3, Goal: 4}
	s.Require().NoError(s.store.Reveal(s.ctx, rec.ID, values))

	shadow, err := s.store.Shadow(s.ctx, rec.ID)
	s.Require().NoError(err)
	got, revealed := shadow.Revealed()
	s.True(revealed)
	s.Equal(values, got)

	err = s.store.Reveal(s.ctx, rec.ID, values)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *RecordStoreSuite) TestUnknownRecord() {
	_, err := s.store.FindByID(s.ctx, domain.RecordID(99))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Shadow(s.ctx, domain.RecordID(99))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Reveal(s.ctx, domain.RecordID(99), FieldValues{})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RecordStoreSuite) TestStoredCiphertextsAreImmutableCopies() {
	fields := s.newFields(1, 2, 3, 4)
	rec, err := s.store.Create(s.ctx, fields)
	s.Require().NoError(err)

	// Mutating the caller's slice must not corrupt the stored handles.
	fields.Skill[0] = 0xFF

	stored, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	v, err := s.algebra.Decrypt(stored.Fields.Skill)
	s.Require().NoError(err)
	s.Equal(uint32(1), v)
}
