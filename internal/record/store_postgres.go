package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"veil/pkg/domain"
)

// PostgresStore persists records and shadows in PostgreSQL. Ids come from a
// BIGSERIAL column, which gives the required creation-order monotonic
// assignment across restarts.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a connection pool and verifies it.
func OpenPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the records table when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			id                 BIGSERIAL PRIMARY KEY,
			ct_skill           BYTEA NOT NULL,
			ct_learning_effort BYTEA NOT NULL,
			ct_impact          BYTEA NOT NULL,
			ct_goal            BYTEA NOT NULL,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
			revealed           BOOLEAN NOT NULL DEFAULT false,
			pt_skill           BIGINT,
			pt_learning_effort BIGINT,
			pt_impact          BIGINT,
			pt_goal            BIGINT
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate records table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, fields FieldSet) (EncryptedRecord, error) {
	rec := EncryptedRecord{Fields: fields}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO records (ct_skill, ct_learning_effort, ct_impact, ct_goal)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, []byte(fields.Skill), []byte(fields.LearningEffort), []byte(fields.Impact), []byte(fields.Goal)).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return EncryptedRecord{}, fmt.Errorf("create record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.RecordID) (EncryptedRecord, error) {
	var rec EncryptedRecord
	var skill, effort, impact, goal []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, ct_skill, ct_learning_effort, ct_impact, ct_goal, created_at
		FROM records WHERE id = $1
	`, uint64(id)).Scan(&rec.ID, &skill, &effort, &impact, &goal, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return EncryptedRecord{}, sentinelNotFound(id)
		}
		return EncryptedRecord{}, fmt.Errorf("find record by id: %w", err)
	}
	rec.Fields = FieldSet{Skill: skill, LearningEffort: effort, Impact: impact, Goal: goal}
	return rec, nil
}

func (s *PostgresStore) Shadow(ctx context.Context, id domain.RecordID) (Shadow, error) {
	var revealed bool
	var skill, effort, impact, goal sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT revealed, pt_skill, pt_learning_effort, pt_impact, pt_goal
		FROM records WHERE id = $1
	`, uint64(id)).Scan(&revealed, &skill, &effort, &impact, &goal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Shadow{}, sentinelNotFound(id)
		}
		return Shadow{}, fmt.Errorf("load shadow: %w", err)
	}
	if !revealed {
		return UnrevealedShadow(), nil
	}
	return RevealedShadow(FieldValues{
		Skill:          uint32(skill.Int64),
		LearningEffort: uint32(effort.Int64),
		Impact:         uint32(impact.Int64),
		Goal:           uint32(goal.Int64),
	}), nil
}

func (s *PostgresStore) Reveal(ctx context.Context, id domain.RecordID, values FieldValues) error {
	// Conditional update makes check-then-act atomic at the database.
	res, err := s.db.ExecContext(ctx, `
		UPDATE records
		SET revealed = true,
		    pt_skill = $2, pt_learning_effort = $3, pt_impact = $4, pt_goal = $5
		WHERE id = $1 AND revealed = false
	`, uint64(id), int64(values.Skill), int64(values.LearningEffort), int64(values.Impact), int64(values.Goal))
	if err != nil {
		return fmt.Errorf("reveal record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reveal record: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM records WHERE id = $1)`, uint64(id)).Scan(&exists); err != nil {
		return fmt.Errorf("reveal record: %w", err)
	}
	if !exists {
		return sentinelNotFound(id)
	}
	return sentinelAlreadyUsed(id)
}

func (s *PostgresStore) List(ctx context.Context) ([]EncryptedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ct_skill, ct_learning_effort, ct_impact, ct_goal, created_at
		FROM records ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []EncryptedRecord
	for rows.Next() {
		var rec EncryptedRecord
		var skill, effort, impact, goal []byte
		if err := rows.Scan(&rec.ID, &skill, &effort, &impact, &goal, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		rec.Fields = FieldSet{Skill: skill, LearningEffort: effort, Impact: impact, Goal: goal}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}
