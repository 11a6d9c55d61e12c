// Package store persists generated advisories. It is the only part of
// the generation layer that touches the relational store: advisory
// answers are saved as records after generation, nothing else is.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdvisoryRecord is one persisted question/answer pair.
type AdvisoryRecord struct {
	ID        uuid.UUID `json:"id"`
	FarmID    uuid.UUID `json:"farm_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Advisories provides access to the advisories table.
type Advisories struct {
	pool *pgxpool.Pool
}

func NewAdvisories(pool *pgxpool.Pool) *Advisories {
	return &Advisories{pool: pool}
}

// Save inserts rec. The caller supplies the ID so retried jobs stay
// idempotent (conflicting IDs are ignored).
func (s *Advisories) Save(ctx context.Context, rec AdvisoryRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO advisories (id, farm_id, question, answer, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.FarmID, rec.Question, rec.Answer, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert advisory: %w", err)
	}
	return nil
}

// ListByFarm returns the most recent advisories for a farm.
func (s *Advisories) ListByFarm(ctx context.Context, farmID uuid.UUID, limit int) ([]AdvisoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, farm_id, question, answer, created_at
		FROM advisories
		WHERE farm_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, farmID, limit)
	if err != nil {
		return nil, fmt.Errorf("list advisories: %w", err)
	}
	defer rows.Close()

	var out []AdvisoryRecord
	for rows.Next() {
		var rec AdvisoryRecord
		if err := rows.Scan(&rec.ID, &rec.FarmID, &rec.Question, &rec.Answer, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan advisory: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
