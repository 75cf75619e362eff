package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"treelof-api/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RevisionRepository struct {
	DB *pgxpool.Pool
}

func NewRevisionRepository(db *pgxpool.Pool) *RevisionRepository {
	return &RevisionRepository{DB: db}
}

// InsertBatch inserts revs in one transaction and fills in their id and
// created_at. Either every row is committed or none is.
func (r *RevisionRepository) InsertBatch(ctx context.Context, revs []*models.Revision) error {
	if len(revs) == 0 {
		return nil
	}

	query := `
		INSERT INTO revisions (
			field, old_value, new_value, owner_id, status, reference, reference_id
		)
		VALUES ($1, $2::text::jsonb, $3::text::jsonb, $4::text::uuid, $5::text::revision_status, $6, $7)
		RETURNING id, created_at
	`

	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rev := range revs {
			batch.Queue(query,
				rev.Field,
				jsonText(rev.OldValue),
				jsonText(rev.NewValue),
				rev.OwnerID,
				string(rev.Status),
				rev.Reference,
				rev.ReferenceID,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for i, rev := range revs {
			if err := results.QueryRow().Scan(&rev.ID, &rev.CreatedAt); err != nil {
				results.Close()
				return fmt.Errorf("failed to insert revision %d (%s): %w", i, rev.Field, err)
			}
		}
		return results.Close()
	})
}

// ListByReference returns every revision whose reference and reference_id
// equal the given values, oldest first.
func (r *RevisionRepository) ListByReference(ctx context.Context, reference, referenceID string) ([]*models.Revision, error) {
	query := `
		SELECT
			id, field, old_value::text, new_value::text, owner_id::text, status::text,
			reference, reference_id, created_at, approved_on, rejected_on
		FROM revisions
		WHERE reference = $1 AND reference_id = $2
		ORDER BY created_at, id
	`

	rows, err := r.DB.Query(ctx, query, reference, referenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	revs := []*models.Revision{}
	for rows.Next() {
		rev := &models.Revision{}
		var oldValue, newValue *string
		var status string
		if err := rows.Scan(
			&rev.ID, &rev.Field, &oldValue, &newValue, &rev.OwnerID, &status,
			&rev.Reference, &rev.ReferenceID, &rev.CreatedAt, &rev.ApprovedOn, &rev.RejectedOn,
		); err != nil {
			return nil, err
		}
		rev.Status = models.RevisionStatus(status)
		rev.OldValue = rawJSON(oldValue)
		rev.NewValue = rawJSON(newValue)
		revs = append(revs, rev)
	}

	return revs, rows.Err()
}

// jsonText maps an absent value to SQL NULL.
func jsonText(v json.RawMessage) *string {
	if len(v) == 0 {
		return nil
	}
	s := string(v)
	return &s
}

func rawJSON(s *string) json.RawMessage {
	if s == nil {
		return nil
	}
	return json.RawMessage(*s)
}
