package repositories

import (
	"context"
	"fmt"

	"treelof-api/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepository struct {
	DB *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

// GetByIDs returns the profiles for ids keyed by id. Unknown ids are absent
// from the map.
func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	profiles := make(map[string]*models.Profile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	query := `
		SELECT id::text, username, display_name, avatar_url
		FROM profiles
		WHERE id = ANY($1::text[]::uuid[])
	`

	rows, err := r.DB.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &models.Profile{}
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName, &p.AvatarURL); err != nil {
			return nil, err
		}
		profiles[p.ID] = p
	}

	return profiles, rows.Err()
}
