package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"treelof-api/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PlantRepository struct {
	DB *pgxpool.Pool
}

func NewPlantRepository(db *pgxpool.Pool) *PlantRepository {
	return &PlantRepository{DB: db}
}

const plantColumns = `
	id, common_name, scientific_name, description, color, height,
	edibilities, sun_preferences, created_at, updated_at
`

func (r *PlantRepository) Get(ctx context.Context, id int64) (*models.Plant, error) {
	query := `SELECT ` + plantColumns + ` FROM plants WHERE id = $1`

	plant := &models.Plant{}
	err := r.DB.QueryRow(ctx, query, id).Scan(
		&plant.ID, &plant.CommonName, &plant.ScientificName, &plant.Description,
		&plant.Color, &plant.Height, &plant.Edibilities, &plant.SunPreferences,
		&plant.CreatedAt, &plant.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return plant, nil
}

// List returns plants ordered by common name.
func (r *PlantRepository) List(ctx context.Context, limit, offset int) ([]*models.Plant, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + plantColumns + ` FROM plants ORDER BY common_name, id LIMIT $1 OFFSET $2`

	rows, err := r.DB.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	defer rows.Close()

	plants := []*models.Plant{}
	for rows.Next() {
		plant := &models.Plant{}
		if err := rows.Scan(
			&plant.ID, &plant.CommonName, &plant.ScientificName, &plant.Description,
			&plant.Color, &plant.Height, &plant.Edibilities, &plant.SunPreferences,
			&plant.CreatedAt, &plant.UpdatedAt,
		); err != nil {
			return nil, err
		}
		plants = append(plants, plant)
	}

	return plants, rows.Err()
}

// GetRecord reads a plant as a column -> JSON value map.
func (r *PlantRepository) GetRecord(ctx context.Context, id int64) (models.Record, error) {
	var raw []byte
	err := r.DB.QueryRow(ctx, `SELECT to_jsonb(p)::text FROM plants p WHERE p.id = $1`, id).Scan(&raw)
	if err != nil {
		return nil, notFound(err)
	}

	record := models.Record{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode plant %d: %w", id, err)
	}
	return record, nil
}
