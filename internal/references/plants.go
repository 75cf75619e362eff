package references

import (
	"context"
	"errors"
	"strconv"

	"treelof-api/internal/models"
	"treelof-api/internal/repositories"
)

const Plants = "plants"

type plantRecordLoader interface {
	GetRecord(ctx context.Context, id int64) (models.Record, error)
}

// PlantResolver resolves reference "plants". Ids that are not integers can
// never match a row and are reported as not found.
type PlantResolver struct {
	repo plantRecordLoader
}

func NewPlantResolver(repo plantRecordLoader) *PlantResolver {
	return &PlantResolver{repo: repo}
}

func (p *PlantResolver) Resolve(ctx context.Context, id string) (models.Record, error) {
	plantID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, ErrEntityNotFound
	}

	record, err := p.repo.GetRecord(ctx, plantID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrEntityNotFound
	}
	return record, err
}
