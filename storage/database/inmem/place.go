package inmemdb

import (
	"context"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/place"
)

type placeRepository struct {
	db *DB
}

var _ place.Repository = (*placeRepository)(nil) // interface compliance check

func NewPlaceRepository(db *DB) place.Repository {
	return &placeRepository{db: db}
}

func (repo *placeRepository) CreatePlace(_ context.Context, p place.Place, _ ...core.DBExecutor) (place.Place, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p.ID = len(repo.db.places) + 1
	repo.db.places = append(repo.db.places, p)
	return p, nil
}

func (repo *placeRepository) QueryPlaces(context.Context, ...core.DBExecutor) ([]place.Place, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return append(make([]place.Place, 0, len(repo.db.places)), repo.db.places...), nil
}

func (repo *placeRepository) CountPlaces(context.Context, ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.places), nil
}
