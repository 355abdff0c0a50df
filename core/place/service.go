// Package place manages the named campus locations clients pick course locations from.
package place

import (
	"context"

	"github.com/pkg/errors"

	"github.com/locateme/backend/core"
)

type (
	Repository interface {
		CreatePlace(ctx context.Context, p Place, exec ...core.DBExecutor) (Place, error)
		// QueryPlaces returns every place ordered by ID.
		QueryPlaces(ctx context.Context, exec ...core.DBExecutor) ([]Place, error)
		CountPlaces(ctx context.Context, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Create(ctx context.Context, np NewPlace) (Place, error)
		List(ctx context.Context) ([]Place, error)
		Count(ctx context.Context) (int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, np NewPlace) (Place, error) {
	np.Clean()
	p, err := svc.repo.CreatePlace(ctx, Place{Name: np.Name, Location: np.Location})
	if err != nil {
		return Place{}, errors.Wrap(err, "creating place")
	}
	return p, nil
}

func (svc *service) List(ctx context.Context) ([]Place, error) {
	places, err := svc.repo.QueryPlaces(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying places")
	}
	return places, nil
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountPlaces(ctx)
}
