package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/place"
)

const placeTable = "location"

type placeRow struct {
	ID       int    `db:"id"`
	Name     string `db:"name"`
	Location string `db:"location"`
}

type placeRepository struct {
	exec core.DBExecutor
}

var _ place.Repository = (*placeRepository)(nil) // interface compliance check

func NewPlaceRepository(exec core.DBExecutor) place.Repository {
	return &placeRepository{exec: exec}
}

func (repo placeRepository) CreatePlace(ctx context.Context, p place.Place, exec ...core.DBExecutor) (place.Place, error) {
	query, args, err := psql.Insert(placeTable).
		Columns("name", "location").
		Values(p.Name, p.Location).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return place.Place{}, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, getExec(repo.exec, exec), &p.ID, query, args...); err != nil {
		return place.Place{}, errors.Wrap(err, "inserting place")
	}
	return p, nil
}

func (repo placeRepository) QueryPlaces(ctx context.Context, exec ...core.DBExecutor) ([]place.Place, error) {
	query, args, err := psql.Select("id", "name", "location").From(placeTable).OrderBy("id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []placeRow
	if err = sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying places")
	}
	places := make([]place.Place, 0, len(rows))
	for _, row := range rows {
		places = append(places, place.Place(row))
	}
	return places, nil
}

func (repo placeRepository) CountPlaces(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	return count(ctx, getExec(repo.exec, exec), placeTable)
}
