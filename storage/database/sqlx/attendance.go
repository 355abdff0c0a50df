package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/attendance"
)

const recordTable = "student_location"

type recordRow struct {
	ID        int       `db:"id"`
	StudentID int       `db:"student_id"`
	CourseID  int       `db:"course_id"`
	Latitude  float64   `db:"latitude"`
	Longitude float64   `db:"longitude"`
	Timestamp time.Time `db:"timestamp"`
}

type attendanceRepository struct {
	exec core.DBExecutor
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) attendance.Repository {
	return &attendanceRepository{exec: exec}
}

func (repo attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	query, args, err := psql.Insert(recordTable).
		Columns("student_id", "course_id", "latitude", "longitude", `"timestamp"`).
		Values(rec.StudentID, rec.CourseID, rec.Latitude, rec.Longitude, rec.Timestamp.UTC()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, getExec(repo.exec, exec), &rec.ID, query, args...); err != nil {
		return attendance.Record{}, errors.Wrap(err, "inserting attendance record")
	}
	return rec, nil
}

func (repo attendanceRepository) QueryCourseRecords(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]attendance.Record, error) {
	query, args, err := psql.Select("id", "student_id", "course_id", "latitude", "longitude", `"timestamp"`).
		From(recordTable).
		Where(sq.Eq{"course_id": courseID}).
		OrderBy(`"timestamp"`, "id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []recordRow
	if err = sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, attendance.Record(row))
	}
	return records, nil
}

func (repo attendanceRepository) CountRecords(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	return count(ctx, getExec(repo.exec, exec), recordTable)
}
