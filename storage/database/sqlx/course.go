package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/course"
)

const (
	courseTable     = "course"
	enrollmentTable = "student_course"

	courseCodeKey = "course_code_key"
)

var courseColumns = []string{
	"c.id", "c.code", "c.name", "c.description", "c.instructor_id", "c.enrollment_code",
	"c.day", `c."time"`, "c.location", "c.is_attendance_open", "c.created_at", "c.updated_at",
	"(SELECT COUNT(*) FROM student_course sc WHERE sc.course_id = c.id) AS students",
}

type courseRow struct {
	ID               int         `db:"id"`
	Code             string      `db:"code"`
	Name             string      `db:"name"`
	Description      null.String `db:"description"`
	InstructorID     int         `db:"instructor_id"`
	EnrollmentCode   string      `db:"enrollment_code"`
	Day              null.String `db:"day"`
	Time             null.String `db:"time"`
	Location         null.String `db:"location"`
	IsAttendanceOpen bool        `db:"is_attendance_open"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
	Students         int         `db:"students"`
}

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) course.Repository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) toRow(crs course.Course) courseRow {
	return courseRow{
		ID:               crs.ID,
		Code:             crs.Code,
		Name:             crs.Name,
		Description:      null.NewString(crs.Description, crs.Description != ""),
		InstructorID:     crs.InstructorID,
		EnrollmentCode:   crs.EnrollmentCode,
		Day:              null.NewString(crs.Day, crs.Day != ""),
		Time:             null.NewString(crs.Time, crs.Time != ""),
		Location:         null.NewString(crs.Location, crs.Location != ""),
		IsAttendanceOpen: crs.IsAttendanceOpen,
		CreatedAt:        crs.CreatedAt.UTC(),
		UpdatedAt:        crs.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) fromRow(row courseRow) course.Course {
	return course.Course{
		ID:               row.ID,
		Code:             row.Code,
		Name:             row.Name,
		Description:      row.Description.String,
		InstructorID:     row.InstructorID,
		Students:         row.Students,
		EnrollmentCode:   row.EnrollmentCode,
		Day:              row.Day.String,
		Time:             row.Time.String,
		Location:         row.Location.String,
		IsAttendanceOpen: row.IsAttendanceOpen,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func (repo courseRepository) exists(ctx context.Context, exec core.DBExecutor, table string, where sq.Sqlizer) (bool, error) {
	query, args, err := psql.Select("1").From(table).Where(where).
		Prefix("SELECT EXISTS (").Suffix(")").
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}
	var found bool
	if err = sqlx.GetContext(ctx, exec, &found, query, args...); err != nil {
		return false, errors.Wrap(err, "checking "+table)
	}
	return found, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	row := repo.toRow(crs)
	query, args, err := psql.Insert(courseTable).
		Columns(
			"code", "name", "description", "instructor_id", "enrollment_code",
			"day", `"time"`, "location", "is_attendance_open", "created_at", "updated_at").
		Values(
			row.Code, row.Name, row.Description, row.InstructorID, row.EnrollmentCode,
			row.Day, row.Time, row.Location, row.IsAttendanceOpen, row.CreatedAt, row.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}

	if err = sqlx.GetContext(ctx, getExec(repo.exec, exec), &row.ID, query, args...); err != nil {
		if isUniqueViolation(err, courseCodeKey) {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.fromRow(row), nil
}

func (repo courseRepository) GetCourse(ctx context.Context, filter course.GetFilter, exec ...core.DBExecutor) (course.Course, error) {
	qb := psql.Select(courseColumns...).From(courseTable + " c")
	switch {
	case filter.ID != 0:
		qb = qb.Where(sq.Eq{"c.id": filter.ID})
	case filter.EnrollmentCode != "":
		qb = qb.Where(sq.Eq{"c.enrollment_code": filter.EnrollmentCode})
	default:
		return course.Course{}, course.ErrNotFound
	}
	if filter.ForUpdate {
		qb = qb.Suffix("FOR UPDATE OF c")
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}

	var row courseRow
	if err = sqlx.GetContext(ctx, getExec(repo.exec, exec), &row, query, args...); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return repo.fromRow(row), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, exec ...core.DBExecutor) ([]course.Course, error) {
	qb := psql.Select(courseColumns...).From(courseTable + " c").OrderBy("c.id")
	if filter.InstructorID != 0 {
		qb = qb.Where(sq.Eq{"c.instructor_id": filter.InstructorID})
	}
	if filter.StudentID != 0 {
		qb = qb.Where("c.id IN (SELECT course_id FROM student_course WHERE student_id = ?)", filter.StudentID)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []courseRow
	if err = sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.fromRow(row))
	}
	return courses, nil
}

func (repo courseRepository) CodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error) {
	return repo.exists(ctx, getExec(repo.exec, exec), courseTable, sq.Eq{"code": code})
}

func (repo courseRepository) EnrollmentCodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error) {
	return repo.exists(ctx, getExec(repo.exec, exec), courseTable, sq.Eq{"enrollment_code": code})
}

func (repo courseRepository) SetAttendanceOpen(ctx context.Context, id int, open bool, exec ...core.DBExecutor) error {
	query, args, err := psql.Update(courseTable).
		Set("is_attendance_open", open).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := getExec(repo.exec, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id int, exec ...core.DBExecutor) error {
	query, args, err := psql.Delete(courseTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := getExec(repo.exec, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo courseRepository) CountCourses(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	return count(ctx, getExec(repo.exec, exec), courseTable)
}

func (repo courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment, exec ...core.DBExecutor) error {
	query, args, err := psql.Insert(enrollmentTable).
		Columns("student_id", "course_id", "created_at").
		Values(enr.StudentID, enr.CourseID, enr.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = getExec(repo.exec, exec).ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return course.ErrAlreadyEnrolled
		}
		return errors.Wrap(err, "inserting enrollment")
	}
	return nil
}

func (repo courseRepository) DeleteEnrollment(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) error {
	query, args, err := psql.Delete(enrollmentTable).
		Where(sq.Eq{"student_id": studentID, "course_id": courseID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := getExec(repo.exec, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotEnrolled
	}
	return nil
}

func (repo courseRepository) DeleteCourseEnrollments(ctx context.Context, courseID int, exec ...core.DBExecutor) error {
	query, args, err := psql.Delete(enrollmentTable).Where(sq.Eq{"course_id": courseID}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = getExec(repo.exec, exec).ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting course enrollments")
	}
	return nil
}

func (repo courseRepository) EnrollmentExists(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) (bool, error) {
	return repo.exists(ctx, getExec(repo.exec, exec), enrollmentTable, sq.Eq{"student_id": studentID, "course_id": courseID})
}

func (repo courseRepository) QueryEnrolledStudentIDs(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]int, error) {
	query, args, err := psql.Select("student_id").From(enrollmentTable).
		Where(sq.Eq{"course_id": courseID}).
		OrderBy("student_id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	ids := make([]int, 0)
	if err = sqlx.SelectContext(ctx, getExec(repo.exec, exec), &ids, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}
	return ids, nil
}

func (repo courseRepository) CountEnrollments(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	return count(ctx, getExec(repo.exec, exec), enrollmentTable)
}
