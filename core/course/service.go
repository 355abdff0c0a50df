package course

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/user"
)

const (
	enrollmentCodeLen      = 6
	enrollmentCodeChars    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxEnrollmentCodeTries = 10
)

var (
	randIntn = rand.Intn // mockable

	// errors
	ErrNotFound              = errors.New("course not found")
	ErrCodeExists            = errors.New("Course code already exists")
	ErrAlreadyEnrolled       = errors.New("You are already enrolled in this course")
	ErrNotEnrolled           = errors.New("Student is not enrolled in this course")
	ErrEnrollmentCodeExhaust = errors.New("could not generate a unique enrollment code")

	msgCourseNotFound        = "Course not found"
	msgInvalidEnrollmentCode = "Invalid enrollment code"
	msgOnlyDoctorsCanAdd     = "Unauthorized: Only doctors can add courses"
	msgInvalidDoctorID       = "Unauthorized: Invalid doctor ID"
	msgInvalidStudentID      = "Unauthorized: Invalid student ID"
	msgNotCourseOwner        = "Unauthorized: You can only delete your own courses"
)

type (
	Repository interface {
		// CreateCourse returns ErrCodeExists when the course code is taken.
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Course, error)
		CodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error)
		EnrollmentCodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error)
		SetAttendanceOpen(ctx context.Context, id int, open bool, exec ...core.DBExecutor) error
		DeleteCourse(ctx context.Context, id int, exec ...core.DBExecutor) error
		CountCourses(ctx context.Context, exec ...core.DBExecutor) (int, error)

		// CreateEnrollment returns ErrAlreadyEnrolled when the pair exists.
		CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) error
		// DeleteEnrollment returns ErrNotEnrolled when the pair does not exist.
		DeleteEnrollment(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) error
		DeleteCourseEnrollments(ctx context.Context, courseID int, exec ...core.DBExecutor) error
		EnrollmentExists(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) (bool, error)
		QueryEnrolledStudentIDs(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]int, error)
		CountEnrollments(ctx context.Context, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewCourse) (Course, error)
		GetByID(ctx context.Context, id int) (Course, error)
		QueryByInstructor(ctx context.Context, doctorID int) ([]Course, error)
		QueryByStudent(ctx context.Context, studentID int) ([]Course, error)
		Delete(ctx context.Context, courseID, doctorID int) error
		Enroll(ctx context.Context, studentID int, enrollmentCode string) (Course, error)
		Unenroll(ctx context.Context, studentID, courseID int) error
		Students(ctx context.Context, courseID int) ([]user.User, error)
		IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error)
		Count(ctx context.Context) (int, error)
		CountEnrollments(ctx context.Context) (int, error)
	}

	service struct {
		db     core.Transactor
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(db core.Transactor, repo Repository, usrSvc user.Service) Service {
	return &service{db: db, repo: repo, usrSvc: usrSvc}
}

// getUserWithRole maps a missing user (or one with another role) to a ForbiddenError with msg.
func (svc *service) getUserWithRole(ctx context.Context, id int, role, msg string) (user.User, error) {
	usr, err := svc.usrSvc.GetWithRole(ctx, id, role)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, core.NewForbiddenError(msg)
		}
		return user.User{}, errors.Wrap(err, "finding "+role)
	}
	return usr, nil
}

func (svc *service) getCourse(ctx context.Context, filter GetFilter, notFoundMsg string, exec ...core.DBExecutor) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, filter, exec...)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Course{}, core.NewNotFoundError(notFoundMsg)
		}
		return Course{}, errors.Wrap(err, "finding course")
	}
	return crs, nil
}

func randomEnrollmentCode() string {
	b := make([]byte, enrollmentCodeLen)
	for i := range b {
		b[i] = enrollmentCodeChars[randIntn(len(enrollmentCodeChars))]
	}
	return string(b)
}

// generateEnrollmentCode draws random codes until one is unused, giving up after maxEnrollmentCodeTries.
func (svc *service) generateEnrollmentCode(ctx context.Context) (string, error) {
	for i := 0; i < maxEnrollmentCodeTries; i++ {
		code := randomEnrollmentCode()
		exists, err := svc.repo.EnrollmentCodeExists(ctx, code)
		if err != nil {
			return "", errors.Wrap(err, "checking enrollment code")
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrEnrollmentCodeExhaust
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if _, err := svc.getUserWithRole(ctx, nc.DoctorID.Int(), user.RoleDoctor, msgOnlyDoctorsCanAdd); err != nil {
		return Course{}, err
	}

	exists, err := svc.repo.CodeExists(ctx, nc.Code)
	if err != nil {
		return Course{}, errors.Wrap(err, "checking course code")
	}
	if exists {
		return Course{}, core.NewValidationError(ErrCodeExists)
	}

	code, err := svc.generateEnrollmentCode(ctx)
	if err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs, err := svc.repo.CreateCourse(ctx, Course{
		Code:           nc.Code,
		Name:           nc.Name,
		Description:    nc.Description,
		InstructorID:   nc.DoctorID.Int(),
		EnrollmentCode: code,
		Day:            nc.Day,
		Time:           nc.Time,
		Location:       nc.Location,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return Course{}, core.NewValidationError(ErrCodeExists)
		}
		return Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (svc *service) GetByID(ctx context.Context, id int) (Course, error) {
	return svc.getCourse(ctx, GetFilter{ID: id}, msgCourseNotFound)
}

func (svc *service) QueryByInstructor(ctx context.Context, doctorID int) ([]Course, error) {
	if _, err := svc.getUserWithRole(ctx, doctorID, user.RoleDoctor, msgInvalidDoctorID); err != nil {
		return nil, err
	}
	return svc.repo.QueryCourses(ctx, QueryFilter{InstructorID: doctorID})
}

func (svc *service) QueryByStudent(ctx context.Context, studentID int) ([]Course, error) {
	if _, err := svc.getUserWithRole(ctx, studentID, user.RoleStudent, msgInvalidStudentID); err != nil {
		return nil, err
	}
	return svc.repo.QueryCourses(ctx, QueryFilter{StudentID: studentID})
}

// Delete removes the course and its enrollments in a single transaction.
func (svc *service) Delete(ctx context.Context, courseID, doctorID int) error {
	crs, err := svc.getCourse(ctx, GetFilter{ID: courseID}, msgCourseNotFound)
	if err != nil {
		return err
	}
	if crs.InstructorID != doctorID {
		return core.NewForbiddenError(msgNotCourseOwner)
	}

	tx, err := svc.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	exec := core.TxExecutor(tx)
	if err = svc.repo.DeleteCourseEnrollments(ctx, crs.ID, exec...); err != nil {
		return errors.Wrap(err, "deleting course enrollments")
	}
	if err = svc.repo.DeleteCourse(ctx, crs.ID, exec...); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (svc *service) Enroll(ctx context.Context, studentID int, enrollmentCode string) (Course, error) {
	if _, err := svc.getUserWithRole(ctx, studentID, user.RoleStudent, msgInvalidStudentID); err != nil {
		return Course{}, err
	}
	crs, err := svc.getCourse(ctx, GetFilter{EnrollmentCode: enrollmentCode}, msgInvalidEnrollmentCode)
	if err != nil {
		return Course{}, err
	}

	err = svc.repo.CreateEnrollment(ctx, Enrollment{StudentID: studentID, CourseID: crs.ID, CreatedAt: time.Now().UTC()})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return Course{}, core.NewValidationError(ErrAlreadyEnrolled)
		}
		return Course{}, errors.Wrap(err, "creating enrollment")
	}
	// re-read for the updated students count
	return svc.GetByID(ctx, crs.ID)
}

func (svc *service) Unenroll(ctx context.Context, studentID, courseID int) error {
	if _, err := svc.getUserWithRole(ctx, studentID, user.RoleStudent, msgInvalidStudentID); err != nil {
		return err
	}
	if err := svc.repo.DeleteEnrollment(ctx, studentID, courseID); err != nil {
		if errors.Cause(err) == ErrNotEnrolled {
			return core.NewNotFoundError(ErrNotEnrolled.Error())
		}
		return errors.Wrap(err, "deleting enrollment")
	}
	return nil
}

func (svc *service) Students(ctx context.Context, courseID int) ([]user.User, error) {
	if _, err := svc.GetByID(ctx, courseID); err != nil {
		return nil, err
	}
	ids, err := svc.repo.QueryEnrolledStudentIDs(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}
	return svc.usrSvc.QueryByID(ctx, ids...)
}

func (svc *service) IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error) {
	return svc.repo.EnrollmentExists(ctx, studentID, courseID)
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountCourses(ctx)
}

func (svc *service) CountEnrollments(ctx context.Context) (int, error) {
	return svc.repo.CountEnrollments(ctx)
}
