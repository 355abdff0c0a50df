package attendance

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/course"
	"github.com/locateme/backend/core/geo"
	"github.com/locateme/backend/core/user"
)

var (
	distanceFunc = geo.Distance // mockable

	// errors
	ErrStateNotVerified = errors.New("Failed to verify state change")

	msgInvalidStudentLocation = "Invalid student location format"
	msgMissingStudentID       = "Missing required field: student_id"
	msgCourseNotFound         = "Course not found"
	msgWindowClosed           = "Attendance window is closed"
	msgNotEnrolled            = "Student is not enrolled in this course"
	msgRecorded               = "Attendance recorded successfully"
	msgTooFar                 = "Too far from class location (%.1fm)"

	reportTemplate = "attendance_report"
)

type (
	Repository interface {
		CreateRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		QueryCourseRecords(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]Record, error)
		CountRecords(ctx context.Context, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		// VerifyLocation records attendance when the student is within range of the course location.
		VerifyLocation(ctx context.Context, lc LocationCheck) (Result, error)
		// SetAttendanceOpen sets the course's attendance window and confirms the write by re-reading it.
		SetAttendanceOpen(ctx context.Context, courseID int, open bool) (bool, error)
		// SendReport emails the course's attendance records to its instructor.
		SendReport(ctx context.Context, courseID int) (int, error)
		Count(ctx context.Context) (int, error)
	}

	Deps struct {
		DB         core.Transactor
		Repo       Repository
		CourseRepo course.Repository
		UserSvc    user.Service
		MailSvc    core.EmailService
		Logger     core.Logger
		AppName    string // rendered into emails
	}

	service struct {
		Deps
		conf  core.AttendanceConfig
		timer backoff.Timer // nil waits with a real time.Timer
	}
)

var _ Service = (*service)(nil)

func NewService(deps Deps, conf core.AttendanceConfig) Service {
	return &service{Deps: deps, conf: conf}
}

func (svc *service) notFound(err error, msg string) error {
	if errors.Cause(err) == course.ErrNotFound {
		return core.NewNotFoundError(msg)
	}
	return errors.Wrap(err, "finding course")
}

func (svc *service) VerifyLocation(ctx context.Context, lc LocationCheck) (Result, error) {
	lat, err := geo.ParseDegrees(lc.Latitude)
	if err != nil {
		return Result{}, core.NewValidationError(errors.New(msgInvalidStudentLocation))
	}
	lon, err := geo.ParseDegrees(lc.Longitude)
	if err != nil {
		return Result{}, core.NewValidationError(errors.New(msgInvalidStudentLocation))
	}
	if lc.StudentID <= 0 {
		return Result{}, core.NewValidationError(errors.New(msgMissingStudentID))
	}

	crs, err := svc.CourseRepo.GetCourse(ctx, course.GetFilter{ID: lc.CourseID.Int()})
	if err != nil {
		return Result{}, svc.notFound(err, msgCourseNotFound)
	}

	if svc.conf.EnforceWindow && !crs.IsAttendanceOpen {
		return Result{}, core.NewForbiddenError(msgWindowClosed)
	}
	if svc.conf.RequireEnrollment {
		enrolled, err := svc.CourseRepo.EnrollmentExists(ctx, lc.StudentID.Int(), crs.ID)
		if err != nil {
			return Result{}, errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return Result{}, core.NewForbiddenError(msgNotEnrolled)
		}
	}

	classLoc, err := geo.ParseLocation(crs.Location)
	if err != nil {
		return Result{}, core.NewValidationError(err)
	}

	distance := distanceFunc(geo.Point{Lat: lat, Lon: lon}, classLoc)
	svc.Logger.Debug(fmt.Sprintf("Calculated distance: %fm", distance))

	if distance > svc.conf.MaxDistance {
		return Result{Success: false, Message: fmt.Sprintf(msgTooFar, distance), Distance: distance}, nil
	}

	rec := Record{
		StudentID: lc.StudentID.Int(),
		CourseID:  crs.ID,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: time.Now().UTC(),
	}
	if err = svc.record(ctx, rec); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: msgRecorded, Distance: distance}, nil
}

// record persists rec in its own transaction; nothing is left behind on failure.
func (svc *service) record(ctx context.Context, rec Record) error {
	tx, err := svc.DB.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = svc.Repo.CreateRecord(ctx, rec, core.TxExecutor(tx)...); err != nil {
		return errors.Wrap(err, "creating attendance record")
	}
	return errors.Wrap(tx.Commit(), "committing attendance record")
}

func (svc *service) SetAttendanceOpen(ctx context.Context, courseID int, open bool) (bool, error) {
	maxAttempts := svc.conf.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	err := svc.conf.Retry.Run(
		ctx,
		func(int) error {
			err := svc.setAttendanceOpen(ctx, courseID, open)
			if errors.Cause(err) == course.ErrNotFound {
				return backoff.Permanent(core.NewNotFoundError(msgCourseNotFound))
			}
			return err
		},
		svc.timer,
		func(err error, attempt int, wait time.Duration) {
			svc.Logger.Warn(fmt.Sprintf("Retry %d/%d after error: %v", attempt, maxAttempts, err))
		},
	)
	if err != nil {
		if _, ok := err.(*core.NotFoundError); ok {
			return false, err
		}
		svc.Logger.Error(fmt.Sprintf("Failed after %d attempts: %v", maxAttempts, err), err)
		return false, errors.Wrap(err, "updating attendance state")
	}
	return open, nil
}

// setAttendanceOpen is a single commit-then-verify attempt.
func (svc *service) setAttendanceOpen(ctx context.Context, courseID int, open bool) error {
	tx, err := svc.DB.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	exec := core.TxExecutor(tx)
	crs, err := svc.CourseRepo.GetCourse(ctx, course.GetFilter{ID: courseID, ForUpdate: true}, exec...)
	if err != nil {
		return err
	}
	if err = svc.CourseRepo.SetAttendanceOpen(ctx, crs.ID, open, exec...); err != nil {
		return errors.Wrap(err, "setting attendance state")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing attendance state")
	}

	// verify outside of the transaction
	crs, err = svc.CourseRepo.GetCourse(ctx, course.GetFilter{ID: courseID})
	if err != nil {
		return errors.Wrap(err, "re-reading course")
	}
	if crs.IsAttendanceOpen != open {
		return ErrStateNotVerified
	}
	return nil
}

func (svc *service) SendReport(ctx context.Context, courseID int) (int, error) {
	crs, err := svc.CourseRepo.GetCourse(ctx, course.GetFilter{ID: courseID})
	if err != nil {
		return 0, svc.notFound(err, msgCourseNotFound)
	}
	instructor, err := svc.UserSvc.GetByID(ctx, crs.InstructorID)
	if err != nil {
		return 0, errors.Wrap(err, "finding instructor")
	}
	records, err := svc.Repo.QueryCourseRecords(ctx, crs.ID)
	if err != nil {
		return 0, errors.Wrap(err, "querying attendance records")
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: instructor.Name, Address: instructor.Email}},
		Subject:      fmt.Sprintf("Attendance report: %s - %s", crs.Code, crs.Name),
		TemplateName: reportTemplate,
		TemplateData: reportData{Instructor: instructor, Course: crs, Records: records},
	}
	// render now: senders run in the background and only log failures
	if err = msg.Render(svc.AppName); err != nil {
		return 0, errors.Wrap(err, "rendering attendance report")
	}
	svc.MailSvc.SendMessages(msg)
	return len(records), nil
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.Repo.CountRecords(ctx)
}
