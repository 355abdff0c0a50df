package attendance_test

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/attendance"
	"github.com/locateme/backend/core/course"
	"github.com/locateme/backend/core/geo"
	"github.com/locateme/backend/core/user"
	emailsvc "github.com/locateme/backend/services/email"
	inmemdb "github.com/locateme/backend/storage/database/inmem"
	"github.com/locateme/backend/testutil"
)

const classLocation = "30.0444,31.2357"

type fakeTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{c: make(chan time.Time, 1)}
}

func (t *fakeTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c <- time.Now()
}

func (t *fakeTimer) Stop()               {}
func (t *fakeTimer) C() <-chan time.Time { return t.c }

// flakyCourseRepo fails the first `failures` SetAttendanceOpen calls.
// A dropWrites repo acknowledges writes without applying them.
type flakyCourseRepo struct {
	course.Repository
	failures   int
	dropWrites bool
	calls      int
}

func (repo *flakyCourseRepo) SetAttendanceOpen(ctx context.Context, id int, open bool, exec ...core.DBExecutor) error {
	repo.calls++
	if repo.calls <= repo.failures {
		return errors.New("connection reset by peer")
	}
	if repo.dropWrites {
		return nil
	}
	return repo.Repository.SetAttendanceOpen(ctx, id, open, exec...)
}

type failingRecordRepo struct {
	attendance.Repository
}

func (failingRecordRepo) CreateRecord(context.Context, attendance.Record, ...core.DBExecutor) (attendance.Record, error) {
	return attendance.Record{}, errors.New("disk full")
}

// recordingDB keeps the transactions it began.
type recordingDB struct {
	*inmemdb.DB
	txs []*inmemdb.Tx
}

func (db *recordingDB) Begin(ctx context.Context) (core.Tx, error) {
	tx, err := db.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	db.txs = append(db.txs, tx.(*inmemdb.Tx))
	return tx, nil
}

type fixture struct {
	db         *recordingDB
	courseRepo *flakyCourseRepo
	recordRepo attendance.Repository
	usrSvc     user.Service
	logger     *testutil.Logger
	timer      *fakeTimer
	conf       core.AttendanceConfig

	doctor  user.User
	student user.User
	course  course.Course
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := inmemdb.New()
	usrRepo := inmemdb.NewUserRepository(db)
	f := &fixture{
		db:         &recordingDB{DB: db},
		courseRepo: &flakyCourseRepo{Repository: inmemdb.NewCourseRepository(db)},
		recordRepo: inmemdb.NewAttendanceRepository(db),
		usrSvc:     user.NewService(usrRepo),
		logger:     new(testutil.Logger),
		timer:      newFakeTimer(),
		conf: core.AttendanceConfig{
			MaxDistance: 30,
			Retry:       core.DefaultRetryPolicy(),
		},
	}
	f.doctor = testutil.CreateUser(t, usrRepo, "Dr Doc", "doc@test.eg", "D-001", user.RoleDoctor, "")
	f.student = testutil.CreateUser(t, usrRepo, "Stu", "stu@test.eg", "S-001", user.RoleStudent, "")
	f.course = testutil.CreateCourse(t, f.courseRepo, f.doctor.ID, "CS101", classLocation)
	emailsvc.ResetSentMessages()
	return f
}

func (f *fixture) service() attendance.Service {
	conf := &core.Config{AppName: "LocateMe", DefaultFromEmail: mail.Address{Name: "LocateMe", Address: "noreply@test.eg"}}
	deps := attendance.Deps{
		DB:         f.db,
		Repo:       f.recordRepo,
		CourseRepo: f.courseRepo,
		UserSvc:    f.usrSvc,
		MailSvc:    emailsvc.NewConsoleServiceMock(conf, f.logger),
		Logger:     f.logger,
		AppName:    conf.AppName,
	}
	return attendance.NewServiceMock(deps, f.conf, f.timer)
}

func (f *fixture) records(t *testing.T) []attendance.Record {
	t.Helper()
	records, err := f.recordRepo.QueryCourseRecords(context.Background(), f.course.ID)
	require.NoError(t, err)
	return records
}

func TestService_VerifyLocationDistance(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     attendance.Result
	}{
		{
			name: "on the spot", distance: 0,
			want: attendance.Result{Success: true, Message: "Attendance recorded successfully", Distance: 0},
		},
		{
			name: "exactly at the radius", distance: 30.0,
			want: attendance.Result{Success: true, Message: "Attendance recorded successfully", Distance: 30.0},
		},
		{
			name: "just beyond the radius", distance: 30.0001,
			want: attendance.Result{Success: false, Message: "Too far from class location (30.0m)", Distance: 30.0001},
		},
		{
			name: "far away", distance: 1234.56,
			want: attendance.Result{Success: false, Message: "Too far from class location (1234.6m)", Distance: 1234.56},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			restore := attendance.SetDistanceFunc(func(a, b geo.Point) float64 {
				assert.Equal(t, geo.Point{Lat: 30.0445, Lon: 31.2358}, a)
				assert.Equal(t, geo.Point{Lat: 30.0444, Lon: 31.2357}, b)
				return tt.distance
			})
			defer restore()

			got, err := f.service().VerifyLocation(context.Background(), attendance.LocationCheck{
				Latitude:  30.0445,
				Longitude: "31.2358",
				StudentID: core.ID(f.student.ID),
				CourseID:  core.ID(f.course.ID),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			records := f.records(t)
			if !tt.want.Success {
				assert.Empty(t, records)
				return
			}
			require.Len(t, records, 1)
			assert.Equal(t, f.student.ID, records[0].StudentID)
			assert.Equal(t, f.course.ID, records[0].CourseID)
			assert.Equal(t, 30.0445, records[0].Latitude)
			assert.Equal(t, 31.2358, records[0].Longitude)
			assert.Equal(t, time.UTC, records[0].Timestamp.Location())
			require.Len(t, f.db.txs, 1)
			assert.True(t, f.db.txs[0].Committed())
		})
	}
}

func TestService_VerifyLocationRealDistance(t *testing.T) {
	f := setup(t)
	svc := f.service()

	// ~11 m north of the class
	got, err := svc.VerifyLocation(context.Background(), attendance.LocationCheck{
		Latitude: 30.0445, Longitude: 31.2357, StudentID: core.ID(f.student.ID), CourseID: core.ID(f.course.ID),
	})
	require.NoError(t, err)
	assert.True(t, got.Success)
	assert.InDelta(t, 11.1, got.Distance, 0.1)

	// ~111 m north of the class
	got, err = svc.VerifyLocation(context.Background(), attendance.LocationCheck{
		Latitude: 30.0454, Longitude: 31.2357, StudentID: core.ID(f.student.ID), CourseID: core.ID(f.course.ID),
	})
	require.NoError(t, err)
	assert.False(t, got.Success)
	assert.InDelta(t, 111.2, got.Distance, 0.1)

	assert.Len(t, f.records(t), 1)
	assert.NotEmpty(t, f.logger.Messages("debug"))
}

func TestService_VerifyLocationErrors(t *testing.T) {
	f := setup(t)
	noLocation := testutil.CreateCourse(t, f.courseRepo, f.doctor.ID, "CS102", "")
	badLocation := testutil.CreateCourse(t, f.courseRepo, f.doctor.ID, "CS103", "30.1,north")

	check := func(lat, lon interface{}, courseID int) attendance.LocationCheck {
		return attendance.LocationCheck{Latitude: lat, Longitude: lon, StudentID: core.ID(f.student.ID), CourseID: core.ID(courseID)}
	}

	tests := []struct {
		name    string
		lc      attendance.LocationCheck
		wantErr error
	}{
		{name: "missing latitude", lc: check(nil, 31.2, f.course.ID), wantErr: core.NewValidationError(errors.New("Invalid student location format"))},
		{name: "non numeric longitude", lc: check(30.1, "east", f.course.ID), wantErr: core.NewValidationError(errors.New("Invalid student location format"))},
		{name: "boolean latitude", lc: check(true, 31.2, f.course.ID), wantErr: core.NewValidationError(errors.New("Invalid student location format"))},
		{
			name:    "missing student",
			lc:      attendance.LocationCheck{Latitude: 30.1, Longitude: 31.2, CourseID: core.ID(f.course.ID)},
			wantErr: core.NewValidationError(errors.New("Missing required field: student_id")),
		},
		{name: "unknown course", lc: check(30.1, 31.2, 999), wantErr: core.NewNotFoundError("Course not found")},
		{name: "course without location", lc: check(30.1, 31.2, noLocation.ID), wantErr: core.NewValidationError(geo.ErrLocationNotSet)},
		{
			name:    "course with malformed location",
			lc:      check(30.1, 31.2, badLocation.ID),
			wantErr: core.NewValidationError(&geo.FormatError{Token: "north"}),
		},
	}
	svc := f.service()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyLocation(context.Background(), tt.lc)
			require.Error(t, err)
			cause := errors.Cause(err)
			assert.IsType(t, tt.wantErr, cause)
			assert.Equal(t, tt.wantErr.Error(), cause.Error())
		})
	}

	n, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_VerifyLocationRollback(t *testing.T) {
	f := setup(t)
	f.recordRepo = failingRecordRepo{Repository: f.recordRepo}

	_, err := f.service().VerifyLocation(context.Background(), attendance.LocationCheck{
		Latitude: 30.0444, Longitude: 31.2357, StudentID: core.ID(f.student.ID), CourseID: core.ID(f.course.ID),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	require.Len(t, f.db.txs, 1)
	assert.False(t, f.db.txs[0].Committed())
	assert.Empty(t, f.records(t))
}

func TestService_VerifyLocationOptInChecks(t *testing.T) {
	other := "other@test.eg"

	tests := []struct {
		name    string
		conf    func(c *core.AttendanceConfig)
		prepare func(t *testing.T, f *fixture) int // returns the student ID
		wantErr error
	}{
		{
			name: "closed window is ignored by default",
			conf: func(*core.AttendanceConfig) {},
			prepare: func(t *testing.T, f *fixture) int {
				return f.student.ID
			},
		},
		{
			name: "closed window",
			conf: func(c *core.AttendanceConfig) { c.EnforceWindow = true },
			prepare: func(t *testing.T, f *fixture) int {
				return f.student.ID
			},
			wantErr: core.NewForbiddenError("Attendance window is closed"),
		},
		{
			name: "open window",
			conf: func(c *core.AttendanceConfig) { c.EnforceWindow = true },
			prepare: func(t *testing.T, f *fixture) int {
				require.NoError(t, f.courseRepo.SetAttendanceOpen(context.Background(), f.course.ID, true))
				return f.student.ID
			},
		},
		{
			name: "not enrolled",
			conf: func(c *core.AttendanceConfig) { c.RequireEnrollment = true },
			prepare: func(t *testing.T, f *fixture) int {
				usrRepo := inmemdb.NewUserRepository(f.db.DB)
				return testutil.CreateUser(t, usrRepo, "Other", other, "S-002", user.RoleStudent, "").ID
			},
			wantErr: core.NewForbiddenError("Student is not enrolled in this course"),
		},
		{
			name: "enrolled",
			conf: func(c *core.AttendanceConfig) { c.RequireEnrollment = true },
			prepare: func(t *testing.T, f *fixture) int {
				testutil.Enroll(t, f.courseRepo, f.student.ID, f.course.ID)
				return f.student.ID
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			tt.conf(&f.conf)
			studentID := tt.prepare(t, f)

			got, err := f.service().VerifyLocation(context.Background(), attendance.LocationCheck{
				Latitude: 30.0444, Longitude: 31.2357, StudentID: core.ID(studentID), CourseID: core.ID(f.course.ID),
			})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.IsType(t, tt.wantErr, errors.Cause(err))
				assert.Equal(t, tt.wantErr.Error(), err.Error())
				assert.Empty(t, f.records(t))
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Success)
			assert.Len(t, f.records(t), 1)
		})
	}
}

func TestService_SetAttendanceOpen(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	svc := f.service()

	open, err := svc.SetAttendanceOpen(ctx, f.course.ID, true)
	require.NoError(t, err)
	assert.True(t, open)

	// idempotent
	open, err = svc.SetAttendanceOpen(ctx, f.course.ID, true)
	require.NoError(t, err)
	assert.True(t, open)

	crs, err := f.courseRepo.GetCourse(ctx, course.GetFilter{ID: f.course.ID})
	require.NoError(t, err)
	assert.True(t, crs.IsAttendanceOpen)

	open, err = svc.SetAttendanceOpen(ctx, f.course.ID, false)
	require.NoError(t, err)
	assert.False(t, open)

	crs, err = f.courseRepo.GetCourse(ctx, course.GetFilter{ID: f.course.ID})
	require.NoError(t, err)
	assert.False(t, crs.IsAttendanceOpen)

	assert.Empty(t, f.timer.waits)
	assert.Empty(t, f.logger.Messages("warn"))
	for _, tx := range f.db.txs {
		assert.True(t, tx.Committed())
	}
}

func TestService_SetAttendanceOpenNotFound(t *testing.T) {
	f := setup(t)

	_, err := f.service().SetAttendanceOpen(context.Background(), 999, true)
	require.Error(t, err)
	assert.IsType(t, &core.NotFoundError{}, errors.Cause(err))
	assert.Equal(t, "Course not found", err.Error())

	assert.Empty(t, f.timer.waits)
	assert.Empty(t, f.logger.Messages("warn"))
	assert.Empty(t, f.logger.Messages("error"))
}

func TestService_SetAttendanceOpenRetries(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		dropWrites bool
		wantErr    string
		wantCalls  int
		wantWaits  int
	}{
		{name: "recovers on third attempt", failures: 2, wantCalls: 3, wantWaits: 2},
		{name: "recovers on last attempt", failures: 4, wantCalls: 5, wantWaits: 4},
		{name: "write keeps failing", failures: 10, wantErr: "connection reset by peer", wantCalls: 5, wantWaits: 4},
		{name: "write never lands", dropWrites: true, wantErr: attendance.ErrStateNotVerified.Error(), wantCalls: 5, wantWaits: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := setup(t)
			f.courseRepo.failures = tt.failures
			f.courseRepo.dropWrites = tt.dropWrites

			open, err := f.service().SetAttendanceOpen(ctx, f.course.ID, true)
			assert.Equal(t, tt.wantCalls, f.courseRepo.calls)

			wantWaits := make([]time.Duration, tt.wantWaits)
			for i := range wantWaits {
				wantWaits[i] = time.Second
			}
			assert.Equal(t, wantWaits, f.timer.waits)

			warns := f.logger.Messages("warn")
			require.Len(t, warns, tt.wantWaits)
			for i, msg := range warns {
				assert.True(t, strings.HasPrefix(msg, fmt.Sprintf("Retry %d/5 after error: ", i+1)), msg)
			}

			crs, gerr := f.courseRepo.GetCourse(ctx, course.GetFilter{ID: f.course.ID})
			require.NoError(t, gerr)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.False(t, open)
				assert.False(t, crs.IsAttendanceOpen)
				errs := f.logger.Messages("error")
				require.Len(t, errs, 1)
				assert.True(t, strings.HasPrefix(errs[0], "Failed after 5 attempts: "), errs[0])
				return
			}
			require.NoError(t, err)
			assert.True(t, open)
			assert.True(t, crs.IsAttendanceOpen)
			assert.Empty(t, f.logger.Messages("error"))
		})
	}
}

func TestService_SetAttendanceOpenCanceled(t *testing.T) {
	f := setup(t)
	f.courseRepo.failures = 10

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service().SetAttendanceOpen(ctx, f.course.ID, true)
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))
}

func TestService_SendReport(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	svc := f.service()

	_, err := svc.SendReport(ctx, 999)
	assert.IsType(t, &core.NotFoundError{}, errors.Cause(err))
	assert.Empty(t, emailsvc.SentMessages())

	for _, lat := range []float64{30.0444, 30.0445} {
		_, err = svc.VerifyLocation(ctx, attendance.LocationCheck{
			Latitude: lat, Longitude: 31.2357, StudentID: core.ID(f.student.ID), CourseID: core.ID(f.course.ID),
		})
		require.NoError(t, err)
	}

	n, err := svc.SendReport(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, []mail.Address{{Name: f.doctor.Name, Address: f.doctor.Email}}, msg.To)
	assert.Equal(t, "Attendance report: CS101 - Course CS101", msg.Subject)
	assert.Contains(t, msg.TextContent, "Hello Dr Doc,")
	assert.Contains(t, msg.TextContent, "2 check-in(s)")
	assert.Contains(t, msg.TextContent, fmt.Sprintf("- student #%d at ", f.student.ID))
	assert.Contains(t, msg.HTMLContent, "<strong>CS101 - Course CS101</strong>")
	assert.Empty(t, f.logger.Messages("error"))
}

func TestService_SendReportNoRecords(t *testing.T) {
	f := setup(t)

	n, err := f.service().SendReport(context.Background(), f.course.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "0 check-in(s)")
}

func TestService_SendReportRenderError(t *testing.T) {
	f := setup(t)
	defer attendance.SetReportTemplate("missing_report")()

	n, err := f.service().SendReport(context.Background(), f.course.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rendering attendance report")
	assert.Zero(t, n)
	assert.Empty(t, emailsvc.SentMessages())
}
