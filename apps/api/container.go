package main

import (
	"fmt"
	"io"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/locateme/backend/apps/api/echo"
	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/attendance"
	"github.com/locateme/backend/core/course"
	"github.com/locateme/backend/core/place"
	"github.com/locateme/backend/core/user"
	emailsvc "github.com/locateme/backend/services/email"
	logsvc "github.com/locateme/backend/services/logger"
	"github.com/locateme/backend/storage/database"
	inmemdb "github.com/locateme/backend/storage/database/inmem"
	sqlxrepos "github.com/locateme/backend/storage/database/sqlx"
)

type dbLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// storage is every persistence dependency, backed either by PostgreSQL or by memory.
type storage struct {
	dig.Out
	DB             core.Transactor
	Pinger         core.Pinger
	Closer         io.Closer
	UserRepo       user.Repository
	CourseRepo     course.Repository
	AttendanceRepo attendance.Repository
	PlaceRepo      place.Repository
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newSQLStorage(conf *core.Config, loggerParam dbLoggerParam) storage {
	setUp := func() (*database.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return storage{
		DB:             db,
		Pinger:         db,
		Closer:         db,
		UserRepo:       sqlxrepos.NewUserRepository(db),
		CourseRepo:     sqlxrepos.NewCourseRepository(db),
		AttendanceRepo: sqlxrepos.NewAttendanceRepository(db),
		PlaceRepo:      sqlxrepos.NewPlaceRepository(db),
	}
}

func newInMemStorage(loggerParam dbLoggerParam) storage {
	loggerParam.Logger.Info("using in-memory storage; data is lost on exit")
	db := inmemdb.New()
	return storage{
		DB:             db,
		Pinger:         db,
		Closer:         nopCloser{},
		UserRepo:       inmemdb.NewUserRepository(db),
		CourseRepo:     inmemdb.NewCourseRepository(db),
		AttendanceRepo: inmemdb.NewAttendanceRepository(db),
		PlaceRepo:      inmemdb.NewPlaceRepository(db),
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newAttendanceService(
	conf *core.Config,
	logger core.Logger,
	db core.Transactor,
	repo attendance.Repository,
	courseRepo course.Repository,
	usrSvc user.Service,
	mailSvc core.EmailService,
) attendance.Service {
	deps := attendance.Deps{
		DB:         db,
		Repo:       repo,
		CourseRepo: courseRepo,
		UserSvc:    usrSvc,
		MailSvc:    mailSvc,
		Logger:     logger,
		AppName:    conf.AppName,
	}
	return attendance.NewService(deps, conf.Attendance)
}

type serverParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	DB            core.Pinger
	Validate      *validator.Validate
	Translator    ut.Translator
	UserSvc       user.Service
	CourseSvc     course.Service
	AttendanceSvc attendance.Service
	PlaceSvc      place.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		DB:            p.DB,
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.UserSvc,
		CourseSvc:     p.CourseSvc,
		AttendanceSvc: p.AttendanceSvc,
		PlaceSvc:      p.PlaceSvc,
	})
}

// newContainer returns a new dependency injection dig.Container
func newContainer(inMemory bool) *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	if inMemory {
		must(c.Provide(newInMemStorage))
	} else {
		must(c.Provide(newSQLStorage))
	}
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(place.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
