package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/attendance"
	"github.com/locateme/backend/core/course"
	"github.com/locateme/backend/core/place"
	"github.com/locateme/backend/core/user"
)

type ServerDeps struct {
	Conf           *core.Config
	Logger         core.Logger
	DB             core.Pinger
	Validate       *validator.Validate
	Translator     ut.Translator
	UserSvc        user.Service
	CourseSvc      course.Service
	AttendanceSvc  attendance.Service
	PlaceSvc       place.Service
	DisableReqLogs bool
}

type Server struct {
	ServerDeps
	app      *echo.Echo
	jwt      middleware.JWTConfig
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	s.jwt = newJWTConfig(deps.Conf)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.Conf.Debug
	s.app.Server.ReadTimeout = s.Conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = s.Conf.Server.WriteTimeout
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !s.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())

	jwt := middleware.JWTWithConfig(s.jwt)

	registerHealthAPI(s.app, s.DB, s.UserSvc, s.CourseSvc, s.AttendanceSvc, s.PlaceSvc)
	registerUserAPI(s.app, jwt, s.Conf, s.UserSvc, s.Validate, s.Translator)
	registerCourseAPI(s.app, s.CourseSvc, s.Validate)
	registerAttendanceAPI(s.app, s.AttendanceSvc, s.Logger)
	registerPlaceAPI(s.app, s.PlaceSvc, s.Validate)
	registerStubsAPI(s.app, s.UserSvc)
}

// Start listens on the configured address; failures are reported through Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
