package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/attendance"
	"github.com/locateme/backend/core/course"
	"github.com/locateme/backend/core/place"
	"github.com/locateme/backend/core/user"
)

type healthApi struct {
	db            core.Pinger
	usrSvc        user.Service
	courseSvc     course.Service
	attendanceSvc attendance.Service
	placeSvc      place.Service
}

func registerHealthAPI(
	app *echo.Echo,
	db core.Pinger,
	usrSvc user.Service,
	courseSvc course.Service,
	attendanceSvc attendance.Service,
	placeSvc place.Service,
) {
	api := healthApi{
		db:            db,
		usrSvc:        usrSvc,
		courseSvc:     courseSvc,
		attendanceSvc: attendanceSvc,
		placeSvc:      placeSvc,
	}

	app.GET("/", api.home)
	app.GET("/db-status", api.dbStatus)
}

func (api *healthApi) connected(ctx echo.Context) bool {
	return api.db.PingContext(ctx.Request().Context()) == nil
}

// Handlers

func (api *healthApi) home(ctx echo.Context) error {
	resp := HealthResponse{Status: "ok", Server: "running", Database: "disconnected"}
	if api.connected(ctx) {
		resp.Database = "connected"
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *healthApi) dbStatus(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	tables := make(map[string]int, 5)

	counts := []struct {
		table string
		count func() (int, error)
	}{
		{"User", func() (int, error) { return api.usrSvc.Count(rctx) }},
		{"Course", func() (int, error) { return api.courseSvc.Count(rctx) }},
		{"StudentCourse", func() (int, error) { return api.courseSvc.CountEnrollments(rctx) }},
		{"StudentLocation", func() (int, error) { return api.attendanceSvc.Count(rctx) }},
		{"Location", func() (int, error) { return api.placeSvc.Count(rctx) }},
	}
	for _, c := range counts {
		n, err := c.count()
		if err != nil {
			return errors.Wrap(err, "counting "+c.table)
		}
		tables[c.table] = n
	}

	return ctx.JSON(http.StatusOK, DBStatusResponse{
		Success:     true,
		DBConnected: api.connected(ctx),
		Tables:      tables,
	})
}

type (
	HealthResponse struct {
		Status   string `json:"status"`
		Server   string `json:"server"`
		Database string `json:"database"`
	}

	DBStatusResponse struct {
		Success     bool           `json:"success"`
		DBConnected bool           `json:"db_connected"`
		Tables      map[string]int `json:"tables"`
	}
)
