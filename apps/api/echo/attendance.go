package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/attendance"
)

var (
	msgAttendanceStateUpdated = "Attendance state updated successfully"
	msgAttendanceSent         = "Attendance sent to the doctor"
	msgMissingCourseID        = "Missing required field: course_id"
)

type attendanceApi struct {
	svc    attendance.Service
	logger core.Logger
}

func registerAttendanceAPI(app *echo.Echo, svc attendance.Service, logger core.Logger) {
	api := attendanceApi{svc: svc, logger: logger}

	app.PUT("/courses/:id/attendance", api.setAttendanceOpen)

	ag := app.Group("/attendance")
	ag.POST("/verify-location", api.verifyLocation)
	ag.POST("/send-to-doctor", api.sendToDoctor)
}

// Handlers

func (api *attendanceApi) setAttendanceOpen(ctx echo.Context) error {
	courseID, err := paramID(ctx, "id", msgInvalidCourseID)
	if err != nil {
		return err
	}
	var data attendance.ToggleRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ToggleRequest")
	}

	open, err := api.svc.SetAttendanceOpen(ctx.Request().Context(), courseID, data.IsAttendanceOpen)
	if err != nil {
		return errors.Wrap(err, "setting attendance state")
	}
	return ctx.JSON(http.StatusOK, ToggleResponse{
		Success:          true,
		Message:          msgAttendanceStateUpdated,
		IsAttendanceOpen: open,
	})
}

func (api *attendanceApi) verifyLocation(ctx echo.Context) error {
	var data attendance.LocationCheck
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LocationCheck")
	}
	api.logger.Debug(fmt.Sprintf("Verifying location for student %d in course %d", data.StudentID, data.CourseID))

	res, err := api.svc.VerifyLocation(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "verifying location")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) sendToDoctor(ctx echo.Context) error {
	var data attendance.ReportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReportRequest")
	}
	if data.CourseID <= 0 {
		return core.NewValidationError(errors.New(msgMissingCourseID))
	}

	n, err := api.svc.SendReport(ctx.Request().Context(), data.CourseID.Int())
	if err != nil {
		return errors.Wrap(err, "sending attendance report")
	}
	return ctx.JSON(http.StatusOK, ReportResponse{Success: true, Message: msgAttendanceSent, Records: n})
}

type (
	ToggleResponse struct {
		Success          bool   `json:"success"`
		Message          string `json:"message"`
		IsAttendanceOpen bool   `json:"isAttendanceOpen"`
	}

	ReportResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Records int    `json:"records"`
	}
)
