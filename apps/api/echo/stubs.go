package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/locateme/backend/core/user"
)

var (
	msgFaceVerified   = "Attendance verified successfully"
	msgStudentMissing = "Student not found"
)

// stubsApi answers the face recognition endpoints the mobile clients still call.
// Face recognition itself is not implemented.
type stubsApi struct {
	usrSvc user.Service
}

func registerStubsAPI(app *echo.Echo, usrSvc user.Service) {
	api := stubsApi{usrSvc: usrSvc}

	app.POST("/attendance/verify", api.verifyFace)
	app.GET("/face/check-registration/:student_id", api.checkRegistration)
}

func (api *stubsApi) verifyFace(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: msgFaceVerified})
}

func (api *stubsApi) checkRegistration(ctx echo.Context) error {
	studentID, err := paramID(ctx, "student_id", msgInvalidStudent)
	if err != nil {
		return err
	}
	if _, err = api.usrSvc.GetByID(ctx.Request().Context(), studentID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return ctx.JSON(http.StatusNotFound, RegistrationResponse{IsRegistered: false, Message: msgStudentMissing})
		}
		return errors.Wrap(err, "finding student")
	}
	return ctx.JSON(http.StatusOK, RegistrationResponse{IsRegistered: false})
}

type RegistrationResponse struct {
	IsRegistered bool   `json:"isRegistered"`
	Message      string `json:"message,omitempty"`
}
