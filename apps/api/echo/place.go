package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/locateme/backend/core/place"
)

var msgPlaceAdded = "Added successfully"

type placeApi struct {
	svc      place.Service
	validate *validator.Validate
}

func registerPlaceAPI(app *echo.Echo, svc place.Service, validate *validator.Validate) {
	api := placeApi{svc: svc, validate: validate}

	app.GET("/data", api.list)
	app.POST("/data", api.create)
}

// Handlers

func (api *placeApi) list(ctx echo.Context) error {
	places, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing places")
	}
	return ctx.JSON(http.StatusOK, places)
}

func (api *placeApi) create(ctx echo.Context) error {
	var data place.NewPlace
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlace")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.Create(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "creating place")
	}
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: true, Message: msgPlaceAdded})
}
