package place

import (
	"github.com/go-playground/validator/v10"

	"github.com/locateme/backend/core"
)

// Place is a named campus location, e.g. a lecture hall.
type Place struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"` // free text, usually "<lat>,<lon>"
}

// NewPlace contains information needed to create a new Place.
type NewPlace struct {
	Name     string `json:"name" validate:"required,max=100"`
	Location string `json:"location" validate:"required,max=100"`
}

func (np *NewPlace) Clean() {
	np.Name = core.CleanString(np.Name)
	np.Location = core.CleanString(np.Location)
}

func (np *NewPlace) Validate(validate *validator.Validate) error {
	np.Clean()
	return validate.Struct(np)
}
