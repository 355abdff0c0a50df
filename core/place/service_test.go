package place_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/place"
	inmemdb "github.com/locateme/backend/storage/database/inmem"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := place.NewService(inmemdb.NewPlaceRepository(inmemdb.New()))

	places, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, places)
	assert.Empty(t, places)

	hall, err := svc.Create(ctx, place.NewPlace{Name: "  Hall A ", Location: " 30.0444,31.2357 "})
	require.NoError(t, err)
	assert.Equal(t, place.Place{ID: 1, Name: "Hall A", Location: "30.0444,31.2357"}, hall)

	lab, err := svc.Create(ctx, place.NewPlace{Name: "Lab", Location: "Building B"})
	require.NoError(t, err)
	assert.Equal(t, 2, lab.ID)

	places, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []place.Place{hall, lab}, places)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewPlace_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	tests := []struct {
		name      string
		np        place.NewPlace
		wantField string
		wantMsg   string
	}{
		{name: "missing name", np: place.NewPlace{Name: " ", Location: "1,2"}, wantField: "name", wantMsg: "Missing required field: name"},
		{name: "missing location", np: place.NewPlace{Name: "Hall"}, wantField: "location", wantMsg: "Missing required field: location"},
		{name: "valid", np: place.NewPlace{Name: "Hall", Location: "1,2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.np.Validate(validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.True(t, errors.As(err, &vErrs), "want ValidationErrors, got %v", err)
			assert.Equal(t, tt.wantField, vErrs[0].Field())
			assert.Equal(t, tt.wantMsg, vErrs[0].Translate(translator))
		})
	}
}
