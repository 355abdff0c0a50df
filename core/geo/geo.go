// Package geo computes great-circle distances and parses "<lat>,<lon>" locations.
package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// EarthRadius in meters.
const EarthRadius = 6371000

var (
	ErrLocationNotSet = errors.New("Course location not set")
	ErrInvalidFormat  = errors.New("Invalid course location format")
	ErrInvalidDegrees = errors.New("invalid degrees value")
)

// FormatError is returned when a location token is not a finite number.
type FormatError struct {
	Token string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: could not convert string to float: '%s'", ErrInvalidFormat, e.Token)
}

// Point is a geographic position in degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// String renders p the way course locations are stored.
func (p Point) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Distance returns the haversine distance between a and b in meters.
// Inputs are not range checked.
func Distance(a, b Point) float64 {
	φ1 := radians(a.Lat)
	φ2 := radians(b.Lat)
	Δφ := radians(b.Lat - a.Lat)
	Δλ := radians(b.Lon - a.Lon)

	h := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * c
}

// ParseLocation parses a stored "<lat>,<lon>" string. Whitespace around either token is ignored.
func ParseLocation(s string) (Point, error) {
	if strings.TrimSpace(s) == "" || !strings.Contains(s, ",") {
		return Point{}, ErrLocationNotSet
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Point{}, ErrInvalidFormat
	}

	var vals [2]float64
	for i, part := range parts {
		tok := strings.TrimSpace(part)
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Point{}, &FormatError{Token: tok}
		}
		vals[i] = v
	}
	return Point{Lat: vals[0], Lon: vals[1]}, nil
}

// ParseDegrees converts a decoded JSON value (number or numeric string) to a finite float.
func ParseDegrees(v interface{}) (float64, error) {
	var f float64
	var err error
	switch val := v.(type) {
	case float64:
		f = val
	case json.Number:
		f, err = val.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, ErrInvalidDegrees
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidDegrees
	}
	return f, nil
}
