package attendance

import "github.com/locateme/backend/core/geo"

// SetDistanceFunc replaces the distance evaluator until restore is called.
func SetDistanceFunc(f func(a, b geo.Point) float64) (restore func()) {
	orig := distanceFunc
	distanceFunc = f
	return func() { distanceFunc = orig }
}

// SetReportTemplate replaces the report email template until restore is called.
func SetReportTemplate(name string) (restore func()) {
	orig := reportTemplate
	reportTemplate = name
	return func() { reportTemplate = orig }
}
