package attendance

import (
	"github.com/cenkalti/backoff/v4"

	"github.com/locateme/backend/core"
)

// NewServiceMock returns a Service that waits between toggle retries through timer.
func NewServiceMock(deps Deps, conf core.AttendanceConfig, timer backoff.Timer) Service {
	return &service{Deps: deps, conf: conf, timer: timer}
}
