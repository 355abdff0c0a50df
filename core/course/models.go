package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/locateme/backend/core"
)

type Course struct {
	ID               int       `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	InstructorID     int       `json:"doctor_id"`
	Students         int       `json:"students"` // enrollment count; read-only
	EnrollmentCode   string    `json:"enrollment_code"`
	Day              string    `json:"day"`
	Time             string    `json:"time"`
	Location         string    `json:"location"` // "<lat>,<lon>"; empty when not set
	IsAttendanceOpen bool      `json:"isAttendanceOpen"`
	CreatedAt        time.Time `json:"-"` // UTC
	UpdatedAt        time.Time `json:"-"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Code        string  `json:"code" validate:"required,max=20"`
	Name        string  `json:"name" validate:"required,max=100"`
	Description string  `json:"description" validate:"required"`
	DoctorID    core.ID `json:"doctor_id" validate:"required"`
	Day         string  `json:"day" validate:"max=50"`
	Time        string  `json:"time" validate:"max=50"`
	Location    string  `json:"location" validate:"omitempty,max=100,latlon"`
}

func (nc *NewCourse) Clean() {
	nc.Code = core.CleanString(nc.Code)
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.Day = core.CleanString(nc.Day)
	nc.Time = core.CleanString(nc.Time)
	nc.Location = core.CleanString(nc.Location)
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Clean()
	return validate.Struct(nc)
}

type Enrollment struct {
	StudentID int
	CourseID  int
	CreatedAt time.Time // UTC
}

// GetFilter selects a single Course by ID or by EnrollmentCode.
type GetFilter struct {
	ID             int
	EnrollmentCode string
	// ForUpdate locks the selected row until the end of the transaction.
	ForUpdate bool
}

// QueryFilter applies AND operation on its non-zero fields.
type QueryFilter struct {
	InstructorID int
	StudentID    int // courses the student is enrolled in
}

type (
	EnrollRequest struct {
		StudentID      core.ID `json:"student_id" validate:"required"`
		EnrollmentCode string  `json:"enrollment_code" validate:"required"`
	}

	UnenrollRequest struct {
		StudentID core.ID `json:"student_id" validate:"required"`
		CourseID  core.ID `json:"course_id" validate:"required"`
	}

	DeleteRequest struct {
		DoctorID core.ID `json:"doctor_id" validate:"required"`
	}
)

func (r *EnrollRequest) Validate(validate *validator.Validate) error {
	r.EnrollmentCode = core.CleanString(r.EnrollmentCode)
	return validate.Struct(r)
}

func (r UnenrollRequest) Validate(validate *validator.Validate) error { return validate.Struct(r) }
func (r DeleteRequest) Validate(validate *validator.Validate) error   { return validate.Struct(r) }
