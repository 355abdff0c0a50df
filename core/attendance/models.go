package attendance

import (
	"time"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/course"
	"github.com/locateme/backend/core/user"
)

// Record is a successful geolocated check-in. It is never updated once created.
type Record struct {
	ID        int       `json:"id"`
	StudentID int       `json:"student_id"`
	CourseID  int       `json:"course_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"` // UTC
}

// LocationCheck is a student's check-in attempt.
// Latitude and Longitude hold decoded JSON values: numbers or numeric strings.
type LocationCheck struct {
	Latitude  interface{} `json:"latitude"`
	Longitude interface{} `json:"longitude"`
	StudentID core.ID     `json:"student_id"`
	CourseID  core.ID     `json:"course_id"`
}

// Result of a LocationCheck. A student out of range is not an error: Success is false.
type Result struct {
	Success  bool    `json:"success"`
	Message  string  `json:"message"`
	Distance float64 `json:"distance"`
}

type ToggleRequest struct {
	IsAttendanceOpen bool `json:"isAttendanceOpen"`
}

type ReportRequest struct {
	CourseID core.ID `json:"course_id"`
}

// reportData is passed to the attendance_report email template.
type reportData struct {
	Instructor user.User
	Course     course.Course
	Records    []Record
}
