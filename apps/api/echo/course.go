package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/course"
	"github.com/locateme/backend/core/user"
)

var (
	msgCourseAdded     = "Course added successfully"
	msgCourseDeleted   = "Course deleted successfully"
	msgEnrolled        = "Successfully enrolled in course"
	msgUnenrolled      = "Unenrolled from course successfully"
	msgInvalidCourseID = "Invalid course ID format"
	msgInvalidDoctor   = "Invalid doctor ID format"
	msgInvalidStudent  = "Invalid student ID format"
)

type courseApi struct {
	svc      course.Service
	validate *validator.Validate
}

func registerCourseAPI(app *echo.Echo, svc course.Service, validate *validator.Validate) {
	api := courseApi{svc: svc, validate: validate}

	cg := app.Group("/courses")
	cg.POST("", api.create)
	cg.POST("/enroll", api.enroll)
	cg.POST("/unenroll", api.unenroll)
	cg.GET("/doctor/:doctor_id", api.queryByDoctor)
	cg.GET("/student/:student_id", api.queryByStudent)
	cg.DELETE("/:id", api.destroy)
	cg.GET("/:id/students", api.students)
}

// paramID reads the integer path param `name`; a malformed value is a ValidationError with msg.
func paramID(ctx echo.Context, name, msg string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, core.NewValidationError(errors.New(msg))
	}
	return id, nil
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, CourseResponse{Success: true, Message: msgCourseAdded, Course: crs})
}

func (api *courseApi) queryByDoctor(ctx echo.Context) error {
	doctorID, err := paramID(ctx, "doctor_id", msgInvalidDoctor)
	if err != nil {
		return err
	}
	courses, err := api.svc.QueryByInstructor(ctx.Request().Context(), doctorID)
	if err != nil {
		return errors.Wrap(err, "querying instructor courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, CoursesResponse{Success: true, Courses: courses})
}

func (api *courseApi) queryByStudent(ctx echo.Context) error {
	studentID, err := paramID(ctx, "student_id", msgInvalidStudent)
	if err != nil {
		return err
	}
	courses, err := api.svc.QueryByStudent(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying student courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, CoursesResponse{Success: true, Courses: courses})
}

func (api *courseApi) destroy(ctx echo.Context) error {
	courseID, err := paramID(ctx, "id", msgInvalidCourseID)
	if err != nil {
		return err
	}
	var data course.DeleteRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DeleteRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), courseID, data.DoctorID.Int()); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: msgCourseDeleted})
}

func (api *courseApi) enroll(ctx echo.Context) error {
	var data course.EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Enroll(ctx.Request().Context(), data.StudentID.Int(), data.EnrollmentCode)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, CourseResponse{Success: true, Message: msgEnrolled, Course: crs})
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	var data course.UnenrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UnenrollRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Unenroll(ctx.Request().Context(), data.StudentID.Int(), data.CourseID.Int()); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: msgUnenrolled})
}

func (api *courseApi) students(ctx echo.Context) error {
	courseID, err := paramID(ctx, "id", msgInvalidCourseID)
	if err != nil {
		return err
	}
	students, err := api.svc.Students(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "querying course students")
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, StudentsResponse{Success: true, Students: students})
}

type (
	CourseResponse struct {
		Success bool          `json:"success"`
		Message string        `json:"message"`
		Course  course.Course `json:"course"`
	}

	CoursesResponse struct {
		Success bool            `json:"success"`
		Courses []course.Course `json:"courses"`
	}

	StudentsResponse struct {
		Success  bool        `json:"success"`
		Students []user.User `json:"students"`
	}
)
