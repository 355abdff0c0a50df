package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/locateme/backend/apps/api/echo"
	"github.com/locateme/backend/core/attendance"
	"github.com/locateme/backend/core/user"
	emailsvc "github.com/locateme/backend/services/email"
	"github.com/locateme/backend/testutil"
)

func Test_attendanceApi_setAttendanceOpen(t *testing.T) {
	resetDB()
	doc := testutil.CreateUser(t, usrRepo, "Dr Doc", "doc@test.eg", "D-001", user.RoleDoctor, "")
	crs := testutil.CreateCourse(t, courseRepo, doc.ID, "CS101", "")
	path := fmt.Sprintf("/courses/%d/attendance", crs.ID)

	tests := []httpTest{
		{
			name: "open", path: path, body: []byte(`{"isAttendanceOpen": true}`),
			wantData: marchallObj(t, echoapi.ToggleResponse{Success: true, Message: "Attendance state updated successfully", IsAttendanceOpen: true}),
		},
		{
			name: "open again", path: path, body: []byte(`{"isAttendanceOpen": true}`),
			wantData: marchallObj(t, echoapi.ToggleResponse{Success: true, Message: "Attendance state updated successfully", IsAttendanceOpen: true}),
		},
		{
			name: "close", path: path, body: []byte(`{"isAttendanceOpen": false}`),
			wantData: marchallObj(t, echoapi.ToggleResponse{Success: true, Message: "Attendance state updated successfully", IsAttendanceOpen: false}),
		},
		{
			name: "unknown course", path: "/courses/999/attendance", body: []byte(`{"isAttendanceOpen": true}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errResp("Course not found")),
		},
		{
			name: "bad id", path: "/courses/abc/attendance", body: []byte(`{"isAttendanceOpen": true}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, errResp("Invalid course ID format")),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPut
			serve(t, tt)
		})
	}

	assert.False(t, getCourse(t, crs.ID).IsAttendanceOpen)
}

func Test_attendanceApi_verifyLocation(t *testing.T) {
	resetDB()
	doc := testutil.CreateUser(t, usrRepo, "Dr Doc", "doc@test.eg", "D-001", user.RoleDoctor, "")
	stu := testutil.CreateUser(t, usrRepo, "Stu", "stu@test.eg", "S-001", user.RoleStudent, "")
	crs := testutil.CreateCourse(t, courseRepo, doc.ID, "CS101", "30.0444,31.2357")
	noLoc := testutil.CreateCourse(t, courseRepo, doc.ID, "CS102", "")

	body := func(lat, lon interface{}, courseID int) []byte {
		return marchallObj(t, map[string]interface{}{
			"latitude": lat, "longitude": lon, "student_id": stu.ID, "course_id": courseID,
		})
	}

	tests := []httpTest{
		{
			name: "on the spot", body: body(30.0444, 31.2357, crs.ID),
			wantData: marchallObj(t, attendance.Result{Success: true, Message: "Attendance recorded successfully", Distance: 0}),
		},
		{
			name: "coordinates as strings", body: body("30.0444", " 31.2357 ", crs.ID),
			wantData: marchallObj(t, attendance.Result{Success: true, Message: "Attendance recorded successfully", Distance: 0}),
		},
		{
			name: "missing latitude", body: body(nil, 31.2357, crs.ID),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, errResp("Invalid student location format")),
		},
		{
			name: "non numeric longitude", body: body(30.0444, "east", crs.ID),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, errResp("Invalid student location format")),
		},
		{
			name: "unknown course", body: body(30.0444, 31.2357, 999),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errResp("Course not found")),
		},
		{
			name: "course without location", body: body(30.0444, 31.2357, noLoc.ID),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, errResp("Course location not set")),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/attendance/verify-location"
			serve(t, tt)
		})
	}

	t.Run("too far", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/attendance/verify-location", body(30.0454, 31.2357, crs.ID))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"success":false`)
		assert.Contains(t, rec.Body.String(), `"message":"Too far from class location (111.2m)"`)
	})

	records, err := recordRepo.QueryCourseRecords(context.Background(), crs.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func Test_attendanceApi_sendToDoctor(t *testing.T) {
	resetDB()
	doc := testutil.CreateUser(t, usrRepo, "Dr Doc", "doc@test.eg", "D-001", user.RoleDoctor, "")
	stu := testutil.CreateUser(t, usrRepo, "Stu", "stu@test.eg", "S-001", user.RoleStudent, "")
	crs := testutil.CreateCourse(t, courseRepo, doc.ID, "CS101", "30.0444,31.2357")

	req, rec := newRequest(http.MethodPost, "/attendance/verify-location",
		[]byte(fmt.Sprintf(`{"latitude": 30.0444, "longitude": 31.2357, "student_id": %d, "course_id": %d}`, stu.ID, crs.ID)))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []httpTest{
		{
			name: "missing course", body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, errResp("Missing required field: course_id")),
		},
		{
			name: "unknown course", body: []byte(`{"course_id": 999}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errResp("Course not found")),
		},
		{
			name: "valid", body: []byte(fmt.Sprintf(`{"course_id": "%d"}`, crs.ID)),
			wantData: marchallObj(t, echoapi.ReportResponse{Success: true, Message: "Attendance sent to the doctor", Records: 1}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/attendance/send-to-doctor"
			serve(t, tt)
		})
	}

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, doc.Email, sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "1 check-in(s)")
}
