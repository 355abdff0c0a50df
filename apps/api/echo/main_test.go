package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/locateme/backend/apps/api/echo"
	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/attendance"
	"github.com/locateme/backend/core/course"
	"github.com/locateme/backend/core/place"
	"github.com/locateme/backend/core/user"
	emailsvc "github.com/locateme/backend/services/email"
	inmemdb "github.com/locateme/backend/storage/database/inmem"
	"github.com/locateme/backend/testutil"
)

var (
	conf       *core.Config
	db         *inmemdb.DB
	app        *echoapi.Server
	logger     *testutil.Logger
	usrRepo    user.Repository
	courseRepo course.Repository
	recordRepo attendance.Repository
	placeRepo  place.Repository

	errMissingToken = echoapi.ErrorResponse{Message: "Missing or invalid token"}
)

func TestMain(m *testing.M) {
	conf = &core.Config{
		TestMode:         true,
		Env:              "TEST",
		AppName:          "LocateMe",
		SecretKey:        "test-secret-key",
		DefaultFromEmail: mail.Address{Name: "LocateMe", Address: "noreply@test.eg"},
		Server:           core.ServerConfig{JWTExpirationDelta: time.Hour},
		Attendance: core.AttendanceConfig{
			MaxDistance: 30,
			Retry:       core.DefaultRetryPolicy(),
		},
	}
	logger = new(testutil.Logger)

	// set up DB & repos
	db = inmemdb.New()
	usrRepo = inmemdb.NewUserRepository(db)
	courseRepo = inmemdb.NewCourseRepository(db)
	recordRepo = inmemdb.NewAttendanceRepository(db)
	placeRepo = inmemdb.NewPlaceRepository(db)

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	usrSvc := user.NewService(usrRepo)
	courseSvc := course.NewService(db, courseRepo, usrSvc)
	attendanceSvc := attendance.NewService(attendance.Deps{
		DB:         db,
		Repo:       recordRepo,
		CourseRepo: courseRepo,
		UserSvc:    usrSvc,
		MailSvc:    emailsvc.NewConsoleServiceMock(conf, logger),
		Logger:     logger,
		AppName:    conf.AppName,
	}, conf.Attendance)

	// set up server
	app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		DB:             db,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        usrSvc,
		CourseSvc:      courseSvc,
		AttendanceSvc:  attendanceSvc,
		PlaceSvc:       place.NewService(placeRepo),
		DisableReqLogs: true,
	})

	os.Exit(m.Run())
}

func resetDB() {
	db.Reset()
	emailsvc.ResetSentMessages()
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// serve runs tt against the app and checks its response.
func serve(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
	return rec
}

func getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, conf), conf)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func errResp(msg string, fields ...string) echoapi.ErrorResponse {
	resp := echoapi.ErrorResponse{Message: msg}
	if len(fields) > 0 {
		resp.Errors = make(map[string]string, len(fields))
		for _, f := range fields {
			resp.Errors[f] = msg
		}
	}
	return resp
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
