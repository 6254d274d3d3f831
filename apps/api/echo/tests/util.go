package tests

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	. "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/academy"
	"github.com/trezcool/mahudhurio/core/user"
	emailsvc "github.com/trezcool/mahudhurio/services/email"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
)

var (
	usrRepo user.Repository
	acaRepo academy.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func setup(t *testing.T) Server {
	t.Helper()

	core.Conf.Debug = false
	core.Conf.TestMode = true

	db := inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)
	acaRepo = inmemdb.NewAcademyRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewServiceMock(usrRepo, mailSvc)
	acaSvc := academy.NewService(acaRepo, usrRepo)

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	academy.RegisterValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), core.Conf)
	logger.Enable(false)

	return NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			UserSvc:        usrSvc,
			AcademySvc:     acaSvc,
		},
	)
}

type httpErr struct {
	Error string `json:"error"`
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

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
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
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if l1, ok := j1.([]interface{}); ok {
		if l2, ok := j2.([]interface{}); ok {
			return assert.ElementsMatch(t, l1, l2), nil
		}
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// Fixtures

func createUser(t *testing.T, name, role, pwd string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  name,
		Email:     name + "@test.cd",
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("SetPassword() failed: %v", err)
		}
	}
	usr, err := usrRepo.CreateUser(usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func createCourse(t *testing.T, name string, isActive bool, start time.Time) academy.Course {
	t.Helper()
	now := time.Now().UTC()
	crs, err := acaRepo.CreateCourse(academy.Course{
		Name:      name,
		StartDate: start,
		EndDate:   start.AddDate(0, 6, 0),
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func createSlot(t *testing.T, courseID int, day academy.Weekday, at string) academy.Slot {
	t.Helper()
	now := time.Now().UTC()
	slt, err := acaRepo.CreateSlot(academy.Slot{
		CourseID:  courseID,
		Weekday:   day,
		TimeOfDay: at,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createSlot() failed: %v", err)
	}
	return slt
}

func createGroup(t *testing.T, slotID, facilitatorID int, name string) academy.Group {
	t.Helper()
	now := time.Now().UTC()
	grp, err := acaRepo.CreateGroup(academy.Group{
		SlotID:        slotID,
		FacilitatorID: facilitatorID,
		Name:          name,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("createGroup() failed: %v", err)
	}
	return grp
}

func createStudent(t *testing.T, groupID int, name string) academy.Student {
	t.Helper()
	now := time.Now().UTC()
	std := academy.Student{
		FirstName: name,
		LastName:  "Tester",
		BirthDate: time.Date(2008, time.March, 15, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if groupID != 0 {
		std.GroupID = null.IntFrom(groupID)
	}
	std, err := acaRepo.CreateStudent(std)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return std
}

func createAttendance(t *testing.T, studentID, session int, outcome academy.Outcome) academy.Attendance {
	t.Helper()
	now := time.Now().UTC()
	att, err := acaRepo.CreateAttendance(academy.Attendance{
		StudentID: studentID,
		Session:   session,
		Outcome:   outcome,
		ClassDate: null.TimeFrom(now.Truncate(24 * time.Hour)),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createAttendance() failed: %v", err)
	}
	return att
}
