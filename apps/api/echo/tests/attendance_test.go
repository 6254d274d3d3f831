package tests

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core/academy"
	"github.com/trezcool/mahudhurio/core/user"
)

func Test_attendanceApi_bulkUpsert(t *testing.T) {
	app := setup(t)

	mine := createUser(t, "monfac", user.RoleFacilitator, "", true)
	other := createUser(t, "lautre", user.RoleFacilitator, "", true)

	crs := createCourse(t, "Umoja 2026", true, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	slot := createSlot(t, crs.ID, academy.WeekdayMidweek, "18:00")
	myGroup := createGroup(t, slot.ID, mine.ID, "Simba")
	otherGroup := createGroup(t, slot.ID, other.ID, "Chui")
	myStudent := createStudent(t, myGroup.ID, "Amani")
	otherStudent := createStudent(t, otherGroup.ID, "Baraka")

	myToken := getToken(t, mine)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/attendance/bulk-upsert", []byte("[]"))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("malformed batch", func(t *testing.T) {
		body := marchallObj(t, academy.AttendanceUpsert{StudentID: myStudent.ID, Session: 1, Outcome: academy.OutcomeAttended})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/bulk-upsert", myToken, body) // object, not array
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "expected a list of attendance items"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("batch with skips and item errors", func(t *testing.T) {
		body := marchallList(t,
			academy.AttendanceUpsert{StudentID: myStudent.ID, Session: 3, Outcome: academy.OutcomeAttended},
			academy.AttendanceUpsert{StudentID: otherStudent.ID, Session: 3, Outcome: academy.OutcomeAttended}, // not mine: skipped
			academy.AttendanceUpsert{StudentID: myStudent.ID, Session: 99, Outcome: academy.OutcomeAttended},   // session out of range
		)
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/bulk-upsert", myToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %v", rec.Code, rec.Body.String())
		}

		var res academy.BulkUpsertResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling result: %v", err)
		}
		if len(res.Results) != 1 || !res.Results[0].Created {
			t.Errorf("Results = %+v; want 1 created record", res.Results)
		}
		if res.Skipped != 1 {
			t.Errorf("Skipped = %d; want 1", res.Skipped)
		}
		if len(res.Errors) != 1 || res.Errors[0].Index != 2 {
			t.Errorf("Errors = %+v; want 1 error at index 2", res.Errors)
		}
	})

	t.Run("existing record is updated", func(t *testing.T) {
		body := marchallList(t,
			academy.AttendanceUpsert{StudentID: myStudent.ID, Session: 3, Outcome: academy.OutcomeAbsent, Reason: "sick"},
		)
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/bulk-upsert", myToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %v", rec.Code, rec.Body.String())
		}

		var res academy.BulkUpsertResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling result: %v", err)
		}
		if len(res.Results) != 1 || res.Results[0].Created {
			t.Errorf("Results = %+v; want 1 overwritten record", res.Results)
		}
		if res.Results[0].Outcome != academy.OutcomeAbsent {
			t.Errorf("Outcome = %v; want %v", res.Results[0].Outcome, academy.OutcomeAbsent)
		}
	})

	t.Run("results keep the batch order", func(t *testing.T) {
		body := marchallList(t,
			academy.AttendanceUpsert{StudentID: myStudent.ID, Session: 3, Outcome: academy.OutcomeAttended}, // overwrite
			academy.AttendanceUpsert{StudentID: myStudent.ID, Session: 4, Outcome: academy.OutcomeAttended}, // fresh
		)
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/bulk-upsert", myToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %v", rec.Code, rec.Body.String())
		}

		var res academy.BulkUpsertResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling result: %v", err)
		}
		if len(res.Results) != 2 {
			t.Fatalf("Results = %d; want 2", len(res.Results))
		}
		if res.Results[0].Session != 3 || res.Results[0].Created {
			t.Errorf("Results[0] = %+v; want the overwritten session 3 record first", res.Results[0])
		}
		if res.Results[1].Session != 4 || !res.Results[1].Created {
			t.Errorf("Results[1] = %+v; want the fresh session 4 record last", res.Results[1])
		}
	})
}

func Test_attendanceApi_CRUD(t *testing.T) {
	app := setup(t)

	admin := createUser(t, "bosses", user.RoleAdmin, "", true)
	mine := createUser(t, "monfac", user.RoleFacilitator, "", true)
	other := createUser(t, "lautre", user.RoleFacilitator, "", true)

	crs := createCourse(t, "Umoja 2026", true, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	slot := createSlot(t, crs.ID, academy.WeekdayWeekend, "10:00")
	myGroup := createGroup(t, slot.ID, mine.ID, "Simba")
	otherGroup := createGroup(t, slot.ID, other.ID, "Chui")
	myStudent := createStudent(t, myGroup.ID, "Amani")
	otherStudent := createStudent(t, otherGroup.ID, "Baraka")

	myAtt := createAttendance(t, myStudent.ID, 1, academy.OutcomeAttended)
	otherAtt := createAttendance(t, otherStudent.ID, 1, academy.OutcomeAbsent)

	adminToken := getToken(t, admin)
	myToken := getToken(t, mine)

	t.Run("list is scoped", func(t *testing.T) {
		tests := []httpTest{
			{name: "admin sees all", path: "/v1/attendance", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, myAtt, otherAtt)},
			{name: "facilitator sees own", path: "/v1/attendance", token: myToken, wantCode: http.StatusOK, wantData: marchallList(t, myAtt)},
			{name: "filter cannot widen", path: "/v1/attendance?student=" + strconv.Itoa(otherStudent.ID), token: myToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("update own record", func(t *testing.T) {
		body := marchallObj(t, academy.UpdateAttendance{Outcome: academy.OutcomeMadeUp, Reason: "made up on saturday"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/attendance/"+strconv.Itoa(myAtt.ID), myToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %v", rec.Code, rec.Body.String())
		}
		var att academy.Attendance
		if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
			t.Fatalf("unmarshalling attendance: %v", err)
		}
		if att.Outcome != academy.OutcomeMadeUp {
			t.Errorf("Outcome = %v; want %v", att.Outcome, academy.OutcomeMadeUp)
		}
	})

	t.Run("foreign record opaque", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance/"+strconv.Itoa(otherAtt.ID), myToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/attendance/"+strconv.Itoa(myAtt.ID), myToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body %v", rec.Code, rec.Body.String())
		}
		req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/"+strconv.Itoa(myAtt.ID), adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("get after delete: code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_attendanceApi_dashboard(t *testing.T) {
	app := setup(t)

	admin := createUser(t, "bosses", user.RoleAdmin, "", true)
	mine := createUser(t, "monfac", user.RoleFacilitator, "", true)

	crs := createCourse(t, "Umoja 2026", true, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	slot := createSlot(t, crs.ID, academy.WeekdayMidweek, "18:00")
	grp := createGroup(t, slot.ID, mine.ID, "Simba")
	std := createStudent(t, grp.ID, "Amani")
	createAttendance(t, std.ID, 5, academy.OutcomeAbsent)

	adminToken := getToken(t, admin)
	myToken := getToken(t, mine)

	t.Run("session stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/stats?session=5", adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %v", rec.Code, rec.Body.String())
		}
		var stats academy.SessionStats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("unmarshalling stats: %v", err)
		}
		if stats.Session != 5 {
			t.Errorf("Session = %d; want 5", stats.Session)
		}
		if stats.Totals.Absent != 1 {
			t.Errorf("Totals.Absent = %d; want 1", stats.Totals.Absent)
		}
	})

	t.Run("session defaults to the first", func(t *testing.T) {
		createAttendance(t, std.ID, 1, academy.OutcomeAttended)

		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/stats", adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %v", rec.Code, rec.Body.String())
		}
		var stats academy.SessionStats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("unmarshalling stats: %v", err)
		}
		if stats.Session != 1 {
			t.Errorf("Session = %d; want 1", stats.Session)
		}
		if stats.Totals.Attended != 1 {
			t.Errorf("Totals.Attended = %d; want 1", stats.Totals.Attended)
		}
	})

	t.Run("session out of range", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/stats?session=42", adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %v", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("week stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/week-stats", myToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %v", rec.Code, rec.Body.String())
		}
		var stats academy.WeekStats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("unmarshalling stats: %v", err)
		}
		if !stats.Start.Before(stats.End) {
			t.Errorf("window [%v, %v] is inverted", stats.Start, stats.End)
		}
	})

	t.Run("birthdays", func(t *testing.T) {
		// fixture students are born in March
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, std)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/birthdays?month=3", myToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		empty := httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}
		req, rec = newAuthRequest(http.MethodGet, "/v1/dashboard/birthdays?month=7", myToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, empty, rec)
	})
}
