package academy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/academy"
	"github.com/trezcool/mahudhurio/core/user"
)

func TestWeekWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       string
		wantStart string
	}{
		{name: "wednesday", now: "2026-08-26T10:00:00Z", wantStart: "2026-08-26"},
		{name: "thursday", now: "2026-08-27T08:00:00Z", wantStart: "2026-08-26"},
		{name: "sunday", now: "2026-08-30T23:59:00Z", wantStart: "2026-08-26"},
		{name: "monday rolls back to previous wednesday", now: "2026-08-31T00:00:00Z", wantStart: "2026-08-26"},
		{name: "tuesday", now: "2026-09-01T12:00:00Z", wantStart: "2026-08-26"},
		{name: "next wednesday opens a new window", now: "2026-09-02T00:00:00Z", wantStart: "2026-09-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now, _ := time.Parse(time.RFC3339, tt.now)
			start, end := academy.WeekWindow(now)
			assert.Equal(t, tt.wantStart, start.Format(academy.DateLayout))
			assert.Equal(t, time.Sunday, end.Weekday())
			assert.Equal(t, start.AddDate(0, 0, 4), end)
		})
	}
}

func TestSessionStats(t *testing.T) {
	svc, repo, usrRepo := setup(t)
	admin := createUser(t, usrRepo, "admin", user.RoleAdmin, true)
	fac1 := createUser(t, usrRepo, "fac1", user.RoleFacilitator, true)
	fac2 := createUser(t, usrRepo, "fac2", user.RoleFacilitator, true)

	crs := createCourse(t, repo, "Discipleship 2026", true, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	slt1 := createSlot(t, repo, crs.ID, academy.WeekdayMidweek, "19:00")
	slt2 := createSlot(t, repo, crs.ID, academy.WeekdayWeekend, "09:00")
	grp1 := createGroup(t, repo, slt1.ID, fac1.ID, "Table 1")
	grp2 := createGroup(t, repo, slt2.ID, fac2.ID, "Table 2")
	std1 := createStudent(t, repo, grp1.ID, "Ada", time.Date(2000, 3, 10, 0, 0, 0, 0, time.UTC))
	std2 := createStudent(t, repo, grp1.ID, "Ben", time.Date(2001, 4, 11, 0, 0, 0, 0, time.UTC))
	std3 := createStudent(t, repo, grp2.ID, "Cleo", time.Date(2002, 5, 12, 0, 0, 0, 0, time.UTC))

	createAttendance(t, repo, std1.ID, 1, academy.OutcomeAttended, time.Time{})
	createAttendance(t, repo, std2.ID, 1, academy.OutcomeAbsent, time.Time{})
	createAttendance(t, repo, std3.ID, 1, academy.OutcomeAbsent, time.Time{})
	createAttendance(t, repo, std1.ID, 2, academy.OutcomeMadeUp, time.Time{}) // other session

	t.Run("admin sees the whole session", func(t *testing.T) {
		stats, err := svc.SessionStats(admin, 1)
		assert.NoError(t, err)
		assert.Equal(t, 1, stats.Session)
		assert.Equal(t, academy.OutcomeCount{Attended: 1, Absent: 2, Total: 3}, stats.Totals)

		if assert.Len(t, stats.AbsencesBySlot, 2) {
			assert.Equal(t, slt1.ID, stats.AbsencesBySlot[0].SlotID)
			assert.Equal(t, 1, stats.AbsencesBySlot[0].Absent)
			assert.Equal(t, slt2.ID, stats.AbsencesBySlot[1].SlotID)
			assert.Equal(t, 1, stats.AbsencesBySlot[1].Absent)
		}

		if assert.Len(t, stats.ByGroup, 2) {
			assert.Equal(t, grp1.ID, stats.ByGroup[0].GroupID)
			assert.Equal(t, academy.OutcomeCount{Attended: 1, Absent: 1, Total: 2}, stats.ByGroup[0].Counts)
			assert.Equal(t, grp2.ID, stats.ByGroup[1].GroupID)
			assert.Equal(t, academy.OutcomeCount{Absent: 1, Total: 1}, stats.ByGroup[1].Counts)
		}
	})

	t.Run("facilitator stats are scoped", func(t *testing.T) {
		stats, err := svc.SessionStats(fac1, 1)
		assert.NoError(t, err)
		assert.Equal(t, academy.OutcomeCount{Attended: 1, Absent: 1, Total: 2}, stats.Totals)
		if assert.Len(t, stats.AbsencesBySlot, 1) {
			assert.Equal(t, slt1.ID, stats.AbsencesBySlot[0].SlotID)
		}
		// the per-group breakdown is an admin view
		assert.Empty(t, stats.ByGroup)
	})

	t.Run("session out of range", func(t *testing.T) {
		_, err := svc.SessionStats(admin, 0)
		assert.IsType(t, &core.ValidationError{}, err)
		_, err = svc.SessionStats(admin, academy.MaxSession+1)
		assert.IsType(t, &core.ValidationError{}, err)
	})
}

func TestWeekStats(t *testing.T) {
	svc, repo, usrRepo := setup(t)
	admin := createUser(t, usrRepo, "admin", user.RoleAdmin, true)
	fac := createUser(t, usrRepo, "fac", user.RoleFacilitator, true)

	crs := createCourse(t, repo, "Discipleship 2026", true, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	slt := createSlot(t, repo, crs.ID, academy.WeekdayMidweek, "19:00")
	grp := createGroup(t, repo, slt.ID, fac.ID, "Table 1")
	std := createStudent(t, repo, grp.ID, "Ada", time.Date(2000, 3, 10, 0, 0, 0, 0, time.UTC))

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) // friday
	wed := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	sun := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	lastWeek := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)

	createAttendance(t, repo, std.ID, 1, academy.OutcomeAttended, wed)
	createAttendance(t, repo, std.ID, 2, academy.OutcomeAbsent, sun)
	createAttendance(t, repo, std.ID, 3, academy.OutcomeAttended, lastWeek)
	createAttendance(t, repo, std.ID, 4, academy.OutcomeMadeUp, time.Time{}) // no class date

	stats, err := svc.WeekStats(admin, now)
	assert.NoError(t, err)
	assert.Equal(t, wed, stats.Start)
	assert.Equal(t, sun, stats.End)
	assert.Equal(t, academy.OutcomeCount{Attended: 1, Absent: 1, Total: 2}, stats.Totals)

	// rollups carry only the window's records
	if assert.Len(t, stats.AbsencesBySlot, 1) {
		assert.Equal(t, slt.ID, stats.AbsencesBySlot[0].SlotID)
		assert.Equal(t, 1, stats.AbsencesBySlot[0].Absent)
	}
	if assert.Len(t, stats.ByGroup, 1) {
		assert.Equal(t, grp.ID, stats.ByGroup[0].GroupID)
		assert.Equal(t, academy.OutcomeCount{Attended: 1, Absent: 1, Total: 2}, stats.ByGroup[0].Counts)
	}

	// a facilitator gets the same window without the group breakdown
	facStats, err := svc.WeekStats(fac, now)
	assert.NoError(t, err)
	assert.Equal(t, stats.Totals, facStats.Totals)
	assert.Empty(t, facStats.ByGroup)
}

func TestBirthdays(t *testing.T) {
	svc, repo, usrRepo := setup(t)
	admin := createUser(t, usrRepo, "admin", user.RoleAdmin, true)
	fac1 := createUser(t, usrRepo, "fac1", user.RoleFacilitator, true)
	fac2 := createUser(t, usrRepo, "fac2", user.RoleFacilitator, true)

	crs := createCourse(t, repo, "Discipleship 2026", true, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	slt := createSlot(t, repo, crs.ID, academy.WeekdayMidweek, "19:00")
	grp1 := createGroup(t, repo, slt.ID, fac1.ID, "Table 1")
	grp2 := createGroup(t, repo, slt.ID, fac2.ID, "Table 2")

	march1 := createStudent(t, repo, grp1.ID, "Ada", time.Date(2000, 3, 10, 0, 0, 0, 0, time.UTC))
	march2 := createStudent(t, repo, grp2.ID, "Ben", time.Date(2001, 3, 2, 0, 0, 0, 0, time.UTC))
	createStudent(t, repo, grp1.ID, "Cleo", time.Date(2002, 5, 12, 0, 0, 0, 0, time.UTC))

	gone := createStudent(t, repo, grp1.ID, "Dan", time.Date(2003, 3, 20, 0, 0, 0, 0, time.UTC))
	inactive := false
	if _, err := repo.UpdateStudent(academy.Student{ID: gone.ID, UpdatedAt: time.Now().UTC()}, nil, &inactive); err != nil {
		t.Fatalf("UpdateStudent() failed: %v", err)
	}

	t.Run("admin, sorted by day of month", func(t *testing.T) {
		students, err := svc.Birthdays(admin, time.March)
		assert.NoError(t, err)
		assert.Equal(t, []int{march2.ID, march1.ID}, ids(students))
	})

	t.Run("facilitator scoped", func(t *testing.T) {
		students, err := svc.Birthdays(fac1, time.March)
		assert.NoError(t, err)
		assert.Equal(t, []int{march1.ID}, ids(students))
	})

	t.Run("retired groups do not feed the facilitator view", func(t *testing.T) {
		grp3 := createGroup(t, repo, slt.ID, fac1.ID, "Table 3")
		march3 := createStudent(t, repo, grp3.ID, "Eve", time.Date(2004, 3, 5, 0, 0, 0, 0, time.UTC))
		off := false
		if _, err := repo.UpdateGroup(academy.Group{ID: grp3.ID, UpdatedAt: time.Now().UTC()}, &off); err != nil {
			t.Fatalf("UpdateGroup() failed: %v", err)
		}

		students, err := svc.Birthdays(fac1, time.March)
		assert.NoError(t, err)
		assert.Equal(t, []int{march1.ID}, ids(students))

		// the admin still sees the still-active student
		students, err = svc.Birthdays(admin, time.March)
		assert.NoError(t, err)
		assert.Equal(t, []int{march2.ID, march3.ID, march1.ID}, ids(students))
	})

	t.Run("empty month", func(t *testing.T) {
		students, err := svc.Birthdays(admin, time.December)
		assert.NoError(t, err)
		assert.Empty(t, students)
	})
}
