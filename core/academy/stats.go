package academy

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

// OutcomeCount tallies attendance records per outcome.
type OutcomeCount struct {
	Attended int `json:"attended"`
	Absent   int `json:"absent"`
	MadeUp   int `json:"made_up"`
	Early    int `json:"early"`
	Total    int `json:"total"`
}

func (c *OutcomeCount) Add(o Outcome, n int) {
	switch o {
	case OutcomeAttended:
		c.Attended += n
	case OutcomeAbsent:
		c.Absent += n
	case OutcomeMadeUp:
		c.MadeUp += n
	case OutcomeEarly:
		c.Early += n
	}
	c.Total += n
}

// SlotAbsenceCount is the number of absences recorded in a schedule slot.
type SlotAbsenceCount struct {
	SlotID    int     `json:"slot"`
	Weekday   Weekday `json:"weekday"`
	TimeOfDay string  `json:"time"`
	Absent    int     `json:"absent"`
}

// GroupOutcomeCount breaks a group's attendance down per outcome.
type GroupOutcomeCount struct {
	GroupID       int          `json:"group"`
	GroupName     string       `json:"group_name"`
	FacilitatorID int          `json:"facilitator"`
	Counts        OutcomeCount `json:"counts"`
}

// SessionStats is the dashboard view of one numbered class session.
type SessionStats struct {
	Session        int                 `json:"session"`
	AbsencesBySlot []SlotAbsenceCount  `json:"absences_by_slot"`
	ByGroup        []GroupOutcomeCount `json:"by_group"`
	Totals         OutcomeCount        `json:"totals"`
}

// WeekStats is the dashboard view of the current class week; it carries the
// same rollups as SessionStats, selected by class date instead of session.
type WeekStats struct {
	Start          time.Time           `json:"start"`
	End            time.Time           `json:"end"`
	AbsencesBySlot []SlotAbsenceCount  `json:"absences_by_slot"`
	ByGroup        []GroupOutcomeCount `json:"by_group"`
	Totals         OutcomeCount        `json:"totals"`
}

/// WeekWindow returns the class week containing now: it opens on the most
// recent Wednesday at midnight and closes four days later, on Sunday.
func WeekWindow(now time.Time) (start, end time.Time) {
	offset := (int(now.Weekday()) - int(time.Wednesday) + 7) % 7
	day := now.AddDate(0, 0, -offset)
	start = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
	end = start.AddDate(0, 0, 4)
	return start, end
}

var errInvalidSession = core.NewValidationError(nil,
	core.FieldError{Field: "session", Error: "session out of range"})

func (svc *service) SessionStats(usr user.User, session int) (SessionStats, error) {
	if err := Authorize(usr, ActionStats, KindAttendance); err != nil {
		return SessionStats{}, err
	}
	if session < MinSession || session > MaxSession {
		return SessionStats{}, errInvalidSession
	}
	scope, err := svc.scopeAttendance(usr)
	if err != nil {
		return SessionStats{}, err
	}
	scope.Session = session

	stats := SessionStats{Session: session}
	stats.AbsencesBySlot, stats.ByGroup, stats.Totals, err = svc.rollups(usr, scope)
	if err != nil {
		return SessionStats{}, err
	}
	return stats, nil
}

func (svc *service) WeekStats(usr user.User, now time.Time) (WeekStats, error) {
	if err := Authorize(usr, ActionStats, KindAttendance); err != nil {
		return WeekStats{}, err
	}
	scope, err := svc.scopeAttendance(usr)
	if err != nil {
		return WeekStats{}, err
	}
	scope.From, scope.To = WeekWindow(now)

	stats := WeekStats{Start: scope.From, End: scope.To}
	stats.AbsencesBySlot, stats.ByGroup, stats.Totals, err = svc.rollups(usr, scope)
	if err != nil {
		return WeekStats{}, err
	}
	return stats, nil
}

// rollups computes the three dashboard rollups for the session or class date
// window carried by the filter. The per-group breakdown is admin-only.
func (svc *service) rollups(usr user.User, filter AttendanceFilter) (
	bySlot []SlotAbsenceCount, byGroup []GroupOutcomeCount, totals OutcomeCount, err error,
) {
	if bySlot, err = svc.repo.AbsencesBySlot(filter); err != nil {
		return nil, nil, OutcomeCount{}, err
	}
	byGroup = []GroupOutcomeCount{}
	if usr.IsAdmin() {
		if byGroup, err = svc.repo.OutcomeBreakdownByGroup(filter); err != nil {
			return nil, nil, OutcomeCount{}, err
		}
	}
	if totals, err = svc.repo.OutcomeTotals(filter); err != nil {
		return nil, nil, OutcomeCount{}, err
	}
	return bySlot, byGroup, totals, nil
}

// Birthdays lists the caller's active students born in the given month; a
// facilitator only sees students of their active groups.
func (svc *service) Birthdays(usr user.User, month time.Month) ([]Student, error) {
	if err := Authorize(usr, ActionStats, KindStudent); err != nil {
		return nil, err
	}
	var filter StudentFilter
	if !usr.IsAdmin() {
		groupIDs, err := svc.repo.ActiveGroupIDsByFacilitator(usr.ID)
		if err != nil {
			return nil, err
		}
		if len(groupIDs) == 0 {
			filter.MatchNone = true
		}
		filter.GroupIDs = groupIDs
	}
	active := true
	filter.IsActive = &active
	return svc.repo.StudentsWithBirthdayInMonth(month, filter)
}
