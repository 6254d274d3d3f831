package academy

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

// Filters narrow list queries. A filter with MatchNone set matches nothing;
// scope resolution falls back to it whenever a facilitator's ownership chain
// resolves to an empty set, so an unmatched caller is denied rather than
// shown everything.

type CourseFilter struct {
	IsActive *bool
	Ordering []core.DBOrdering
}

type SlotFilter struct {
	CourseID int // 0: any
	IsActive *bool
	Ordering []core.DBOrdering
}

type GroupFilter struct {
	MatchNone     bool
	SlotID        int // 0: any
	FacilitatorID int // 0: any
	IsActive      *bool
	Ordering      []core.DBOrdering
}

type StudentFilter struct {
	MatchNone bool
	GroupID   int   // 0: any
	GroupIDs  []int // nil: any
	IsActive  *bool
	Ordering  []core.DBOrdering
}

type AttendanceFilter struct {
	MatchNone  bool
	StudentID  int   // 0: any
	StudentIDs []int // nil: any
	Session    int   // 0: any
	From, To   time.Time // class date window; zero: any
	Ordering   []core.DBOrdering
}

// Slots are structural reference data, visible to every authenticated role;
// courses are admin-only and the chain-walking starts at groups.

func (svc *service) scopeGroups(usr user.User) GroupFilter {
	if usr.IsAdmin() {
		return GroupFilter{}
	}
	active := true
	return GroupFilter{FacilitatorID: usr.ID, IsActive: &active}
}

func (svc *service) scopeStudents(usr user.User) (StudentFilter, error) {
	if usr.IsAdmin() {
		return StudentFilter{}, nil
	}
	groupIDs, err := svc.repo.GroupIDsByFacilitator(usr.ID)
	if err != nil {
		return StudentFilter{}, err
	}
	if len(groupIDs) == 0 {
		return StudentFilter{MatchNone: true}, nil
	}
	return StudentFilter{GroupIDs: groupIDs}, nil
}

func (svc *service) scopeAttendance(usr user.User) (AttendanceFilter, error) {
	if usr.IsAdmin() {
		return AttendanceFilter{}, nil
	}
	studentIDs, err := svc.repo.OwnedStudentIDs(usr.ID)
	if err != nil {
		return AttendanceFilter{}, err
	}
	if len(studentIDs) == 0 {
		return AttendanceFilter{MatchNone: true}, nil
	}
	return AttendanceFilter{StudentIDs: studentIDs}, nil
}

// defaultCourseOrdering lists active courses first, most recent first.
func defaultCourseOrdering() []core.DBOrdering {
	return []core.DBOrdering{core.Desc("is_active"), core.Desc("start_date")}
}

func defaultSlotOrdering() []core.DBOrdering {
	return []core.DBOrdering{core.Desc("is_active"), core.Asc("weekday"), core.Asc("time_of_day")}
}

func defaultGroupOrdering() []core.DBOrdering {
	return []core.DBOrdering{core.Desc("is_active"), core.Asc("name")}
}

func defaultStudentOrdering() []core.DBOrdering {
	return []core.DBOrdering{core.Desc("is_active"), core.Asc("last_name")}
}

func defaultAttendanceOrdering() []core.DBOrdering {
	return []core.DBOrdering{core.Asc("student_id"), core.Asc("session")}
}
