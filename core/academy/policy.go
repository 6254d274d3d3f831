package academy

import (
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/user"
)

var (
	ErrNotFound              = errors.New("record not found")
	ErrOperationNotPermitted = errors.New("operation not permitted")
	// ErrNotOwner is returned when a facilitator touches a record outside
	// their own groups. Handlers must render it exactly like a plain
	// permission failure so record existence is not leaked.
	ErrNotOwner         = errors.New("operation not permitted on this record")
	ErrAttendanceExists = errors.New("an attendance record already exists for this student and session")
	ErrSlotNotFound     = errors.New("slot not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrGroupNotFound    = errors.New("group not found")
)

// Action is a class of operation on academy records.
type Action int

const (
	ActionList Action = iota
	ActionRead
	ActionCreate
	ActionUpdate
	ActionDelete
	ActionBulkUpsert
	ActionStats
)

// Kind identifies a level of the Course > Slot > Group > Student > Attendance hierarchy.
type Kind int

const (
	KindCourse Kind = iota
	KindSlot
	KindGroup
	KindStudent
	KindAttendance
)

// Authorize decides whether usr's role allows action on records of kind,
// before any ownership consideration. Admins may do everything. Facilitators
// may read every kind except courses, may manage groups, students and
// attendance (narrowed to their own groups at the object level), and may run
// the attendance bulk upsert. Courses and slots are admin-only to mutate.
func Authorize(usr user.User, action Action, kind Kind) error {
	if !usr.IsActive {
		return ErrOperationNotPermitted
	}
	if usr.IsAdmin() {
		return nil
	}
	if !usr.IsFacilitator() {
		return ErrOperationNotPermitted
	}

	switch action {
	case ActionList, ActionRead, ActionStats:
		if kind == KindCourse {
			return ErrOperationNotPermitted
		}
		return nil
	case ActionCreate, ActionUpdate, ActionDelete:
		switch kind {
		case KindGroup, KindStudent, KindAttendance:
			return nil
		}
		return ErrOperationNotPermitted
	case ActionBulkUpsert:
		if kind == KindAttendance {
			return nil
		}
		return ErrOperationNotPermitted
	}
	return ErrOperationNotPermitted
}

// ownership resolution: a facilitator owns a Group when they are its assigned
// facilitator; a Student through its Group; an Attendance record through its
// Student's Group. A broken chain (unassigned student, missing parent) never
// resolves to ownership.

func (svc *service) ownsGroup(usr user.User, grp Group) bool {
	return grp.FacilitatorID == usr.ID
}

func (svc *service) ownsStudent(usr user.User, std Student) bool {
	if !std.GroupID.Valid {
		return false
	}
	grp, err := svc.repo.GetGroupByID(std.GroupID.Int)
	if err != nil {
		return false
	}
	return svc.ownsGroup(usr, grp)
}

func (svc *service) ownsAttendance(usr user.User, att Attendance) bool {
	std, err := svc.repo.GetStudentByID(att.StudentID)
	if err != nil {
		return false
	}
	return svc.ownsStudent(usr, std)
}
