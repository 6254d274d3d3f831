package academy

import "fmt"

// CascadeError reports a deactivation cascade that failed partway; the parent
// record is already inactive when it is returned.
type CascadeError struct {
	Op  string // stage that failed; eg. "deactivate groups"
	Err error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade: %s: %v", e.Op, e.Err)
}

func (e *CascadeError) Cause() error  { return e.Err }
func (e *CascadeError) Unwrap() error { return e.Err }

// cascadeCourse deactivates the course's groups and their students. The
// course's slots are schedule definitions and keep their own active flag.
func (svc *service) cascadeCourse(courseID int) error {
	slotIDs, err := svc.repo.SlotIDsByCourse(courseID)
	if err != nil {
		return &CascadeError{Op: "resolve slots", Err: err}
	}
	if len(slotIDs) == 0 {
		return nil
	}
	return svc.cascadeSlots(slotIDs...)
}

func (svc *service) cascadeSlot(slotID int) error {
	return svc.cascadeSlots(slotID)
}

func (svc *service) cascadeSlots(slotIDs ...int) error {
	groupIDs, err := svc.repo.DeactivateGroupsBySlotIDs(slotIDs...)
	if err != nil {
		return &CascadeError{Op: "deactivate groups", Err: err}
	}
	if len(groupIDs) == 0 {
		return nil
	}
	if err = svc.repo.DeactivateStudentsByGroupIDs(groupIDs...); err != nil {
		return &CascadeError{Op: "deactivate students", Err: err}
	}
	return nil
}

func (svc *service) cascadeGroup(groupID int) error {
	if err := svc.repo.DeactivateStudentsByGroupIDs(groupID); err != nil {
		return &CascadeError{Op: "deactivate students", Err: err}
	}
	return nil
}
