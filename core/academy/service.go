package academy

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

type (
	Repository interface {
		// courses
		CreateCourse(crs Course) (Course, error)
		QueryCourses(filter CourseFilter) ([]Course, error)
		GetCourseByID(id int) (Course, error)
		UpdateCourse(crs Course, isActive *bool) (Course, error)

		// slots
		CreateSlot(slt Slot) (Slot, error)
		QuerySlots(filter SlotFilter) ([]Slot, error)
		GetSlotByID(id int) (Slot, error)
		UpdateSlot(slt Slot, isActive *bool) (Slot, error)
		SlotIDsByCourse(courseID int) ([]int, error)

		// groups
		CreateGroup(grp Group) (Group, error)
		QueryGroups(filter GroupFilter) ([]Group, error)
		GetGroupByID(id int) (Group, error)
		UpdateGroup(grp Group, isActive *bool) (Group, error)
		GroupIDsByFacilitator(facilitatorID int) ([]int, error)
		ActiveGroupIDsByFacilitator(facilitatorID int) ([]int, error)
		DeactivateGroupsBySlotIDs(slotIDs ...int) ([]int, error)

		// students
		CreateStudent(std Student) (Student, error)
		QueryStudents(filter StudentFilter) ([]Student, error)
		GetStudentByID(id int) (Student, error)
		UpdateStudent(std Student, groupID *int, isActive *bool) (Student, error)
		DeactivateStudentsByGroupIDs(groupIDs ...int) error
		OwnedStudentIDs(facilitatorID int) ([]int, error)
		StudentsWithBirthdayInMonth(month time.Month, filter StudentFilter) ([]Student, error)

		// attendance
		CreateAttendance(att Attendance) (Attendance, error)
		QueryAttendance(filter AttendanceFilter) ([]Attendance, error)
		GetAttendanceByID(id int) (Attendance, error)
		GetAttendanceByStudentSession(studentID, session int) (Attendance, error)
		UpdateAttendance(att Attendance) (Attendance, error)
		DeleteAttendanceByID(ids ...int) error

		// aggregation; the filter carries the session or class date window
		AbsencesBySlot(filter AttendanceFilter) ([]SlotAbsenceCount, error)
		OutcomeBreakdownByGroup(filter AttendanceFilter) ([]GroupOutcomeCount, error)
		OutcomeTotals(filter AttendanceFilter) (OutcomeCount, error)
	}

	Service interface {
		// courses
		CreateCourse(usr user.User, nc NewCourse) (Course, error)
		QueryCourses(usr user.User, filter CourseFilter) ([]Course, error)
		GetCourse(usr user.User, id int) (Course, error)
		UpdateCourse(usr user.User, id int, uc UpdateCourse) (Course, error)
		DeleteCourse(usr user.User, id int) error

		// slots
		CreateSlot(usr user.User, ns NewSlot) (Slot, error)
		QuerySlots(usr user.User, filter SlotFilter) ([]Slot, error)
		GetSlot(usr user.User, id int) (Slot, error)
		UpdateSlot(usr user.User, id int, us UpdateSlot) (Slot, error)
		DeleteSlot(usr user.User, id int) error

		// groups
		CreateGroup(usr user.User, ng NewGroup) (Group, error)
		QueryGroups(usr user.User, filter GroupFilter) ([]Group, error)
		GetGroup(usr user.User, id int) (Group, error)
		UpdateGroup(usr user.User, id int, ug UpdateGroup) (Group, error)
		DeleteGroup(usr user.User, id int) error

		// students
		CreateStudent(usr user.User, ns NewStudent) (Student, error)
		QueryStudents(usr user.User, filter StudentFilter) ([]Student, error)
		GetStudent(usr user.User, id int) (Student, error)
		UpdateStudent(usr user.User, id int, us UpdateStudent) (Student, error)
		DeleteStudent(usr user.User, id int) error

		// attendance
		QueryAttendance(usr user.User, filter AttendanceFilter) ([]Attendance, error)
		GetAttendance(usr user.User, id int) (Attendance, error)
		UpdateAttendance(usr user.User, id int, ua UpdateAttendance) (Attendance, error)
		DeleteAttendance(usr user.User, id int) error
		BulkUpsertAttendance(usr user.User, items []AttendanceUpsert) (BulkUpsertResult, error)

		// dashboards
		SessionStats(usr user.User, session int) (SessionStats, error)
		WeekStats(usr user.User, now time.Time) (WeekStats, error)
		Birthdays(usr user.User, month time.Month) ([]Student, error)
	}

	service struct {
		repo    Repository
		usrRepo user.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrRepo user.Repository) Service {
	return &service{
		repo:    repo,
		usrRepo: usrRepo,
	}
}

// ----------------------------------------------------------------------------
// courses

func (svc *service) CreateCourse(usr user.User, nc NewCourse) (Course, error) {
	if err := Authorize(usr, ActionCreate, KindCourse); err != nil {
		return Course{}, err
	}
	now := time.Now().UTC()
	crs := Course{
		Name:      nc.Name,
		StartDate: ParseDate(nc.StartDate),
		EndDate:   ParseDate(nc.EndDate),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateDateRange(crs.StartDate, crs.EndDate); err != nil {
		return Course{}, err
	}
	return svc.repo.CreateCourse(crs)
}

func (svc *service) QueryCourses(usr user.User, filter CourseFilter) ([]Course, error) {
	if err := Authorize(usr, ActionList, KindCourse); err != nil {
		return nil, err
	}
	if len(filter.Ordering) == 0 {
		filter.Ordering = defaultCourseOrdering()
	}
	return svc.repo.QueryCourses(filter)
}

func (svc *service) GetCourse(usr user.User, id int) (Course, error) {
	if err := Authorize(usr, ActionRead, KindCourse); err != nil {
		return Course{}, err
	}
	return svc.repo.GetCourseByID(id)
}

func (svc *service) UpdateCourse(usr user.User, id int, uc UpdateCourse) (Course, error) {
	if err := Authorize(usr, ActionUpdate, KindCourse); err != nil {
		return Course{}, err
	}
	orig, err := svc.repo.GetCourseByID(id)
	if err != nil {
		return Course{}, err
	}
	crs := Course{
		ID:        id,
		Name:      uc.Name,
		UpdatedAt: time.Now().UTC(),
	}
	if uc.StartDate != "" {
		crs.StartDate = ParseDate(uc.StartDate)
	}
	if uc.EndDate != "" {
		crs.EndDate = ParseDate(uc.EndDate)
	}
	start, end := orig.StartDate, orig.EndDate
	if !crs.StartDate.IsZero() {
		start = crs.StartDate
	}
	if !crs.EndDate.IsZero() {
		end = crs.EndDate
	}
	if err = validateDateRange(start, end); err != nil {
		return Course{}, err
	}
	crs, err = svc.repo.UpdateCourse(crs, uc.IsActive)
	if err != nil {
		return Course{}, err
	}
	// cascade fires only on the active -> inactive transition
	if orig.IsActive && uc.IsActive != nil && !*uc.IsActive {
		if err = svc.cascadeCourse(crs.ID); err != nil {
			return crs, err
		}
	}
	return crs, nil
}

// DeleteCourse soft-deletes: the course is deactivated and the cascade runs.
// Deleting an already inactive course is a no-op.
func (svc *service) DeleteCourse(usr user.User, id int) error {
	if err := Authorize(usr, ActionDelete, KindCourse); err != nil {
		return err
	}
	crs, err := svc.repo.GetCourseByID(id)
	if err != nil {
		return err
	}
	if !crs.IsActive {
		return nil
	}
	inactive := false
	if _, err = svc.repo.UpdateCourse(Course{ID: id, UpdatedAt: time.Now().UTC()}, &inactive); err != nil {
		return err
	}
	return svc.cascadeCourse(id)
}

// ----------------------------------------------------------------------------
// slots

func (svc *service) CreateSlot(usr user.User, ns NewSlot) (Slot, error) {
	if err := Authorize(usr, ActionCreate, KindSlot); err != nil {
		return Slot{}, err
	}
	if _, err := svc.repo.GetCourseByID(ns.CourseID); err != nil {
		if err == ErrNotFound {
			return Slot{}, core.NewValidationError(ErrCourseNotFound,
				core.FieldError{Field: "course", Error: ErrCourseNotFound.Error()})
		}
		return Slot{}, err
	}
	now := time.Now().UTC()
	slt := Slot{
		CourseID:  ns.CourseID,
		Weekday:   ns.Weekday,
		TimeOfDay: ns.TimeOfDay,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateSlot(slt)
}

// QuerySlots lists all slots of a course when one is given; the unfiltered
// listing carries active slots only.
func (svc *service) QuerySlots(usr user.User, filter SlotFilter) ([]Slot, error) {
	if err := Authorize(usr, ActionList, KindSlot); err != nil {
		return nil, err
	}
	if filter.CourseID == 0 && filter.IsActive == nil {
		active := true
		filter.IsActive = &active
	}
	if len(filter.Ordering) == 0 {
		filter.Ordering = defaultSlotOrdering()
	}
	return svc.repo.QuerySlots(filter)
}

func (svc *service) GetSlot(usr user.User, id int) (Slot, error) {
	if err := Authorize(usr, ActionRead, KindSlot); err != nil {
		return Slot{}, err
	}
	return svc.repo.GetSlotByID(id)
}

func (svc *service) UpdateSlot(usr user.User, id int, us UpdateSlot) (Slot, error) {
	if err := Authorize(usr, ActionUpdate, KindSlot); err != nil {
		return Slot{}, err
	}
	orig, err := svc.repo.GetSlotByID(id)
	if err != nil {
		return Slot{}, err
	}
	slt := Slot{
		ID:        id,
		Weekday:   us.Weekday,
		TimeOfDay: us.TimeOfDay,
		UpdatedAt: time.Now().UTC(),
	}
	slt, err = svc.repo.UpdateSlot(slt, us.IsActive)
	if err != nil {
		return Slot{}, err
	}
	if orig.IsActive && us.IsActive != nil && !*us.IsActive {
		if err = svc.cascadeSlot(id); err != nil {
			return slt, err
		}
	}
	return slt, nil
}

func (svc *service) DeleteSlot(usr user.User, id int) error {
	if err := Authorize(usr, ActionDelete, KindSlot); err != nil {
		return err
	}
	slt, err := svc.repo.GetSlotByID(id)
	if err != nil {
		return err
	}
	if !slt.IsActive {
		return nil
	}
	inactive := false
	if _, err = svc.repo.UpdateSlot(Slot{ID: id, UpdatedAt: time.Now().UTC()}, &inactive); err != nil {
		return err
	}
	return svc.cascadeSlot(id)
}

// ----------------------------------------------------------------------------
// groups

func (svc *service) CreateGroup(usr user.User, ng NewGroup) (Group, error) {
	if err := Authorize(usr, ActionCreate, KindGroup); err != nil {
		return Group{}, err
	}
	if _, err := svc.repo.GetSlotByID(ng.SlotID); err != nil {
		if err == ErrNotFound {
			return Group{}, core.NewValidationError(ErrSlotNotFound,
				core.FieldError{Field: "slot", Error: ErrSlotNotFound.Error()})
		}
		return Group{}, err
	}
	if err := svc.checkFacilitator(ng.FacilitatorID); err != nil {
		return Group{}, err
	}
	now := time.Now().UTC()
	grp := Group{
		SlotID:        ng.SlotID,
		FacilitatorID: ng.FacilitatorID,
		Name:          ng.Name,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateGroup(grp)
}

func (svc *service) QueryGroups(usr user.User, filter GroupFilter) ([]Group, error) {
	if err := Authorize(usr, ActionList, KindGroup); err != nil {
		return nil, err
	}
	scope := svc.scopeGroups(usr)
	filter.MatchNone = filter.MatchNone || scope.MatchNone
	if scope.FacilitatorID != 0 {
		if filter.FacilitatorID != 0 && filter.FacilitatorID != scope.FacilitatorID {
			filter.MatchNone = true
		}
		filter.FacilitatorID = scope.FacilitatorID
	}
	if scope.IsActive != nil {
		if filter.IsActive != nil && *filter.IsActive != *scope.IsActive {
			filter.MatchNone = true
		}
		filter.IsActive = scope.IsActive
	}
	if len(filter.Ordering) == 0 {
		filter.Ordering = defaultGroupOrdering()
	}
	return svc.repo.QueryGroups(filter)
}

func (svc *service) GetGroup(usr user.User, id int) (Group, error) {
	if err := Authorize(usr, ActionRead, KindGroup); err != nil {
		return Group{}, err
	}
	grp, err := svc.repo.GetGroupByID(id)
	if err != nil {
		return Group{}, err
	}
	if !usr.IsAdmin() && !svc.ownsGroup(usr, grp) {
		return Group{}, ErrNotOwner
	}
	return grp, nil
}

func (svc *service) UpdateGroup(usr user.User, id int, ug UpdateGroup) (Group, error) {
	if err := Authorize(usr, ActionUpdate, KindGroup); err != nil {
		return Group{}, err
	}
	orig, err := svc.repo.GetGroupByID(id)
	if err != nil {
		return Group{}, err
	}
	if !usr.IsAdmin() && !svc.ownsGroup(usr, orig) {
		return Group{}, ErrNotOwner
	}
	if ug.SlotID != 0 && ug.SlotID != orig.SlotID {
		if _, err = svc.repo.GetSlotByID(ug.SlotID); err != nil {
			if err == ErrNotFound {
				return Group{}, core.NewValidationError(ErrSlotNotFound,
					core.FieldError{Field: "slot", Error: ErrSlotNotFound.Error()})
			}
			return Group{}, err
		}
	}
	if ug.FacilitatorID != 0 && ug.FacilitatorID != orig.FacilitatorID {
		if err = svc.checkFacilitator(ug.FacilitatorID); err != nil {
			return Group{}, err
		}
	}
	grp := Group{
		ID:            id,
		SlotID:        ug.SlotID,
		FacilitatorID: ug.FacilitatorID,
		Name:          ug.Name,
		UpdatedAt:     time.Now().UTC(),
	}
	grp, err = svc.repo.UpdateGroup(grp, ug.IsActive)
	if err != nil {
		return Group{}, err
	}
	if orig.IsActive && ug.IsActive != nil && !*ug.IsActive {
		if err = svc.cascadeGroup(id); err != nil {
			return grp, err
		}
	}
	return grp, nil
}

func (svc *service) DeleteGroup(usr user.User, id int) error {
	if err := Authorize(usr, ActionDelete, KindGroup); err != nil {
		return err
	}
	grp, err := svc.repo.GetGroupByID(id)
	if err != nil {
		return err
	}
	if !usr.IsAdmin() && !svc.ownsGroup(usr, grp) {
		return ErrNotOwner
	}
	if !grp.IsActive {
		return nil
	}
	inactive := false
	if _, err = svc.repo.UpdateGroup(Group{ID: id, UpdatedAt: time.Now().UTC()}, &inactive); err != nil {
		return err
	}
	return svc.cascadeGroup(id)
}

// ----------------------------------------------------------------------------
// students

func (svc *service) CreateStudent(usr user.User, ns NewStudent) (Student, error) {
	if err := Authorize(usr, ActionCreate, KindStudent); err != nil {
		return Student{}, err
	}
	var groupID null.Int
	if ns.GroupID != nil && *ns.GroupID != 0 {
		grp, err := svc.repo.GetGroupByID(*ns.GroupID)
		if err != nil {
			if err == ErrNotFound {
				return Student{}, core.NewValidationError(ErrGroupNotFound,
					core.FieldError{Field: "group", Error: ErrGroupNotFound.Error()})
			}
			return Student{}, err
		}
		// facilitators may only enroll into their own groups
		if !usr.IsAdmin() && !svc.ownsGroup(usr, grp) {
			return Student{}, ErrNotOwner
		}
		groupID = null.IntFrom(grp.ID)
	}
	now := time.Now().UTC()
	std := Student{
		GroupID:      groupID,
		FirstName:    ns.FirstName,
		LastName:     ns.LastName,
		BirthDate:    ParseDate(ns.BirthDate),
		Phone:        ns.Phone,
		Neighborhood: ns.Neighborhood,
		Street:       ns.Street,
		HouseNumber:  ns.HouseNumber,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateStudent(std)
}

func (svc *service) QueryStudents(usr user.User, filter StudentFilter) ([]Student, error) {
	if err := Authorize(usr, ActionList, KindStudent); err != nil {
		return nil, err
	}
	scope, err := svc.scopeStudents(usr)
	if err != nil {
		return nil, err
	}
	filter.MatchNone = filter.MatchNone || scope.MatchNone
	if scope.GroupIDs != nil {
		filter.GroupIDs = intersectIDs(filter.GroupIDs, scope.GroupIDs)
		if len(filter.GroupIDs) == 0 {
			filter.MatchNone = true
		}
	}
	if len(filter.Ordering) == 0 {
		filter.Ordering = defaultStudentOrdering()
	}
	return svc.repo.QueryStudents(filter)
}

func (svc *service) GetStudent(usr user.User, id int) (Student, error) {
	if err := Authorize(usr, ActionRead, KindStudent); err != nil {
		return Student{}, err
	}
	std, err := svc.repo.GetStudentByID(id)
	if err != nil {
		return Student{}, err
	}
	if !usr.IsAdmin() && !svc.ownsStudent(usr, std) {
		return Student{}, ErrNotOwner
	}
	return std, nil
}

func (svc *service) UpdateStudent(usr user.User, id int, us UpdateStudent) (Student, error) {
	if err := Authorize(usr, ActionUpdate, KindStudent); err != nil {
		return Student{}, err
	}
	orig, err := svc.repo.GetStudentByID(id)
	if err != nil {
		return Student{}, err
	}
	if !usr.IsAdmin() && !svc.ownsStudent(usr, orig) {
		return Student{}, ErrNotOwner
	}
	if us.GroupID != nil && *us.GroupID != 0 {
		grp, err := svc.repo.GetGroupByID(*us.GroupID)
		if err != nil {
			if err == ErrNotFound {
				return Student{}, core.NewValidationError(ErrGroupNotFound,
					core.FieldError{Field: "group", Error: ErrGroupNotFound.Error()})
			}
			return Student{}, err
		}
		if !usr.IsAdmin() && !svc.ownsGroup(usr, grp) {
			return Student{}, ErrNotOwner
		}
	}
	std := Student{
		ID:           id,
		FirstName:    us.FirstName,
		LastName:     us.LastName,
		Phone:        us.Phone,
		Neighborhood: us.Neighborhood,
		Street:       us.Street,
		HouseNumber:  us.HouseNumber,
		UpdatedAt:    time.Now().UTC(),
	}
	if us.BirthDate != "" {
		std.BirthDate = ParseDate(us.BirthDate)
	}
	return svc.repo.UpdateStudent(std, us.GroupID, us.IsActive)
}

// DeleteStudent soft-deletes; deleting an already inactive student is a no-op.
func (svc *service) DeleteStudent(usr user.User, id int) error {
	if err := Authorize(usr, ActionDelete, KindStudent); err != nil {
		return err
	}
	std, err := svc.repo.GetStudentByID(id)
	if err != nil {
		return err
	}
	if !usr.IsAdmin() && !svc.ownsStudent(usr, std) {
		return ErrNotOwner
	}
	if !std.IsActive {
		return nil
	}
	inactive := false
	_, err = svc.repo.UpdateStudent(Student{ID: id, UpdatedAt: time.Now().UTC()}, nil, &inactive)
	return err
}

// ----------------------------------------------------------------------------
// helpers

var errNotFacilitator = core.NewValidationError(nil,
	core.FieldError{Field: "facilitator", Error: "user is not an active facilitator"})

func (svc *service) checkFacilitator(id int) error {
	fac, err := svc.usrRepo.GetUserByID(id)
	if err != nil {
		if err == user.ErrNotFound {
			return errNotFacilitator
		}
		return err
	}
	if !fac.IsActive || !fac.IsFacilitator() {
		return errNotFacilitator
	}
	return nil
}

func validateDateRange(start, end time.Time) error {
	if end.Before(start) {
		return core.NewValidationError(nil,
			core.FieldError{Field: "end_date", Error: "end date must not precede start date"})
	}
	return nil
}

func intersectIDs(requested, allowed []int) []int {
	if requested == nil {
		return allowed
	}
	set := make(map[int]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	var out []int
	for _, id := range requested {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
