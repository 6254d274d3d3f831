package inmemdb

import (
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/academy"
)

type academyRepository struct {
	db *DB
}

func NewAcademyRepository(db *DB) academy.Repository {
	return &academyRepository{db: db}
}

// ----------------------------------------------------------------------------
// courses

func (repo *academyRepository) CreateCourse(crs academy.Course) (academy.Course, error) {
	t := repo.db.course
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.seq++
	crs.ID = t.seq
	t.table[crs.ID] = &crs
	return crs, nil
}

func (repo *academyRepository) QueryCourses(filter academy.CourseFilter) ([]academy.Course, error) {
	t := repo.db.course
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	courses := make([]academy.Course, 0, len(t.table))
	for _, crs := range t.table {
		if filter.IsActive != nil && crs.IsActive != *filter.IsActive {
			continue
		}
		courses = append(courses, *crs)
	}
	sortCourses(courses, filter.Ordering)
	return courses, nil
}

func (repo *academyRepository) GetCourseByID(id int) (academy.Course, error) {
	t := repo.db.course
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if crs, ok := t.table[id]; ok {
		return *crs, nil
	}
	return academy.Course{}, academy.ErrNotFound
}

func (repo *academyRepository) UpdateCourse(crs academy.Course, isActive *bool) (academy.Course, error) {
	t := repo.db.course
	t.mutex.Lock()
	defer t.mutex.Unlock()

	orig, ok := t.table[crs.ID]
	if !ok {
		return academy.Course{}, academy.ErrNotFound
	}
	if crs.Name != "" {
		orig.Name = crs.Name
	}
	if !crs.StartDate.IsZero() {
		orig.StartDate = crs.StartDate
	}
	if !crs.EndDate.IsZero() {
		orig.EndDate = crs.EndDate
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = crs.UpdatedAt
	return *orig, nil
}

// ----------------------------------------------------------------------------
// slots

func (repo *academyRepository) CreateSlot(slt academy.Slot) (academy.Slot, error) {
	t := repo.db.slot
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.seq++
	slt.ID = t.seq
	t.table[slt.ID] = &slt
	return slt, nil
}

func (repo *academyRepository) QuerySlots(filter academy.SlotFilter) ([]academy.Slot, error) {
	t := repo.db.slot
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	slots := make([]academy.Slot, 0, len(t.table))
	for _, slt := range t.table {
		if filter.CourseID != 0 && slt.CourseID != filter.CourseID {
			continue
		}
		if filter.IsActive != nil && slt.IsActive != *filter.IsActive {
			continue
		}
		slots = append(slots, *slt)
	}
	sortSlots(slots, filter.Ordering)
	return slots, nil
}

func (repo *academyRepository) GetSlotByID(id int) (academy.Slot, error) {
	t := repo.db.slot
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if slt, ok := t.table[id]; ok {
		return *slt, nil
	}
	return academy.Slot{}, academy.ErrNotFound
}

func (repo *academyRepository) UpdateSlot(slt academy.Slot, isActive *bool) (academy.Slot, error) {
	t := repo.db.slot
	t.mutex.Lock()
	defer t.mutex.Unlock()

	orig, ok := t.table[slt.ID]
	if !ok {
		return academy.Slot{}, academy.ErrNotFound
	}
	if slt.Weekday != "" {
		orig.Weekday = slt.Weekday
	}
	if slt.TimeOfDay != "" {
		orig.TimeOfDay = slt.TimeOfDay
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = slt.UpdatedAt
	return *orig, nil
}

func (repo *academyRepository) SlotIDsByCourse(courseID int) ([]int, error) {
	t := repo.db.slot
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	var ids []int
	for _, slt := range t.table {
		if slt.CourseID == courseID {
			ids = append(ids, slt.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// ----------------------------------------------------------------------------
// groups

func (repo *academyRepository) CreateGroup(grp academy.Group) (academy.Group, error) {
	t := repo.db.group
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.seq++
	grp.ID = t.seq
	t.table[grp.ID] = &grp
	return grp, nil
}

func (repo *academyRepository) QueryGroups(filter academy.GroupFilter) ([]academy.Group, error) {
	if filter.MatchNone {
		return []academy.Group{}, nil
	}
	t := repo.db.group
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	groups := make([]academy.Group, 0, len(t.table))
	for _, grp := range t.table {
		if filter.SlotID != 0 && grp.SlotID != filter.SlotID {
			continue
		}
		if filter.FacilitatorID != 0 && grp.FacilitatorID != filter.FacilitatorID {
			continue
		}
		if filter.IsActive != nil && grp.IsActive != *filter.IsActive {
			continue
		}
		groups = append(groups, *grp)
	}
	sortGroups(groups, filter.Ordering)
	return groups, nil
}

func (repo *academyRepository) GetGroupByID(id int) (academy.Group, error) {
	t := repo.db.group
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if grp, ok := t.table[id]; ok {
		return *grp, nil
	}
	return academy.Group{}, academy.ErrNotFound
}

func (repo *academyRepository) UpdateGroup(grp academy.Group, isActive *bool) (academy.Group, error) {
	t := repo.db.group
	t.mutex.Lock()
	defer t.mutex.Unlock()

	orig, ok := t.table[grp.ID]
	if !ok {
		return academy.Group{}, academy.ErrNotFound
	}
	if grp.SlotID != 0 {
		orig.SlotID = grp.SlotID
	}
	if grp.FacilitatorID != 0 {
		orig.FacilitatorID = grp.FacilitatorID
	}
	if grp.Name != "" {
		orig.Name = grp.Name
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = grp.UpdatedAt
	return *orig, nil
}

func (repo *academyRepository) GroupIDsByFacilitator(facilitatorID int) ([]int, error) {
	t := repo.db.group
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	var ids []int
	for _, grp := range t.table {
		if grp.FacilitatorID == facilitatorID {
			ids = append(ids, grp.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (repo *academyRepository) ActiveGroupIDsByFacilitator(facilitatorID int) ([]int, error) {
	t := repo.db.group
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	var ids []int
	for _, grp := range t.table {
		if grp.FacilitatorID == facilitatorID && grp.IsActive {
			ids = append(ids, grp.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (repo *academyRepository) DeactivateGroupsBySlotIDs(slotIDs ...int) ([]int, error) {
	t := repo.db.group
	t.mutex.Lock()
	defer t.mutex.Unlock()

	slots := make(map[int]struct{}, len(slotIDs))
	for _, id := range slotIDs {
		slots[id] = struct{}{}
	}
	var ids []int
	now := time.Now().UTC()
	for _, grp := range t.table {
		if _, ok := slots[grp.SlotID]; !ok {
			continue
		}
		if grp.IsActive {
			grp.IsActive = false
			grp.UpdatedAt = now
		}
		ids = append(ids, grp.ID)
	}
	sort.Ints(ids)
	return ids, nil
}

// ----------------------------------------------------------------------------
// students

func (repo *academyRepository) CreateStudent(std academy.Student) (academy.Student, error) {
	t := repo.db.student
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.seq++
	std.ID = t.seq
	t.table[std.ID] = &std
	return std, nil
}

func (repo *academyRepository) QueryStudents(filter academy.StudentFilter) ([]academy.Student, error) {
	if filter.MatchNone {
		return []academy.Student{}, nil
	}
	t := repo.db.student
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	students := make([]academy.Student, 0, len(t.table))
	for _, std := range t.table {
		if !matchStudent(*std, filter) {
			continue
		}
		students = append(students, *std)
	}
	sortStudents(students, filter.Ordering)
	return students, nil
}

func matchStudent(std academy.Student, filter academy.StudentFilter) bool {
	if filter.GroupID != 0 && (!std.GroupID.Valid || std.GroupID.Int != filter.GroupID) {
		return false
	}
	if filter.GroupIDs != nil {
		if !std.GroupID.Valid {
			return false
		}
		if !containsID(filter.GroupIDs, std.GroupID.Int) {
			return false
		}
	}
	if filter.IsActive != nil && std.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func (repo *academyRepository) GetStudentByID(id int) (academy.Student, error) {
	t := repo.db.student
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if std, ok := t.table[id]; ok {
		return *std, nil
	}
	return academy.Student{}, academy.ErrNotFound
}

func (repo *academyRepository) UpdateStudent(std academy.Student, groupID *int, isActive *bool) (academy.Student, error) {
	t := repo.db.student
	t.mutex.Lock()
	defer t.mutex.Unlock()

	orig, ok := t.table[std.ID]
	if !ok {
		return academy.Student{}, academy.ErrNotFound
	}
	if std.FirstName != "" {
		orig.FirstName = std.FirstName
	}
	if std.LastName != "" {
		orig.LastName = std.LastName
	}
	if !std.BirthDate.IsZero() {
		orig.BirthDate = std.BirthDate
	}
	if std.Phone != "" {
		orig.Phone = std.Phone
	}
	if std.Neighborhood != "" {
		orig.Neighborhood = std.Neighborhood
	}
	if std.Street != "" {
		orig.Street = std.Street
	}
	if std.HouseNumber != "" {
		orig.HouseNumber = std.HouseNumber
	}
	if groupID != nil {
		if *groupID == 0 {
			orig.GroupID = null.Int{}
		} else {
			orig.GroupID = null.IntFrom(*groupID)
		}
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = std.UpdatedAt
	return *orig, nil
}

func (repo *academyRepository) DeactivateStudentsByGroupIDs(groupIDs ...int) error {
	t := repo.db.student
	t.mutex.Lock()
	defer t.mutex.Unlock()

	groups := make(map[int]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		groups[id] = struct{}{}
	}
	now := time.Now().UTC()
	for _, std := range t.table {
		if !std.GroupID.Valid {
			continue
		}
		if _, ok := groups[std.GroupID.Int]; !ok {
			continue
		}
		if std.IsActive {
			std.IsActive = false
			std.UpdatedAt = now
		}
	}
	return nil
}

func (repo *academyRepository) OwnedStudentIDs(facilitatorID int) ([]int, error) {
	groupIDs, err := repo.GroupIDsByFacilitator(facilitatorID)
	if err != nil {
		return nil, err
	}
	if len(groupIDs) == 0 {
		return nil, nil
	}
	students, err := repo.QueryStudents(academy.StudentFilter{GroupIDs: groupIDs})
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(students))
	for _, std := range students {
		ids = append(ids, std.ID)
	}
	return ids, nil
}

func (repo *academyRepository) StudentsWithBirthdayInMonth(month time.Month, filter academy.StudentFilter) ([]academy.Student, error) {
	students, err := repo.QueryStudents(filter)
	if err != nil {
		return nil, err
	}
	out := make([]academy.Student, 0, len(students))
	for _, std := range students {
		if std.BirthDate.Month() == month {
			out = append(out, std)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BirthDate.Day() < out[j].BirthDate.Day() })
	return out, nil
}

// ----------------------------------------------------------------------------
// attendance

func (repo *academyRepository) CreateAttendance(att academy.Attendance) (academy.Attendance, error) {
	t := repo.db.attendance
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, a := range t.table {
		if a.StudentID == att.StudentID && a.Session == att.Session {
			return academy.Attendance{}, academy.ErrAttendanceExists
		}
	}
	t.seq++
	att.ID = t.seq
	t.table[att.ID] = &att
	return att, nil
}

func (repo *academyRepository) QueryAttendance(filter academy.AttendanceFilter) ([]academy.Attendance, error) {
	if filter.MatchNone {
		return []academy.Attendance{}, nil
	}
	t := repo.db.attendance
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	records := make([]academy.Attendance, 0, len(t.table))
	for _, att := range t.table {
		if !matchAttendance(*att, filter) {
			continue
		}
		records = append(records, *att)
	}
	sortAttendance(records, filter.Ordering)
	return records, nil
}

func matchAttendance(att academy.Attendance, filter academy.AttendanceFilter) bool {
	if filter.StudentID != 0 && att.StudentID != filter.StudentID {
		return false
	}
	if filter.StudentIDs != nil && !containsID(filter.StudentIDs, att.StudentID) {
		return false
	}
	if filter.Session != 0 && att.Session != filter.Session {
		return false
	}
	if !filter.From.IsZero() {
		if !att.ClassDate.Valid {
			return false
		}
		if d := att.ClassDate.Time; d.Before(filter.From) || d.After(filter.To) {
			return false
		}
	}
	return true
}

func (repo *academyRepository) GetAttendanceByID(id int) (academy.Attendance, error) {
	t := repo.db.attendance
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if att, ok := t.table[id]; ok {
		return *att, nil
	}
	return academy.Attendance{}, academy.ErrNotFound
}

func (repo *academyRepository) GetAttendanceByStudentSession(studentID, session int) (academy.Attendance, error) {
	t := repo.db.attendance
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	for _, att := range t.table {
		if att.StudentID == studentID && att.Session == session {
			return *att, nil
		}
	}
	return academy.Attendance{}, academy.ErrNotFound
}

func (repo *academyRepository) UpdateAttendance(att academy.Attendance) (academy.Attendance, error) {
	t := repo.db.attendance
	t.mutex.Lock()
	defer t.mutex.Unlock()

	orig, ok := t.table[att.ID]
	if !ok {
		return academy.Attendance{}, academy.ErrNotFound
	}
	*orig = att
	return *orig, nil
}

func (repo *academyRepository) DeleteAttendanceByID(ids ...int) error {
	t := repo.db.attendance
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for _, id := range ids {
		delete(t.table, id)
	}
	return nil
}

// ----------------------------------------------------------------------------
// aggregation

func (repo *academyRepository) AbsencesBySlot(filter academy.AttendanceFilter) ([]academy.SlotAbsenceCount, error) {
	records, err := repo.QueryAttendance(filter)
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int)
	for _, att := range records {
		if att.Outcome != academy.OutcomeAbsent {
			continue
		}
		slotID, ok := repo.slotOf(att.StudentID)
		if !ok {
			continue
		}
		counts[slotID]++
	}

	out := make([]academy.SlotAbsenceCount, 0, len(counts))
	for slotID, n := range counts {
		slt, err := repo.GetSlotByID(slotID)
		if err != nil {
			continue
		}
		out = append(out, academy.SlotAbsenceCount{
			SlotID:    slotID,
			Weekday:   slt.Weekday,
			TimeOfDay: slt.TimeOfDay,
			Absent:    n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out, nil
}

func (repo *academyRepository) OutcomeBreakdownByGroup(filter academy.AttendanceFilter) ([]academy.GroupOutcomeCount, error) {
	records, err := repo.QueryAttendance(filter)
	if err != nil {
		return nil, err
	}

	byGroup := make(map[int]*academy.GroupOutcomeCount)
	for _, att := range records {
		std, err := repo.GetStudentByID(att.StudentID)
		if err != nil || !std.GroupID.Valid {
			continue
		}
		groupID := std.GroupID.Int
		goc, ok := byGroup[groupID]
		if !ok {
			grp, err := repo.GetGroupByID(groupID)
			if err != nil {
				continue
			}
			goc = &academy.GroupOutcomeCount{
				GroupID:       groupID,
				GroupName:     grp.Name,
				FacilitatorID: grp.FacilitatorID,
			}
			byGroup[groupID] = goc
		}
		goc.Counts.Add(att.Outcome, 1)
	}

	out := make([]academy.GroupOutcomeCount, 0, len(byGroup))
	for _, goc := range byGroup {
		out = append(out, *goc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out, nil
}

func (repo *academyRepository) OutcomeTotals(filter academy.AttendanceFilter) (academy.OutcomeCount, error) {
	records, err := repo.QueryAttendance(filter)
	if err != nil {
		return academy.OutcomeCount{}, err
	}
	var totals academy.OutcomeCount
	for _, att := range records {
		totals.Add(att.Outcome, 1)
	}
	return totals, nil
}

// ----------------------------------------------------------------------------
// helpers

// slotOf resolves a student's slot through their group.
func (repo *academyRepository) slotOf(studentID int) (int, bool) {
	std, err := repo.GetStudentByID(studentID)
	if err != nil || !std.GroupID.Valid {
		return 0, false
	}
	grp, err := repo.GetGroupByID(std.GroupID.Int)
	if err != nil {
		return 0, false
	}
	return grp.SlotID, true
}

func containsID(ids []int, id int) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

func sortCourses(courses []academy.Course, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
		return
	}
	sort.SliceStable(courses, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := courses[i], courses[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "is_active":
				if a.IsActive != b.IsActive {
					return !a.IsActive
				}
			case "start_date":
				if !a.StartDate.Equal(b.StartDate) {
					return a.StartDate.Before(b.StartDate)
				}
			case "name":
				if a.Name != b.Name {
					return a.Name < b.Name
				}
			case "id":
				if a.ID != b.ID {
					return a.ID < b.ID
				}
			}
		}
		return false
	})
}

func sortSlots(slots []academy.Slot, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		sort.Slice(slots, func(i, j int) bool { return slots[i].ID < slots[j].ID })
		return
	}
	sort.SliceStable(slots, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := slots[i], slots[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "is_active":
				if a.IsActive != b.IsActive {
					return !a.IsActive
				}
			case "weekday":
				if a.Weekday != b.Weekday {
					return a.Weekday < b.Weekday
				}
			case "time_of_day":
				if a.TimeOfDay != b.TimeOfDay {
					return a.TimeOfDay < b.TimeOfDay
				}
			case "id":
				if a.ID != b.ID {
					return a.ID < b.ID
				}
			}
		}
		return false
	})
}

func sortGroups(groups []academy.Group, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
		return
	}
	sort.SliceStable(groups, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := groups[i], groups[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "is_active":
				if a.IsActive != b.IsActive {
					return !a.IsActive
				}
			case "name":
				if a.Name != b.Name {
					return a.Name < b.Name
				}
			case "id":
				if a.ID != b.ID {
					return a.ID < b.ID
				}
			}
		}
		return false
	})
}

func sortStudents(students []academy.Student, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
		return
	}
	sort.SliceStable(students, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := students[i], students[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "is_active":
				if a.IsActive != b.IsActive {
					return !a.IsActive
				}
			case "last_name":
				if a.LastName != b.LastName {
					return a.LastName < b.LastName
				}
			case "first_name":
				if a.FirstName != b.FirstName {
					return a.FirstName < b.FirstName
				}
			case "id":
				if a.ID != b.ID {
					return a.ID < b.ID
				}
			}
		}
		return false
	})
}

func sortAttendance(records []academy.Attendance, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := records[i], records[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "student_id":
				if a.StudentID != b.StudentID {
					return a.StudentID < b.StudentID
				}
			case "session":
				if a.Session != b.Session {
					return a.Session < b.Session
				}
			case "id":
				if a.ID != b.ID {
					return a.ID < b.ID
				}
			}
		}
		return false
	})
}
