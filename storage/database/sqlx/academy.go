package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/academy"
)

type academyRepository struct {
	db *sqlx.DB
}

func NewAcademyRepository(db *sqlx.DB) academy.Repository {
	return &academyRepository{db: db}
}

const (
	courseCols     = `id, name, start_date, end_date, is_active, created_at, updated_at`
	slotCols       = `id, course_id, weekday, time_of_day, is_active, created_at, updated_at`
	groupCols      = `id, slot_id, facilitator_id, name, is_active, created_at, updated_at`
	studentCols    = `id, group_id, first_name, last_name, birth_date, phone, neighborhood, street, house_number, is_active, created_at, updated_at`
	attendanceCols = `id, student_id, session, outcome, reason, early_slot_id, class_date, created_at, updated_at`
)

// ----------------------------------------------------------------------------
// courses

func (repo *academyRepository) CreateCourse(crs academy.Course) (academy.Course, error) {
	query := `
INSERT INTO course (name, start_date, end_date, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	err := repo.db.QueryRow(
		query,
		crs.Name, crs.StartDate, crs.EndDate, crs.IsActive, crs.CreatedAt, crs.UpdatedAt,
	).Scan(&crs.ID)
	if err != nil {
		return academy.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *academyRepository) QueryCourses(filter academy.CourseFilter) ([]academy.Course, error) {
	query := `SELECT ` + courseCols + ` FROM course`
	var where []string
	var args []interface{}
	if filter.IsActive != nil {
		where = append(where, `is_active = ?`)
		args = append(args, *filter.IsActive)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += orderBy(filter.Ordering, courseOrderFields)

	courses := make([]academy.Course, 0)
	if err := repo.db.Select(&courses, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo *academyRepository) GetCourseByID(id int) (academy.Course, error) {
	var crs academy.Course
	err := repo.db.Get(&crs, `SELECT `+courseCols+` FROM course WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return academy.Course{}, academy.ErrNotFound
		}
		return academy.Course{}, errors.Wrap(err, "getting course")
	}
	return crs, nil
}

func (repo *academyRepository) UpdateCourse(crs academy.Course, isActive *bool) (academy.Course, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{crs.UpdatedAt}
	set := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if crs.Name != "" {
		set("name", crs.Name)
	}
	if !crs.StartDate.IsZero() {
		set("start_date", crs.StartDate)
	}
	if !crs.EndDate.IsZero() {
		set("end_date", crs.EndDate)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	args = append(args, crs.ID)

	res, err := repo.db.Exec(repo.db.Rebind(`UPDATE course SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return academy.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academy.Course{}, academy.ErrNotFound
	}
	return repo.GetCourseByID(crs.ID)
}

// ----------------------------------------------------------------------------
// slots

func (repo *academyRepository) CreateSlot(slt academy.Slot) (academy.Slot, error) {
	query := `
INSERT INTO slot (course_id, weekday, time_of_day, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	err := repo.db.QueryRow(
		query,
		slt.CourseID, slt.Weekday, slt.TimeOfDay, slt.IsActive, slt.CreatedAt, slt.UpdatedAt,
	).Scan(&slt.ID)
	if err != nil {
		return academy.Slot{}, errors.Wrap(err, "creating slot")
	}
	return slt, nil
}

func (repo *academyRepository) QuerySlots(filter academy.SlotFilter) ([]academy.Slot, error) {
	query := `SELECT ` + slotCols + ` FROM slot`
	var where []string
	var args []interface{}
	if filter.CourseID != 0 {
		where = append(where, `course_id = ?`)
		args = append(args, filter.CourseID)
	}
	if filter.IsActive != nil {
		where = append(where, `is_active = ?`)
		args = append(args, *filter.IsActive)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += orderBy(filter.Ordering, slotOrderFields)

	slots := make([]academy.Slot, 0)
	if err := repo.db.Select(&slots, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying slots")
	}
	return slots, nil
}

func (repo *academyRepository) GetSlotByID(id int) (academy.Slot, error) {
	var slt academy.Slot
	err := repo.db.Get(&slt, `SELECT `+slotCols+` FROM slot WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return academy.Slot{}, academy.ErrNotFound
		}
		return academy.Slot{}, errors.Wrap(err, "getting slot")
	}
	return slt, nil
}

func (repo *academyRepository) UpdateSlot(slt academy.Slot, isActive *bool) (academy.Slot, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{slt.UpdatedAt}
	set := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if slt.Weekday != "" {
		set("weekday", slt.Weekday)
	}
	if slt.TimeOfDay != "" {
		set("time_of_day", slt.TimeOfDay)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	args = append(args, slt.ID)

	res, err := repo.db.Exec(repo.db.Rebind(`UPDATE slot SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return academy.Slot{}, errors.Wrap(err, "updating slot")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academy.Slot{}, academy.ErrNotFound
	}
	return repo.GetSlotByID(slt.ID)
}

func (repo *academyRepository) SlotIDsByCourse(courseID int) ([]int, error) {
	ids := make([]int, 0)
	err := repo.db.Select(&ids, `SELECT id FROM slot WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying slot ids")
	}
	return ids, nil
}

// ----------------------------------------------------------------------------
// groups

func (repo *academyRepository) CreateGroup(grp academy.Group) (academy.Group, error) {
	query := `
INSERT INTO "group" (slot_id, facilitator_id, name, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	err := repo.db.QueryRow(
		query,
		grp.SlotID, grp.FacilitatorID, grp.Name, grp.IsActive, grp.CreatedAt, grp.UpdatedAt,
	).Scan(&grp.ID)
	if err != nil {
		return academy.Group{}, errors.Wrap(err, "creating group")
	}
	return grp, nil
}

func (repo *academyRepository) QueryGroups(filter academy.GroupFilter) ([]academy.Group, error) {
	if filter.MatchNone {
		return []academy.Group{}, nil
	}
	query := `SELECT ` + groupCols + ` FROM "group"`
	var where []string
	var args []interface{}
	if filter.SlotID != 0 {
		where = append(where, `slot_id = ?`)
		args = append(args, filter.SlotID)
	}
	if filter.FacilitatorID != 0 {
		where = append(where, `facilitator_id = ?`)
		args = append(args, filter.FacilitatorID)
	}
	if filter.IsActive != nil {
		where = append(where, `is_active = ?`)
		args = append(args, *filter.IsActive)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += orderBy(filter.Ordering, groupOrderFields)

	groups := make([]academy.Group, 0)
	if err := repo.db.Select(&groups, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	return groups, nil
}

func (repo *academyRepository) GetGroupByID(id int) (academy.Group, error) {
	var grp academy.Group
	err := repo.db.Get(&grp, `SELECT `+groupCols+` FROM "group" WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return academy.Group{}, academy.ErrNotFound
		}
		return academy.Group{}, errors.Wrap(err, "getting group")
	}
	return grp, nil
}

func (repo *academyRepository) UpdateGroup(grp academy.Group, isActive *bool) (academy.Group, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{grp.UpdatedAt}
	set := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if grp.SlotID != 0 {
		set("slot_id", grp.SlotID)
	}
	if grp.FacilitatorID != 0 {
		set("facilitator_id", grp.FacilitatorID)
	}
	if grp.Name != "" {
		set("name", grp.Name)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	args = append(args, grp.ID)

	res, err := repo.db.Exec(repo.db.Rebind(`UPDATE "group" SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return academy.Group{}, errors.Wrap(err, "updating group")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academy.Group{}, academy.ErrNotFound
	}
	return repo.GetGroupByID(grp.ID)
}

func (repo *academyRepository) GroupIDsByFacilitator(facilitatorID int) ([]int, error) {
	ids := make([]int, 0)
	err := repo.db.Select(&ids, `SELECT id FROM "group" WHERE facilitator_id = $1 ORDER BY id`, facilitatorID)
	if err != nil {
		return nil, errors.Wrap(err, "querying group ids")
	}
	return ids, nil
}

func (repo *academyRepository) ActiveGroupIDsByFacilitator(facilitatorID int) ([]int, error) {
	ids := make([]int, 0)
	query := `SELECT id FROM "group" WHERE facilitator_id = $1 AND is_active ORDER BY id`
	if err := repo.db.Select(&ids, query, facilitatorID); err != nil {
		return nil, errors.Wrap(err, "querying active group ids")
	}
	return ids, nil
}

func (repo *academyRepository) DeactivateGroupsBySlotIDs(slotIDs ...int) ([]int, error) {
	if len(slotIDs) == 0 {
		return nil, nil
	}
	ids := make([]int, 0)
	query := `
UPDATE "group" SET is_active = FALSE, updated_at = $1
WHERE slot_id = ANY($2)
RETURNING id`
	err := repo.db.Select(&ids, query, time.Now().UTC(), pq.Array(slotIDs))
	if err != nil {
		return nil, errors.Wrap(err, "deactivating groups")
	}
	return ids, nil
}

// ----------------------------------------------------------------------------
// students

func (repo *academyRepository) CreateStudent(std academy.Student) (academy.Student, error) {
	query := `
INSERT INTO student (group_id, first_name, last_name, birth_date, phone, neighborhood, street, house_number, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`
	err := repo.db.QueryRow(
		query,
		std.GroupID, std.FirstName, std.LastName, std.BirthDate, std.Phone,
		std.Neighborhood, std.Street, std.HouseNumber, std.IsActive, std.CreatedAt, std.UpdatedAt,
	).Scan(&std.ID)
	if err != nil {
		return academy.Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

func (repo *academyRepository) QueryStudents(filter academy.StudentFilter) ([]academy.Student, error) {
	if filter.MatchNone {
		return []academy.Student{}, nil
	}
	query := `SELECT ` + studentCols + ` FROM student`
	where, args := studentWhere(filter)
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += orderBy(filter.Ordering, studentOrderFields)

	students := make([]academy.Student, 0)
	if err := repo.db.Select(&students, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func studentWhere(filter academy.StudentFilter) ([]string, []interface{}) {
	var where []string
	var args []interface{}
	if filter.GroupID != 0 {
		where = append(where, `group_id = ?`)
		args = append(args, filter.GroupID)
	}
	if filter.GroupIDs != nil {
		where = append(where, `group_id = ANY(?)`)
		args = append(args, pq.Array(filter.GroupIDs))
	}
	if filter.IsActive != nil {
		where = append(where, `is_active = ?`)
		args = append(args, *filter.IsActive)
	}
	return where, args
}

func (repo *academyRepository) GetStudentByID(id int) (academy.Student, error) {
	var std academy.Student
	err := repo.db.Get(&std, `SELECT `+studentCols+` FROM student WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return academy.Student{}, academy.ErrNotFound
		}
		return academy.Student{}, errors.Wrap(err, "getting student")
	}
	return std, nil
}

func (repo *academyRepository) UpdateStudent(std academy.Student, groupID *int, isActive *bool) (academy.Student, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{std.UpdatedAt}
	set := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if std.FirstName != "" {
		set("first_name", std.FirstName)
	}
	if std.LastName != "" {
		set("last_name", std.LastName)
	}
	if !std.BirthDate.IsZero() {
		set("birth_date", std.BirthDate)
	}
	if std.Phone != "" {
		set("phone", std.Phone)
	}
	if std.Neighborhood != "" {
		set("neighborhood", std.Neighborhood)
	}
	if std.Street != "" {
		set("street", std.Street)
	}
	if std.HouseNumber != "" {
		set("house_number", std.HouseNumber)
	}
	if groupID != nil {
		if *groupID == 0 {
			set("group_id", nil)
		} else {
			set("group_id", *groupID)
		}
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	args = append(args, std.ID)

	res, err := repo.db.Exec(repo.db.Rebind(`UPDATE student SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return academy.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academy.Student{}, academy.ErrNotFound
	}
	return repo.GetStudentByID(std.ID)
}

func (repo *academyRepository) DeactivateStudentsByGroupIDs(groupIDs ...int) error {
	if len(groupIDs) == 0 {
		return nil
	}
	query := `UPDATE student SET is_active = FALSE, updated_at = $1 WHERE group_id = ANY($2)`
	if _, err := repo.db.Exec(query, time.Now().UTC(), pq.Array(groupIDs)); err != nil {
		return errors.Wrap(err, "deactivating students")
	}
	return nil
}

func (repo *academyRepository) OwnedStudentIDs(facilitatorID int) ([]int, error) {
	ids := make([]int, 0)
	query := `
SELECT s.id FROM student s
JOIN "group" g ON g.id = s.group_id
WHERE g.facilitator_id = $1
ORDER BY s.id`
	if err := repo.db.Select(&ids, query, facilitatorID); err != nil {
		return nil, errors.Wrap(err, "querying owned student ids")
	}
	return ids, nil
}

func (repo *academyRepository) StudentsWithBirthdayInMonth(month time.Month, filter academy.StudentFilter) ([]academy.Student, error) {
	if filter.MatchNone {
		return []academy.Student{}, nil
	}
	where, args := studentWhere(filter)
	where = append(where, `EXTRACT(MONTH FROM birth_date) = ?`)
	args = append(args, int(month))

	query := `SELECT ` + studentCols + ` FROM student WHERE ` + strings.Join(where, ` AND `) +
		` ORDER BY EXTRACT(DAY FROM birth_date), id`

	students := make([]academy.Student, 0)
	if err := repo.db.Select(&students, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying birthdays")
	}
	return students, nil
}

// ----------------------------------------------------------------------------
// attendance

func (repo *academyRepository) CreateAttendance(att academy.Attendance) (academy.Attendance, error) {
	query := `
INSERT INTO attendance (student_id, session, outcome, reason, early_slot_id, class_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	err := repo.db.QueryRow(
		query,
		att.StudentID, att.Session, att.Outcome, att.Reason, att.EarlySlotID,
		att.ClassDate, att.CreatedAt, att.UpdatedAt,
	).Scan(&att.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return academy.Attendance{}, academy.ErrAttendanceExists
		}
		return academy.Attendance{}, errors.Wrap(err, "creating attendance")
	}
	return att, nil
}

func (repo *academyRepository) QueryAttendance(filter academy.AttendanceFilter) ([]academy.Attendance, error) {
	if filter.MatchNone {
		return []academy.Attendance{}, nil
	}
	query := `SELECT ` + attendanceCols + ` FROM attendance`
	where, args := attendanceWhere(filter, "")
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += orderBy(filter.Ordering, attendanceOrderFields)

	records := make([]academy.Attendance, 0)
	if err := repo.db.Select(&records, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return records, nil
}

func attendanceWhere(filter academy.AttendanceFilter, prefix string) ([]string, []interface{}) {
	var where []string
	var args []interface{}
	if filter.StudentID != 0 {
		where = append(where, prefix+`student_id = ?`)
		args = append(args, filter.StudentID)
	}
	if filter.StudentIDs != nil {
		where = append(where, prefix+`student_id = ANY(?)`)
		args = append(args, pq.Array(filter.StudentIDs))
	}
	if filter.Session != 0 {
		where = append(where, prefix+`session = ?`)
		args = append(args, filter.Session)
	}
	if !filter.From.IsZero() {
		where = append(where, prefix+`class_date BETWEEN ? AND ?`)
		args = append(args, filter.From, filter.To)
	}
	return where, args
}

func (repo *academyRepository) GetAttendanceByID(id int) (academy.Attendance, error) {
	var att academy.Attendance
	err := repo.db.Get(&att, `SELECT `+attendanceCols+` FROM attendance WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return academy.Attendance{}, academy.ErrNotFound
		}
		return academy.Attendance{}, errors.Wrap(err, "getting attendance")
	}
	return att, nil
}

func (repo *academyRepository) GetAttendanceByStudentSession(studentID, session int) (academy.Attendance, error) {
	var att academy.Attendance
	err := repo.db.Get(
		&att,
		`SELECT `+attendanceCols+` FROM attendance WHERE student_id = $1 AND session = $2`,
		studentID, session,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return academy.Attendance{}, academy.ErrNotFound
		}
		return academy.Attendance{}, errors.Wrap(err, "getting attendance")
	}
	return att, nil
}

func (repo *academyRepository) UpdateAttendance(att academy.Attendance) (academy.Attendance, error) {
	query := `
UPDATE attendance
SET outcome = $1, reason = $2, early_slot_id = $3, class_date = $4, updated_at = $5
WHERE id = $6`
	res, err := repo.db.Exec(query, att.Outcome, att.Reason, att.EarlySlotID, att.ClassDate, att.UpdatedAt, att.ID)
	if err != nil {
		return academy.Attendance{}, errors.Wrap(err, "updating attendance")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academy.Attendance{}, academy.ErrNotFound
	}
	return att, nil
}

func (repo *academyRepository) DeleteAttendanceByID(ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM attendance WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return nil
}

// ----------------------------------------------------------------------------
// aggregation

func (repo *academyRepository) AbsencesBySlot(filter academy.AttendanceFilter) ([]academy.SlotAbsenceCount, error) {
	if filter.MatchNone {
		return []academy.SlotAbsenceCount{}, nil
	}
	where, args := attendanceWhere(filter, "a.")
	where = append(where, `a.outcome = ?`)
	args = append(args, academy.OutcomeAbsent)

	query := `
SELECT sl.id AS slot, sl.weekday, sl.time_of_day AS time, COUNT(*) AS absent
FROM attendance a
JOIN student st ON st.id = a.student_id
JOIN "group" g ON g.id = st.group_id
JOIN slot sl ON sl.id = g.slot_id
WHERE ` + strings.Join(where, ` AND `) + `
GROUP BY sl.id, sl.weekday, sl.time_of_day
ORDER BY sl.id`

	rows, err := repo.db.Queryx(repo.db.Rebind(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying absences")
	}
	defer rows.Close()

	out := make([]academy.SlotAbsenceCount, 0)
	for rows.Next() {
		var sac academy.SlotAbsenceCount
		if err = rows.Scan(&sac.SlotID, &sac.Weekday, &sac.TimeOfDay, &sac.Absent); err != nil {
			return nil, errors.Wrap(err, "scanning row")
		}
		out = append(out, sac)
	}
	return out, rows.Err()
}

func (repo *academyRepository) OutcomeBreakdownByGroup(filter academy.AttendanceFilter) ([]academy.GroupOutcomeCount, error) {
	if filter.MatchNone {
		return []academy.GroupOutcomeCount{}, nil
	}
	where, args := attendanceWhere(filter, "a.")

	query := `
SELECT g.id, g.name, g.facilitator_id, a.outcome, COUNT(*) AS n
FROM attendance a
JOIN student st ON st.id = a.student_id
JOIN "group" g ON g.id = st.group_id`
	if len(where) > 0 {
		query += `
WHERE ` + strings.Join(where, ` AND `)
	}
	query += `
GROUP BY g.id, g.name, g.facilitator_id, a.outcome
ORDER BY g.id`

	rows, err := repo.db.Queryx(repo.db.Rebind(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying group breakdown")
	}
	defer rows.Close()

	out := make([]academy.GroupOutcomeCount, 0)
	for rows.Next() {
		var (
			id, facID, n int
			name         string
			outcome      academy.Outcome
		)
		if err = rows.Scan(&id, &name, &facID, &outcome, &n); err != nil {
			return nil, errors.Wrap(err, "scanning row")
		}
		if len(out) == 0 || out[len(out)-1].GroupID != id {
			out = append(out, academy.GroupOutcomeCount{GroupID: id, GroupName: name, FacilitatorID: facID})
		}
		out[len(out)-1].Counts.Add(outcome, n)
	}
	return out, rows.Err()
}

func (repo *academyRepository) OutcomeTotals(filter academy.AttendanceFilter) (academy.OutcomeCount, error) {
	if filter.MatchNone {
		return academy.OutcomeCount{}, nil
	}
	where, args := attendanceWhere(filter, "")
	query := `SELECT outcome, COUNT(*) AS n FROM attendance`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` GROUP BY outcome`

	rows, err := repo.db.Queryx(repo.db.Rebind(query), args...)
	if err != nil {
		return academy.OutcomeCount{}, errors.Wrap(err, "querying totals")
	}
	defer rows.Close()

	var totals academy.OutcomeCount
	for rows.Next() {
		var (
			outcome academy.Outcome
			n       int
		)
		if err = rows.Scan(&outcome, &n); err != nil {
			return academy.OutcomeCount{}, errors.Wrap(err, "scanning row")
		}
		totals.Add(outcome, n)
	}
	return totals, rows.Err()
}

// ----------------------------------------------------------------------------
// helpers

var (
	courseOrderFields     = map[string]bool{"id": true, "name": true, "start_date": true, "is_active": true, "created_at": true}
	slotOrderFields       = map[string]bool{"id": true, "weekday": true, "time_of_day": true, "is_active": true, "created_at": true}
	groupOrderFields      = map[string]bool{"id": true, "name": true, "is_active": true, "created_at": true}
	studentOrderFields    = map[string]bool{"id": true, "first_name": true, "last_name": true, "is_active": true, "created_at": true}
	attendanceOrderFields = map[string]bool{"id": true, "student_id": true, "session": true, "class_date": true, "created_at": true}
)

// orderBy renders a whitelisted ORDER BY clause; unknown fields are dropped.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool) string {
	var parts []string
	for _, ord := range ordering {
		if allowed[ord.Field] {
			parts = append(parts, ord.String())
		}
	}
	if len(parts) == 0 {
		return ` ORDER BY id`
	}
	return ` ORDER BY ` + strings.Join(parts, ", ")
}
