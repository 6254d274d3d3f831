package academy

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
)

// wire formats for date and time-of-day fields
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Class sessions are numbered within a course cycle.
const (
	MinSession = 1
	MaxSession = 23
)

// Weekday is one of the two fixed class days of a Slot.
type Weekday string

const (
	WeekdayMidweek Weekday = "midweek"
	WeekdayWeekend Weekday = "weekend"
)

func (d Weekday) Valid() bool {
	return d == WeekdayMidweek || d == WeekdayWeekend
}

// Outcome is the recorded result of a Student's class session.
type Outcome string

const (
	OutcomeAttended Outcome = "attended"
	OutcomeAbsent   Outcome = "absent"
	OutcomeMadeUp   Outcome = "made_up"
	OutcomeEarly    Outcome = "early" // attended ahead of time in another slot
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeAttended, OutcomeAbsent, OutcomeMadeUp, OutcomeEarly:
		return true
	}
	return false
}

// Course is the root of the hierarchy; eg. "Discipleship 2025 - Semester 1".
type Course struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Slot is one of a Course's fixed weekly schedule slots; eg. "midweek 19:00".
type Slot struct {
	ID        int       `json:"id" db:"id"`
	CourseID  int       `json:"course" db:"course_id"`
	Weekday   Weekday   `json:"weekday" db:"weekday"`
	TimeOfDay string    `json:"time" db:"time_of_day"` // "HH:MM"
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Group is a facilitator's table within a Slot.
type Group struct {
	ID            int       `json:"id" db:"id"`
	SlotID        int       `json:"slot" db:"slot_id"`
	FacilitatorID int       `json:"facilitator" db:"facilitator_id"`
	Name          string    `json:"name" db:"name"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Student belongs to at most one Group at a time; it is left unassigned
// (GroupID null) when its Group is deleted.
type Student struct {
	ID           int       `json:"id" db:"id"`
	GroupID      null.Int  `json:"group" db:"group_id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	BirthDate    time.Time `json:"birth_date" db:"birth_date"`
	Phone        string    `json:"phone" db:"phone"`
	Neighborhood string    `json:"neighborhood" db:"neighborhood"`
	Street       string    `json:"street" db:"street"`
	HouseNumber  string    `json:"house_number" db:"house_number"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Attendance records a Student's outcome for a numbered class session.
// At most one record exists per (Student, Session) pair.
type Attendance struct {
	ID          int         `json:"id" db:"id"`
	StudentID   int         `json:"student" db:"student_id"`
	Session     int         `json:"session" db:"session"`
	Outcome     Outcome     `json:"outcome" db:"outcome"`
	Reason      null.String `json:"reason" db:"reason"`         // for absent / made_up
	EarlySlotID null.Int    `json:"early_slot" db:"early_slot_id"` // for early
	ClassDate   null.Time   `json:"class_date" db:"class_date"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Empty fields are left untouched; IsActive=false triggers the deactivation cascade.
type UpdateCourse struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	IsActive  *bool  `json:"is_active"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	return validate.Struct(uc)
}

// NewSlot contains information needed to create a new Slot.
type NewSlot struct {
	CourseID  int     `json:"course" validate:"required"`
	Weekday   Weekday `json:"weekday" validate:"required,weekday"`
	TimeOfDay string  `json:"time" validate:"required,datetime=15:04"`
}

func (ns *NewSlot) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

// UpdateSlot defines what information may be provided to modify an existing Slot.
type UpdateSlot struct {
	Weekday   Weekday `json:"weekday" validate:"omitempty,weekday"`
	TimeOfDay string  `json:"time" validate:"omitempty,datetime=15:04"`
	IsActive  *bool   `json:"is_active"`
}

func (us *UpdateSlot) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}

// NewGroup contains information needed to create a new Group.
// The assigned facilitator must be an active user holding the facilitator role.
type NewGroup struct {
	SlotID        int    `json:"slot" validate:"required"`
	FacilitatorID int    `json:"facilitator" validate:"required"`
	Name          string `json:"name"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}

// UpdateGroup defines what information may be provided to modify an existing Group.
type UpdateGroup struct {
	SlotID        int    `json:"slot"`
	FacilitatorID int    `json:"facilitator"`
	Name          string `json:"name"`
	IsActive      *bool  `json:"is_active"`
}

func (ug *UpdateGroup) Validate(validate *validator.Validate) error {
	ug.Name = core.CleanString(ug.Name)
	return validate.Struct(ug)
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	GroupID      *int   `json:"group"`
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	BirthDate    string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Phone        string `json:"phone"`
	Neighborhood string `json:"neighborhood"`
	Street       string `json:"street"`
	HouseNumber  string `json:"house_number"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// GroupID: nil leaves the membership untouched, 0 unassigns, >0 reassigns.
type UpdateStudent struct {
	GroupID      *int   `json:"group"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	BirthDate    string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Phone        string `json:"phone"`
	Neighborhood string `json:"neighborhood"`
	Street       string `json:"street"`
	HouseNumber  string `json:"house_number"`
	IsActive     *bool  `json:"is_active"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.FirstName = core.CleanString(us.FirstName)
	us.LastName = core.CleanString(us.LastName)
	return validate.Struct(us)
}

// ParseDate parses a DateLayout value previously checked by the validator.
func ParseDate(s string) time.Time {
	t, _ := time.Parse(DateLayout, s)
	return t
}
