package academy

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

// ErrMalformedBatch rejects a bulk upsert payload that is not a JSON array.
var ErrMalformedBatch = errors.New("expected a list of attendance items")

// AttendanceUpsert is one item of a bulk attendance batch. The (student,
// session) pair addresses the record: an existing record is overwritten,
// otherwise one is created.
type AttendanceUpsert struct {
	StudentID   int     `json:"student" validate:"required"`
	Session     int     `json:"session" validate:"required,min=1,max=23"`
	Outcome     Outcome `json:"outcome" validate:"required,outcome"`
	Reason      string  `json:"reason"`
	EarlySlotID int     `json:"early_slot"`
	ClassDate   string  `json:"class_date" validate:"omitempty,datetime=2006-01-02"`
}

func (au *AttendanceUpsert) Validate(validate *validator.Validate) error {
	au.Reason = core.CleanString(au.Reason)
	if err := validate.Struct(au); err != nil {
		return err
	}
	if au.Outcome == OutcomeEarly && au.EarlySlotID == 0 {
		return core.NewValidationError(nil,
			core.FieldError{Field: "early_slot", Error: "required for an early outcome"})
	}
	return nil
}

// UpdateAttendance defines what information may be provided to modify an
// existing Attendance record. The (student, session) address is immutable.
type UpdateAttendance struct {
	Outcome     Outcome `json:"outcome" validate:"omitempty,outcome"`
	Reason      string  `json:"reason"`
	EarlySlotID *int    `json:"early_slot"`
	ClassDate   string  `json:"class_date" validate:"omitempty,datetime=2006-01-02"`
}

func (ua *UpdateAttendance) Validate(validate *validator.Validate) error {
	ua.Reason = core.CleanString(ua.Reason)
	return validate.Struct(ua)
}

// ItemError reports one failed item of a bulk upsert batch; the remaining
// items are unaffected.
type ItemError struct {
	Index     int    `json:"index"`
	StudentID int    `json:"student"`
	Session   int    `json:"session"`
	Error     string `json:"error"`
}

// UpsertedAttendance is one written record of a bulk upsert batch; Created
// tells a fresh record apart from an overwritten one.
type UpsertedAttendance struct {
	Attendance
	Created bool `json:"created"`
}

// BulkUpsertResult is the outcome of a bulk attendance batch. Results holds
// the written records in the order their items appeared in the batch.
type BulkUpsertResult struct {
	Results []UpsertedAttendance `json:"results"`
	Skipped int                  `json:"skipped"`
	Errors  []ItemError          `json:"errors"`
}

func (svc *service) QueryAttendance(usr user.User, filter AttendanceFilter) ([]Attendance, error) {
	if err := Authorize(usr, ActionList, KindAttendance); err != nil {
		return nil, err
	}
	scope, err := svc.scopeAttendance(usr)
	if err != nil {
		return nil, err
	}
	filter.MatchNone = filter.MatchNone || scope.MatchNone
	if scope.StudentIDs != nil {
		filter.StudentIDs = intersectIDs(filter.StudentIDs, scope.StudentIDs)
		if len(filter.StudentIDs) == 0 {
			filter.MatchNone = true
		}
	}
	if len(filter.Ordering) == 0 {
		filter.Ordering = defaultAttendanceOrdering()
	}
	return svc.repo.QueryAttendance(filter)
}

func (svc *service) GetAttendance(usr user.User, id int) (Attendance, error) {
	if err := Authorize(usr, ActionRead, KindAttendance); err != nil {
		return Attendance{}, err
	}
	att, err := svc.repo.GetAttendanceByID(id)
	if err != nil {
		return Attendance{}, err
	}
	if !usr.IsAdmin() && !svc.ownsAttendance(usr, att) {
		return Attendance{}, ErrNotOwner
	}
	return att, nil
}

func (svc *service) UpdateAttendance(usr user.User, id int, ua UpdateAttendance) (Attendance, error) {
	if err := Authorize(usr, ActionUpdate, KindAttendance); err != nil {
		return Attendance{}, err
	}
	att, err := svc.repo.GetAttendanceByID(id)
	if err != nil {
		return Attendance{}, err
	}
	if !usr.IsAdmin() && !svc.ownsAttendance(usr, att) {
		return Attendance{}, ErrNotOwner
	}
	if ua.Outcome != "" {
		att.Outcome = ua.Outcome
	}
	if ua.Reason != "" {
		att.Reason = null.StringFrom(ua.Reason)
	}
	if ua.EarlySlotID != nil {
		if *ua.EarlySlotID == 0 {
			att.EarlySlotID = null.Int{}
		} else {
			if _, err = svc.repo.GetSlotByID(*ua.EarlySlotID); err != nil {
				if err == ErrNotFound {
					return Attendance{}, core.NewValidationError(ErrSlotNotFound,
						core.FieldError{Field: "early_slot", Error: ErrSlotNotFound.Error()})
				}
				return Attendance{}, err
			}
			att.EarlySlotID = null.IntFrom(*ua.EarlySlotID)
		}
	}
	if ua.ClassDate != "" {
		att.ClassDate = null.TimeFrom(ParseDate(ua.ClassDate))
	}
	att.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAttendance(att)
}

func (svc *service) DeleteAttendance(usr user.User, id int) error {
	if err := Authorize(usr, ActionDelete, KindAttendance); err != nil {
		return err
	}
	att, err := svc.repo.GetAttendanceByID(id)
	if err != nil {
		return err
	}
	if !usr.IsAdmin() && !svc.ownsAttendance(usr, att) {
		return ErrNotOwner
	}
	return svc.repo.DeleteAttendanceByID(id)
}

// BulkUpsertAttendance applies a batch of attendance items. Items addressing
// students outside a facilitator's own groups are skipped without error;
// items that fail individually are reported in the result and do not abort
// the rest of the batch.
func (svc *service) BulkUpsertAttendance(usr user.User, items []AttendanceUpsert) (BulkUpsertResult, error) {
	if err := Authorize(usr, ActionBulkUpsert, KindAttendance); err != nil {
		return BulkUpsertResult{}, err
	}

	var owned map[int]struct{}
	if !usr.IsAdmin() {
		ids, err := svc.repo.OwnedStudentIDs(usr.ID)
		if err != nil {
			return BulkUpsertResult{}, err
		}
		owned = make(map[int]struct{}, len(ids))
		for _, id := range ids {
			owned[id] = struct{}{}
		}
	}

	var res BulkUpsertResult
	for i, item := range items {
		if owned != nil {
			if _, ok := owned[item.StudentID]; !ok {
				res.Skipped++
				continue
			}
		}
		att, created, err := svc.upsertAttendanceItem(item)
		if err != nil {
			res.Errors = append(res.Errors, ItemError{
				Index:     i,
				StudentID: item.StudentID,
				Session:   item.Session,
				Error:     err.Error(),
			})
			continue
		}
		res.Results = append(res.Results, UpsertedAttendance{Attendance: att, Created: created})
	}
	return res, nil
}

func (svc *service) upsertAttendanceItem(item AttendanceUpsert) (Attendance, bool, error) {
	if _, err := svc.repo.GetStudentByID(item.StudentID); err != nil {
		return Attendance{}, false, err
	}
	if item.Outcome == OutcomeEarly {
		if _, err := svc.repo.GetSlotByID(item.EarlySlotID); err != nil {
			if err == ErrNotFound {
				return Attendance{}, false, ErrSlotNotFound
			}
			return Attendance{}, false, err
		}
	}

	now := time.Now().UTC()
	classDate := now.Truncate(24 * time.Hour)
	if item.ClassDate != "" {
		classDate = ParseDate(item.ClassDate)
	}

	att, err := svc.repo.GetAttendanceByStudentSession(item.StudentID, item.Session)
	switch err {
	case nil:
		att.Outcome = item.Outcome
		att.Reason = nullStr(item.Reason)
		att.EarlySlotID = nullInt(item.EarlySlotID)
		att.ClassDate = null.TimeFrom(classDate)
		att.UpdatedAt = now
		att, err = svc.repo.UpdateAttendance(att)
		return att, false, err
	case ErrNotFound:
		att = Attendance{
			StudentID:   item.StudentID,
			Session:     item.Session,
			Outcome:     item.Outcome,
			Reason:      nullStr(item.Reason),
			EarlySlotID: nullInt(item.EarlySlotID),
			ClassDate:   null.TimeFrom(classDate),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		att, err = svc.repo.CreateAttendance(att)
		return att, true, err
	default:
		return Attendance{}, false, err
	}
}

func nullStr(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

func nullInt(i int) null.Int {
	if i == 0 {
		return null.Int{}
	}
	return null.IntFrom(i)
}
