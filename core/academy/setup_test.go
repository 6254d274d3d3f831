package academy_test

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core/academy"
	"github.com/trezcool/mahudhurio/core/user"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
)

func setup(t *testing.T) (academy.Service, academy.Repository, user.Repository) {
	t.Helper()
	db := inmemdb.NewDB()
	repo := inmemdb.NewAcademyRepository(db)
	usrRepo := inmemdb.NewUserRepository(db)
	svc := academy.NewService(repo, usrRepo)
	return svc, repo, usrRepo
}

func createUser(t *testing.T, repo user.Repository, name, role string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := repo.CreateUser(user.User{
		Name:      name,
		Username:  name,
		Email:     name + "@test.cd",
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func createCourse(t *testing.T, repo academy.Repository, name string, isActive bool, start time.Time) academy.Course {
	t.Helper()
	now := time.Now().UTC()
	crs, err := repo.CreateCourse(academy.Course{
		Name:      name,
		StartDate: start,
		EndDate:   start.AddDate(0, 6, 0),
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func createSlot(t *testing.T, repo academy.Repository, courseID int, day academy.Weekday, at string) academy.Slot {
	t.Helper()
	now := time.Now().UTC()
	slt, err := repo.CreateSlot(academy.Slot{
		CourseID:  courseID,
		Weekday:   day,
		TimeOfDay: at,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createSlot() failed: %v", err)
	}
	return slt
}

func createGroup(t *testing.T, repo academy.Repository, slotID, facilitatorID int, name string) academy.Group {
	t.Helper()
	now := time.Now().UTC()
	grp, err := repo.CreateGroup(academy.Group{
		SlotID:        slotID,
		FacilitatorID: facilitatorID,
		Name:          name,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("createGroup() failed: %v", err)
	}
	return grp
}

func createStudent(t *testing.T, repo academy.Repository, groupID int, name string, birth time.Time) academy.Student {
	t.Helper()
	now := time.Now().UTC()
	std := academy.Student{
		FirstName: name,
		LastName:  "Tester",
		BirthDate: birth,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if groupID != 0 {
		std.GroupID = null.IntFrom(groupID)
	}
	std, err := repo.CreateStudent(std)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return std
}

func createAttendance(t *testing.T, repo academy.Repository, studentID, session int, outcome academy.Outcome, classDate time.Time) academy.Attendance {
	t.Helper()
	now := time.Now().UTC()
	att := academy.Attendance{
		StudentID: studentID,
		Session:   session,
		Outcome:   outcome,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !classDate.IsZero() {
		att.ClassDate = null.TimeFrom(classDate)
	}
	att, err := repo.CreateAttendance(att)
	if err != nil {
		t.Fatalf("createAttendance() failed: %v", err)
	}
	return att
}

func bPtr(b bool) *bool { return &b }
func iPtr(i int) *int   { return &i }

func ids(students []academy.Student) []int {
	out := make([]int, 0, len(students))
	for _, std := range students {
		out = append(out, std.ID)
	}
	return out
}
