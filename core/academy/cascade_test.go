package academy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mahudhurio/core/academy"
	"github.com/trezcool/mahudhurio/core/user"
)

func TestCourseDeactivationCascades(t *testing.T) {
	svc, repo, usrRepo := setup(t)
	admin := createUser(t, usrRepo, "admin", user.RoleAdmin, true)
	fac := createUser(t, usrRepo, "fac", user.RoleFacilitator, true)

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	crs := createCourse(t, repo, "Discipleship 2026", true, start)
	slt1 := createSlot(t, repo, crs.ID, academy.WeekdayMidweek, "19:00")
	slt2 := createSlot(t, repo, crs.ID, academy.WeekdayWeekend, "09:00")
	grp1 := createGroup(t, repo, slt1.ID, fac.ID, "Table 1")
	grp2 := createGroup(t, repo, slt2.ID, fac.ID, "Table 2")
	std1 := createStudent(t, repo, grp1.ID, "Ada", time.Date(2000, 3, 10, 0, 0, 0, 0, time.UTC))
	std2 := createStudent(t, repo, grp2.ID, "Ben", time.Date(2001, 4, 11, 0, 0, 0, 0, time.UTC))
	loner := createStudent(t, repo, 0, "Cleo", time.Date(2002, 5, 12, 0, 0, 0, 0, time.UTC))

	_, err := svc.UpdateCourse(admin, crs.ID, academy.UpdateCourse{IsActive: bPtr(false)})
	if err != nil {
		t.Fatalf("UpdateCourse() failed: %v", err)
	}

	crs, _ = repo.GetCourseByID(crs.ID)
	assert.False(t, crs.IsActive)

	// slots keep their own active flag
	for _, id := range []int{slt1.ID, slt2.ID} {
		slt, _ := repo.GetSlotByID(id)
		assert.True(t, slt.IsActive)
	}
	for _, id := range []int{grp1.ID, grp2.ID} {
		grp, _ := repo.GetGroupByID(id)
		assert.False(t, grp.IsActive)
	}
	for _, id := range []int{std1.ID, std2.ID} {
		std, _ := repo.GetStudentByID(id)
		assert.False(t, std.IsActive)
	}

	// unassigned students are out of reach of any cascade
	std, _ := repo.GetStudentByID(loner.ID)
	assert.True(t, std.IsActive)

	// reactivation does not resurrect children
	_, err = svc.UpdateCourse(admin, crs.ID, academy.UpdateCourse{IsActive: bPtr(true)})
	if err != nil {
		t.Fatalf("UpdateCourse() failed: %v", err)
	}
	grp, _ := repo.GetGroupByID(grp1.ID)
	assert.False(t, grp.IsActive)
	std, _ = repo.GetStudentByID(std1.ID)
	assert.False(t, std.IsActive)
}

func TestSlotDeactivationCascades(t *testing.T) {
	svc, repo, usrRepo := setup(t)
	admin := createUser(t, usrRepo, "admin", user.RoleAdmin, true)
	fac := createUser(t, usrRepo, "fac", user.RoleFacilitator, true)

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	crs := createCourse(t, repo, "Discipleship 2026", true, start)
	slt := createSlot(t, repo, crs.ID, academy.WeekdayMidweek, "19:00")
	other := createSlot(t, repo, crs.ID, academy.WeekdayWeekend, "09:00")
	grp := createGroup(t, repo, slt.ID, fac.ID, "Table 1")
	otherGrp := createGroup(t, repo, other.ID, fac.ID, "Table 2")
	std := createStudent(t, repo, grp.ID, "Ada", time.Date(2000, 3, 10, 0, 0, 0, 0, time.UTC))

	if err := svc.DeleteSlot(admin, slt.ID); err != nil {
		t.Fatalf("DeleteSlot() failed: %v", err)
	}

	s, _ := repo.GetSlotByID(slt.ID)
	assert.False(t, s.IsActive)
	g, _ := repo.GetGroupByID(grp.ID)
	assert.False(t, g.IsActive)
	st, _ := repo.GetStudentByID(std.ID)
	assert.False(t, st.IsActive)

	// sibling slot untouched
	g, _ = repo.GetGroupByID(otherGrp.ID)
	assert.True(t, g.IsActive)
	s, _ = repo.GetSlotByID(other.ID)
	assert.True(t, s.IsActive)

	// course untouched
	c, _ := repo.GetCourseByID(crs.ID)
	assert.True(t, c.IsActive)
}

func TestGroupDeactivationCascades(t *testing.T) {
	svc, repo, usrRepo := setup(t)
	admin := createUser(t, usrRepo, "admin", user.RoleAdmin, true)
	fac := createUser(t, usrRepo, "fac", user.RoleFacilitator, true)

	crs := createCourse(t, repo, "Discipleship 2026", true, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	slt := createSlot(t, repo, crs.ID, academy.WeekdayMidweek, "19:00")
	grp := createGroup(t, repo, slt.ID, fac.ID, "Table 1")
	std := createStudent(t, repo, grp.ID, "Ada", time.Date(2000, 3, 10, 0, 0, 0, 0, time.UTC))

	if err := svc.DeleteGroup(admin, grp.ID); err != nil {
		t.Fatalf("DeleteGroup() failed: %v", err)
	}

	g, _ := repo.GetGroupByID(grp.ID)
	assert.False(t, g.IsActive)
	st, _ := repo.GetStudentByID(std.ID)
	assert.False(t, st.IsActive)

	// the slot above is untouched
	s, _ := repo.GetSlotByID(slt.ID)
	assert.True(t, s.IsActive)
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, repo, usrRepo := setup(t)
	admin := createUser(t, usrRepo, "admin", user.RoleAdmin, true)
	fac := createUser(t, usrRepo, "fac", user.RoleFacilitator, true)

	crs := createCourse(t, repo, "Discipleship 2026", true, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	slt := createSlot(t, repo, crs.ID, academy.WeekdayMidweek, "19:00")
	grp := createGroup(t, repo, slt.ID, fac.ID, "Table 1")
	std := createStudent(t, repo, grp.ID, "Ada", time.Date(2000, 3, 10, 0, 0, 0, 0, time.UTC))

	if err := svc.DeleteCourse(admin, crs.ID); err != nil {
		t.Fatalf("DeleteCourse() failed: %v", err)
	}

	// reassign and reactivate a child, then delete the inactive course again:
	// nothing may cascade a second time
	active := true
	if _, err := repo.UpdateStudent(academy.Student{ID: std.ID, UpdatedAt: time.Now().UTC()}, nil, &active); err != nil {
		t.Fatalf("UpdateStudent() failed: %v", err)
	}
	if _, err := repo.UpdateGroup(academy.Group{ID: grp.ID, UpdatedAt: time.Now().UTC()}, &active); err != nil {
		t.Fatalf("UpdateGroup() failed: %v", err)
	}

	if err := svc.DeleteCourse(admin, crs.ID); err != nil {
		t.Fatalf("DeleteCourse() failed: %v", err)
	}
	g, _ := repo.GetGroupByID(grp.ID)
	assert.True(t, g.IsActive)
	st, _ := repo.GetStudentByID(std.ID)
	assert.True(t, st.IsActive)
}

func TestFacilitatorCannotMutateStructure(t *testing.T) {
	svc, repo, usrRepo := setup(t)
	fac := createUser(t, usrRepo, "fac", user.RoleFacilitator, true)
	crs := createCourse(t, repo, "Discipleship 2026", true, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	slt := createSlot(t, repo, crs.ID, academy.WeekdayMidweek, "19:00")

	_, err := svc.CreateCourse(fac, academy.NewCourse{Name: "X", StartDate: "2026-02-01", EndDate: "2026-08-01"})
	assert.Equal(t, academy.ErrOperationNotPermitted, err)

	err = svc.DeleteCourse(fac, crs.ID)
	assert.Equal(t, academy.ErrOperationNotPermitted, err)

	_, err = svc.UpdateSlot(fac, slt.ID, academy.UpdateSlot{})
	assert.Equal(t, academy.ErrOperationNotPermitted, err)

	err = svc.DeleteSlot(fac, slt.ID)
	assert.Equal(t, academy.ErrOperationNotPermitted, err)
}

func TestFacilitatorManagesOwnGroupsOnly(t *testing.T) {
	svc, repo, usrRepo := setup(t)
	fac1 := createUser(t, usrRepo, "fac1", user.RoleFacilitator, true)
	fac2 := createUser(t, usrRepo, "fac2", user.RoleFacilitator, true)
	crs := createCourse(t, repo, "Discipleship 2026", true, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	slt := createSlot(t, repo, crs.ID, academy.WeekdayMidweek, "19:00")
	mine := createGroup(t, repo, slt.ID, fac1.ID, "Table 1")
	theirs := createGroup(t, repo, slt.ID, fac2.ID, "Table 2")
	std := createStudent(t, repo, mine.ID, "Ada", time.Date(2000, 3, 10, 0, 0, 0, 0, time.UTC))

	grp, err := svc.UpdateGroup(fac1, mine.ID, academy.UpdateGroup{
		SlotID: slt.ID, FacilitatorID: fac1.ID, Name: "Table One",
	})
	assert.NoError(t, err)
	assert.Equal(t, "Table One", grp.Name)

	_, err = svc.UpdateGroup(fac1, theirs.ID, academy.UpdateGroup{
		SlotID: slt.ID, FacilitatorID: fac2.ID, Name: "Hijacked",
	})
	assert.Equal(t, academy.ErrNotOwner, err)

	err = svc.DeleteGroup(fac1, theirs.ID)
	assert.Equal(t, academy.ErrNotOwner, err)
	g, _ := repo.GetGroupByID(theirs.ID)
	assert.True(t, g.IsActive)

	// deleting an own group cascades to its students
	err = svc.DeleteGroup(fac1, mine.ID)
	assert.NoError(t, err)
	g, _ = repo.GetGroupByID(mine.ID)
	assert.False(t, g.IsActive)
	s, _ := repo.GetStudentByID(std.ID)
	assert.False(t, s.IsActive)
}
