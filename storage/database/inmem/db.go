// Package inmemdb provides map-backed repositories for tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/mahudhurio/core/academy"
	"github.com/trezcool/mahudhurio/core/user"
)

type DB struct {
	user       *userTable
	course     *courseTable
	slot       *slotTable
	group      *groupTable
	student    *studentTable
	attendance *attendanceTable
}

func NewDB() *DB {
	return &DB{
		user:       &userTable{table: make(map[int]*user.User)},
		course:     &courseTable{table: make(map[int]*academy.Course)},
		slot:       &slotTable{table: make(map[int]*academy.Slot)},
		group:      &groupTable{table: make(map[int]*academy.Group)},
		student:    &studentTable{table: make(map[int]*academy.Student)},
		attendance: &attendanceTable{table: make(map[int]*academy.Attendance)},
	}
}

type userTable struct {
	mutex sync.RWMutex
	seq   int
	table map[int]*user.User
}

type courseTable struct {
	mutex sync.RWMutex
	seq   int
	table map[int]*academy.Course
}

type slotTable struct {
	mutex sync.RWMutex
	seq   int
	table map[int]*academy.Slot
}

type groupTable struct {
	mutex sync.RWMutex
	seq   int
	table map[int]*academy.Group
}

type studentTable struct {
	mutex sync.RWMutex
	seq   int
	table map[int]*academy.Student
}

type attendanceTable struct {
	mutex sync.RWMutex
	seq   int
	table map[int]*academy.Attendance
}
