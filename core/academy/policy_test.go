package academy_test

import (
	"testing"

	"github.com/trezcool/mahudhurio/core/academy"
	"github.com/trezcool/mahudhurio/core/user"
)

func TestAuthorize(t *testing.T) {
	admin := user.User{ID: 1, Role: user.RoleAdmin, IsActive: true}
	facilitator := user.User{ID: 2, Role: user.RoleFacilitator, IsActive: true}
	inactive := user.User{ID: 3, Role: user.RoleAdmin, IsActive: false}
	nobody := user.User{ID: 4, Role: "", IsActive: true}

	tests := []struct {
		name    string
		usr     user.User
		action  academy.Action
		kind    academy.Kind
		wantErr error
	}{
		{name: "inactive admin denied", usr: inactive, action: academy.ActionRead, kind: academy.KindCourse, wantErr: academy.ErrOperationNotPermitted},
		{name: "roleless user denied", usr: nobody, action: academy.ActionRead, kind: academy.KindCourse, wantErr: academy.ErrOperationNotPermitted},

		{name: "admin creates course", usr: admin, action: academy.ActionCreate, kind: academy.KindCourse},
		{name: "admin deletes group", usr: admin, action: academy.ActionDelete, kind: academy.KindGroup},
		{name: "admin bulk upsert", usr: admin, action: academy.ActionBulkUpsert, kind: academy.KindAttendance},

		{name: "facilitator reads slot", usr: facilitator, action: academy.ActionRead, kind: academy.KindSlot},
		{name: "facilitator reads group", usr: facilitator, action: academy.ActionRead, kind: academy.KindGroup},
		{name: "facilitator stats", usr: facilitator, action: academy.ActionStats, kind: academy.KindAttendance},
		{name: "facilitator manages groups", usr: facilitator, action: academy.ActionUpdate, kind: academy.KindGroup},
		{name: "facilitator deletes group", usr: facilitator, action: academy.ActionDelete, kind: academy.KindGroup},
		{name: "facilitator creates student", usr: facilitator, action: academy.ActionCreate, kind: academy.KindStudent},
		{name: "facilitator updates attendance", usr: facilitator, action: academy.ActionUpdate, kind: academy.KindAttendance},
		{name: "facilitator bulk upsert", usr: facilitator, action: academy.ActionBulkUpsert, kind: academy.KindAttendance},

		{name: "facilitator lists courses", usr: facilitator, action: academy.ActionList, kind: academy.KindCourse, wantErr: academy.ErrOperationNotPermitted},
		{name: "facilitator reads course", usr: facilitator, action: academy.ActionRead, kind: academy.KindCourse, wantErr: academy.ErrOperationNotPermitted},
		{name: "facilitator creates course", usr: facilitator, action: academy.ActionCreate, kind: academy.KindCourse, wantErr: academy.ErrOperationNotPermitted},
		{name: "facilitator updates slot", usr: facilitator, action: academy.ActionUpdate, kind: academy.KindSlot, wantErr: academy.ErrOperationNotPermitted},
		{name: "facilitator bulk upsert on students", usr: facilitator, action: academy.ActionBulkUpsert, kind: academy.KindStudent, wantErr: academy.ErrOperationNotPermitted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := academy.Authorize(tt.usr, tt.action, tt.kind); err != tt.wantErr {
				t.Errorf("Authorize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
