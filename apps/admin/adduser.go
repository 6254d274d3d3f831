package main

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(uname)
	if err == user.ErrNotFound {
		usr, err = cli.usrRepo.GetUserByUsernameOrEmail(email)
	}
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	if name != "" {
		usr.Name = core.CleanString(name)
	}
	usr.Role = user.RoleFacilitator
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = now

	if usr.ID == 0 {
		_, err = cli.usrRepo.CreateUser(usr)
	} else {
		isActive := true
		_, err = cli.usrRepo.UpdateUser(usr, &isActive)
	}
	return err
}
