package main

import (
	"context"
	"time"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/user"
)

// addAdmin updates or creates a survey-admin user.
func (cli *commandLine) addAdmin(uname, email, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if err := user.ValidatePassword(pwd, uname, email); err != nil {
		return err
	}

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	usr.Roles = user.AdminRoles
	usr.IsStaff = true
	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}
