package main

import (
	"context"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(ctx context.Context, name, email, pwd string, isAdmin bool) error {
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email, Roles: user.StudentRoles}
	}
	if name != "" {
		usr.Name = name
	}
	if isAdmin {
		usr.Roles = user.AdminRoles
	}
	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrSvc.Save(ctx, usr)
	return err
}
