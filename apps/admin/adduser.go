package main

import (
	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/core"
	"github.com/madrasa-app/madrasa/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, name, email, role, pwd string) error {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.GetByUsername(uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		nu := user.NewUser{
			Name:            name,
			Username:        uname,
			Email:           email,
			Role:            role,
			Password:        pwd,
			PasswordConfirm: pwd,
		}
		_, err = cli.usrSvc.Create(nu)
		return err
	}

	usr.Role = role
	if name != "" {
		usr.Name = name
	}
	if email != "" {
		usr.Email = email
	}
	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrSvc.Save(usr)
	return err
}
