package main

import (
	"github.com/madrasa-app/madrasa/core/school"
	"github.com/madrasa-app/madrasa/core/user"
)

func (cli *commandLine) seedDemo() error {
	if err := user.Seed(cli.usrSvc, user.DefaultAccounts()); err != nil {
		return err
	}
	return school.SeedDemo(cli.reg)
}
