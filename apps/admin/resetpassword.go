package main

func (cli *commandLine) resetPassword(uname, pwd string) error {
	usr, err := cli.usrSvc.GetByUsername(uname)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrSvc.Save(usr)
	return err
}
