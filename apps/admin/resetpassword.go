package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if _, err := cli.usrSvc.SetPassword(ctx, usr, pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	fmt.Fprintf(cli.out, "password of %s updated\n", usr.Email)
	return nil
}
