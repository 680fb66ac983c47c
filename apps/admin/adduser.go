package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core/user"
)

var errUnknownRole = errors.New("role must be admin or teacher")

// addUser creates an active, verified user allowed on the given portal.
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	var roles []string
	switch role {
	case user.PortalAdmin:
		roles = []string{user.RoleAdmin}
	case user.PortalTeacher:
		roles = []string{user.RoleTeacher}
	default:
		return errUnknownRole
	}

	ctx := context.Background()
	nu := user.NewUser{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           roles,
	}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return cli.describeError(err)
	}

	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	fmt.Fprintf(cli.out, "user %s created (id %s)\n", usr.Email, usr.ID)
	return nil
}
