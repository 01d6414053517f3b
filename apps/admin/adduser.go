package main

import (
	"context"
	"fmt"

	"github.com/trezcool/classroom/core/user"
)

// addUser registers a user with the profile matching its role, like the register endpoint does.
func (cli *commandLine) addUser(nu user.NewUser) error {
	if err := nu.Validate(cli.validate); err != nil {
		return cli.validationError(err)
	}
	ident, err := cli.usrSvc.Register(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Printf("created %s %q (id %d)\n", ident.Role(), ident.Account().Username, ident.Account().ID)
	return nil
}
