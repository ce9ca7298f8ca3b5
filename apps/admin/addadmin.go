package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core/auth"
	"github.com/shulelabs/shule/core/user"
)

// addAdmin creates a platform admin, or promotes the existing user bound to
// the subject id. Admins carry no school binding.
func (cli *commandLine) addAdmin(subjectID, email, name string) error {
	ctx := context.Background()

	usr, err := cli.usrSvc.GetBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}

		data := user.NewUser{SubjectID: subjectID, Name: name, Email: email, Role: auth.RoleAdmin}
		if err := data.Validate(cli.validate); err != nil {
			return err
		}
		usr, err = cli.usrSvc.Create(ctx, data)
		if err != nil {
			return err
		}
		fmt.Printf("admin %q created (id=%d)\n", usr.Email, usr.ID)
		return nil
	}

	usr, err = cli.usrSvc.SetRole(ctx, usr.ID, user.UpdateRole{Role: auth.RoleAdmin})
	if err != nil {
		return err
	}
	fmt.Printf("user %q promoted to admin\n", usr.Email)
	return nil
}
