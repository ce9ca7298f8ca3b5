package main

import (
	"context"
	"fmt"

	"github.com/shulelabs/shule/core/school"
)

// addSchool registers a new school tenant.
func (cli *commandLine) addSchool(name, code, domain string) error {
	data := school.NewSchool{Name: name, Code: code, EmailDomain: domain}
	if err := data.Validate(cli.validate); err != nil {
		return err
	}

	sch, err := cli.schSvc.Create(context.Background(), data)
	if err != nil {
		return err
	}
	fmt.Printf("school %q registered (id=%d, code=%s)\n", sch.Name, sch.ID, sch.Code)
	return nil
}
