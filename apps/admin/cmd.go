package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/shulelabs/shule/core/school"
	"github.com/shulelabs/shule/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	usrSvc   *user.Service
	schSvc   *school.Service
	validate *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addadmin -subject SUBJECT_ID -email EMAIL -name NAME - create or promote a platform admin")
	fmt.Println("  addschool -name NAME -code CODE [-domain EMAIL_DOMAIN] - register a school")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ExitOnError)
	addAdminSubject := addAdminCmd.String("subject", "", "The identity provider subject id of the user.")
	addAdminEmail := addAdminCmd.String("email", "", "The user's email address.")
	addAdminName := addAdminCmd.String("name", "", "The user's full name.")

	addSchoolCmd := flag.NewFlagSet("addschool", flag.ExitOnError)
	addSchoolName := addSchoolCmd.String("name", "", "The school's display name.")
	addSchoolCode := addSchoolCmd.String("code", "", "The school's unique code (lowercase alphanumeric and dashes).")
	addSchoolDomain := addSchoolCmd.String("domain", "", "The school's email domain (optional).")

	switch args[1] {
	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminSubject == "" || *addAdminEmail == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		return cli.addAdmin(*addAdminSubject, *addAdminEmail, *addAdminName)
	case "addschool":
		if err := addSchoolCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSchoolName == "" || *addSchoolCode == "" {
			addSchoolCmd.Usage()
			return errHelp
		}
		return cli.addSchool(*addSchoolName, *addSchoolCode, *addSchoolDomain)
	default:
		cli.printUsage()
		return errHelp
	}
}
