package main

import (
	"log"
	"os"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/school"
	"github.com/shulelabs/shule/core/user"
	logsvc "github.com/shulelabs/shule/services/logger"
	"github.com/shulelabs/shule/storage/database"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(database.Ping(db))

	validate, _ := core.NewValidator()
	user.RegisterRoleValidation(validate)

	// start CLI
	cli := commandLine{
		usrSvc:   user.NewService(database.NewUserRepository(db), logsvc.NewStdLogger(logger)),
		schSvc:   school.NewService(database.NewSchoolRepository(db)),
		validate: validate,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
