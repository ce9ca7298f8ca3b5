package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/auth"
	"github.com/shulelabs/shule/core/invite"
	"github.com/shulelabs/shule/core/school"
	"github.com/shulelabs/shule/core/user"
	authsvc "github.com/shulelabs/shule/services/auth"
	emailsvc "github.com/shulelabs/shule/services/email"
	logsvc "github.com/shulelabs/shule/services/logger"
	"github.com/shulelabs/shule/storage/database"
	inmemdb "github.com/shulelabs/shule/storage/inmem"
	rediscache "github.com/shulelabs/shule/storage/redis"

	echoapi "github.com/shulelabs/shule/apps/api/echo"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	var logger core.Logger
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if conf.RollbarToken != "" && !conf.Debug {
		rl := logsvc.NewRollbarLogger(std, conf)
		rl.Enable(true)
		logger = rl
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	// set up storage; DEV mode runs entirely in memory
	var (
		userRepo   user.Repository
		schoolRepo school.Repository
		inviteRepo invite.Repository
	)
	if conf.Debug {
		db, err := inmemdb.Open()
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		userRepo = inmemdb.NewUserRepository(db)
		schoolRepo = inmemdb.NewSchoolRepository(db)
		inviteRepo = inmemdb.NewInvitationRepository(db)
	} else {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		if err = database.Ping(db); err != nil {
			logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
		}
		defer func() { _ = db.Close() }()
		userRepo = database.NewUserRepository(db)
		schoolRepo = database.NewSchoolRepository(db)
		inviteRepo = database.NewInvitationRepository(db)
	}

	// principal cache; redis when configured so instances share invalidations
	ctx := context.Background()
	var cache auth.PrincipalCache
	if conf.Redis.Addr != "" {
		client, err := rediscache.Open(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer func() { _ = client.Close() }()
		cache = rediscache.NewPrincipalCache(client, conf)
	} else {
		cache = auth.NewMemoryCache()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(userRepo, logger)
	schSvc := school.NewService(schoolRepo)
	invSvc := invite.NewService(inviteRepo, mailSvc, conf, logger)

	// set up the auth gate
	provider, err := authsvc.NewRegistry().NewProvider(ctx, conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up identity provider: %v", err), err)
	}
	loader := auth.NewPrincipalLoader(usrSvc, cache, logger, conf)
	guard := auth.NewGuard(provider, loader, logger, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.RegisterRoleValidation(validate)

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Options{
		Address:    conf.Server.Host + ":" + conf.Server.Port,
		Conf:       conf,
		Logger:     logger,
		Guard:      guard,
		Loader:     loader,
		UserSvc:    usrSvc,
		SchoolSvc:  schSvc,
		InviteSvc:  invSvc,
		Validate:   validate,
		Translator: translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	case <-server.Shutdown():
		logger.Info("shutdown error: Start shutdown...")
	}

	// give outstanding requests a deadline for completion
	sctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(sctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}
