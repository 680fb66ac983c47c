package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/surgepay/apps/api/echo"
	"github.com/trezcool/surgepay/core"
	"github.com/trezcool/surgepay/core/inquiry"
	"github.com/trezcool/surgepay/core/payment"
	"github.com/trezcool/surgepay/core/school"
	"github.com/trezcool/surgepay/core/user"
	appfs "github.com/trezcool/surgepay/fs"
	emailsvc "github.com/trezcool/surgepay/services/email"
	"github.com/trezcool/surgepay/services/filehost"
	logsvc "github.com/trezcool/surgepay/services/logger"
	"github.com/trezcool/surgepay/storage/database"
	inmemdb "github.com/trezcool/surgepay/storage/database/inmem"
	sqlxrepos "github.com/trezcool/surgepay/storage/database/sqlx"
	redisstore "github.com/trezcool/surgepay/storage/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up logger
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	// set up storage
	repos, closeStorage, err := setUpStorage(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer closeStorage()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	usrSvc := user.NewService(repos.users, repos.tokens, mailSvc, conf, logger)
	schoolSvc := school.NewService(repos.schools, usrSvc, logger)
	inquirySvc := inquiry.NewService(mailSvc, validate, conf)
	webhook := payment.NewWebhook(conf, payment.NewLoggingActivator(logger), logger)
	signer := filehost.NewSigner(conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if err := core.ParseEmailTemplates(appfs.FS, conf); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}
	user.LoadCommonPasswords(appfs.FS, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	if conf.Server.DebugHost != "" {
		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		UserSvc:    usrSvc,
		SchoolSvc:  schoolSvc,
		InquirySvc: inquirySvc,
		Webhook:    webhook,
		Signer:     signer,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

type repositories struct {
	users   user.Repository
	tokens  user.TokenStore
	schools school.Repository
}

// setUpStorage picks PostgreSQL and Redis when configured, the in-memory stores otherwise.
func setUpStorage(conf *core.Config, logger core.Logger) (repositories, func(), error) {
	var (
		repos   repositories
		closers []func() error
		mem     *inmemdb.DB
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Error("closing storage", err)
			}
		}
	}
	ctx := context.Background()

	if conf.UsesDatabase() {
		db, err := setUpDB(ctx, conf)
		if err != nil {
			return repos, closeAll, err
		}
		closers = append(closers, db.Close)
		repos.users = sqlxrepos.NewUserRepository(db)
		repos.schools = sqlxrepos.NewSchoolRepository(db)
	} else {
		logger.Warn("no database configured: using the in-memory store")
		mem = inmemdb.Open()
		repos.users = inmemdb.NewUserRepository(mem)
		repos.schools = inmemdb.NewSchoolRepository(mem)
	}

	if conf.Redis.Addr != "" {
		client, err := redisstore.Open(ctx, conf)
		if err != nil {
			closeAll()
			return repos, func() {}, err
		}
		closers = append(closers, client.Close)
		repos.tokens = redisstore.NewTokenStore(client, "verify")
	} else {
		if mem == nil {
			mem = inmemdb.Open()
		}
		repos.tokens = inmemdb.NewTokenStore(mem, "verify")
	}
	return repos, closeAll, nil
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
