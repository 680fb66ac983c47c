package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/surgepay/core"
	"github.com/trezcool/surgepay/core/user"
	appfs "github.com/trezcool/surgepay/fs"
	emailsvc "github.com/trezcool/surgepay/services/email"
	logsvc "github.com/trezcool/surgepay/services/logger"
	"github.com/trezcool/surgepay/storage/database"
	inmemdb "github.com/trezcool/surgepay/storage/database/inmem"
	sqlxrepos "github.com/trezcool/surgepay/storage/database/sqlx"
	redisstore "github.com/trezcool/surgepay/storage/redis"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	logger.Enable(!conf.Debug)

	cli, closeFn, err := newCommandLine(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up admin: %v", err), err)
	}

	err = cli.run(os.Args)
	closeFn()
	logger.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func newCommandLine(conf *core.Config, logger core.Logger) (*commandLine, func(), error) {
	ctx := context.Background()
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Error("closing storage", err)
			}
		}
	}

	var (
		db      *sql.DB
		usrRepo user.Repository
		tokens  user.TokenStore
	)
	if conf.UsesDatabase() {
		sdb, err := database.Open(ctx, conf)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, sdb.Close)
		db = sdb.DB
		usrRepo = sqlxrepos.NewUserRepository(sdb)
	} else {
		// only the onboarding wizard is useful without a database
		usrRepo = inmemdb.NewUserRepository(inmemdb.Open())
	}
	if conf.Redis.Addr != "" {
		client, err := redisstore.Open(ctx, conf)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, client.Close)
		tokens = redisstore.NewTokenStore(client, "verify")
	} else {
		tokens = inmemdb.NewTokenStore(inmemdb.Open(), "verify")
	}

	if err := core.ParseEmailTemplates(appfs.FS, conf); err != nil {
		closeAll()
		return nil, func() {}, err
	}
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
	user.LoadCommonPasswords(appfs.FS, logger)

	return &commandLine{
		conf:       conf,
		db:         db,
		usrSvc:     user.NewService(usrRepo, tokens, mailSvc, conf, logger),
		validate:   validate,
		translator: translator,
		in:         os.Stdin,
		out:        os.Stdout,
	}, closeAll, nil
}
