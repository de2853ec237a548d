package main

import (
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	dig_container "github.com/mahimaacademy/academy/apps/api/di/dig"
	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
	appfs "github.com/mahimaacademy/academy/fs"
	logsvc "github.com/mahimaacademy/academy/services/logger"
	"github.com/mahimaacademy/academy/storage/database"
)

var logger = logsvc.NewStdLogger("ADMIN : ")

func main() {
	// migrations must not depend on the container: it migrates the database up when it opens it
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		cli := commandLine{migrate: migrate(core.NewConfig()), out: os.Stdout}
		exit(cli.run(os.Args))
		return
	}

	c := dig_container.New()
	err := c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		closeDB dig_container.DBCloser,
		validate *validator.Validate,
		translator ut.Translator,
		usrSvc *user.Service,
		paymentSvc *payment.Service,
	) {
		core.InitValidators(validate, translator)
		user.InitValidators(validate, translator)
		payment.InitValidators(validate, translator)
		core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, apiLogger)

		cli := commandLine{
			usrSvc:   usrSvc,
			payments: paymentSvc,
			migrate:  migrate(conf),
			in:       os.Stdin,
			out:      os.Stdout,
		}
		runErr := cli.run(os.Args)
		if err := closeDB(); err != nil {
			logger.Printf("closing database: %v", err)
		}
		exit(runErr)
	})
	if err != nil {
		logger.Fatal(err)
	}
}

func migrate(conf *core.Config) func(command string, args ...string) error {
	return func(command string, args ...string) error {
		if err := database.CreateIfNotExist(conf); err != nil {
			return errors.Wrap(err, "creating database")
		}
		db, err := database.Open(conf)
		if err != nil {
			return errors.Wrap(err, "opening database")
		}
		defer db.Close()
		return database.Migrate(db, command, args...)
	}
}

func exit(err error) {
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
	os.Exit(0)
}
