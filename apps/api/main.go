package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/academy"
	"github.com/trezcool/mahudhurio/core/user"
	emailsvc "github.com/trezcool/mahudhurio/services/email"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
	"github.com/trezcool/mahudhurio/storage/database"
	sqlxrepos "github.com/trezcool/mahudhurio/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, core.Conf.AppName+" : ", log.LstdFlags|log.Lshortfile)

	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	sdb, err := database.Open(core.Conf)
	if err != nil {
		std.Fatalf("opening database: %v", err)
	}
	defer func() { _ = sdb.Close() }()
	if err = database.Migrate(sdb); err != nil {
		std.Fatalf("migrating database: %v", err)
	}
	db := sqlx.NewDb(sdb, core.Conf.Database.Engine)

	// set up repos
	usrRepo := sqlxrepos.NewUserRepository(db)
	acaRepo := sqlxrepos.NewAcademyRepository(db)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(usrRepo, mailSvc)
	acaSvc := academy.NewService(acaRepo, usrRepo)

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	academy.RegisterValidators(validate, translator)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address:    core.Conf.ServerAddress(),
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
			UserSvc:    usrSvc,
			AcademySvc: acaSvc,
		},
	)
	app.Start()
}
