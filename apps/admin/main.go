package main

import (
	"log"
	"os"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/instructor"
	emailsvc "github.com/trezcool/mwalimu/services/email"
	logsvc "github.com/trezcool/mwalimu/services/logger"
	"github.com/trezcool/mwalimu/services/pagecache"
	"github.com/trezcool/mwalimu/storage/database"
	sqlxrepos "github.com/trezcool/mwalimu/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	appLogger := logsvc.NewRollbarLogger(logger, conf)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, appLogger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, appLogger)
	}
	insSvc := instructor.NewService(sqlxrepos.NewInstructorRepository(db), mailSvc, appLogger)

	// start CLI
	cli := commandLine{
		db:        db.DB,
		courseSvc: course.NewService(sqlxrepos.NewCourseRepository(db), insSvc, pagecache.New(nil, 0)),
		insSvc:    insSvc,
		out:       os.Stdout,
	}
	err = cli.run(os.Args)
	emailsvc.Wait()
	_ = db.Close()
	if err != nil {
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
