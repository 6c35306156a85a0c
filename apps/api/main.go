package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/mwalimu/apps/api/echo"
	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/instructor"
	emailsvc "github.com/trezcool/mwalimu/services/email"
	logsvc "github.com/trezcool/mwalimu/services/logger"
	"github.com/trezcool/mwalimu/services/objstore"
	"github.com/trezcool/mwalimu/services/pagecache"
	sessionsvc "github.com/trezcool/mwalimu/services/session"
	"github.com/trezcool/mwalimu/storage/database"
	sqlxrepos "github.com/trezcool/mwalimu/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var store core.ObjectStore
	if conf.Storage.Bucket == "" {
		logger.Warn("no storage bucket configured: uploads are kept in memory")
		store = objstore.NewMemoryStore()
	} else if store, err = objstore.NewS3Store(conf); err != nil {
		logger.Fatal(fmt.Sprintf("setting up object storage: %v", err), err)
	}

	pages := pagecache.New(logger, conf.Server.PageCacheTTL)
	insSvc := instructor.NewService(sqlxrepos.NewInstructorRepository(db), mailSvc, logger)
	crsSvc := course.NewService(sqlxrepos.NewCourseRepository(db), insSvc, pages)

	sessions := sessionsvc.Chain{
		sessionsvc.NewCookie(sessionsvc.NewCookieStore(conf), conf.Session.CookieName),
		sessionsvc.NewToken(conf.Session.TokenSecret, conf.AppName),
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")
	defer emailsvc.Wait()

	validate, translator := core.NewValidator()

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		conf.Server.Address,
		nil, /* shutdown */
		&echoapi.Deps{
			Conf:          conf,
			Logger:        logger,
			Sessions:      sessions,
			Store:         store,
			CourseSvc:     crsSvc,
			InstructorSvc: insSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	ctx := context.Background()
	if conf.Database.AdminUser != "" {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
