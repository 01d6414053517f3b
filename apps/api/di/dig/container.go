package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/classroom/apps/api/echo"
	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/material"
	"github.com/trezcool/classroom/core/note"
	"github.com/trezcool/classroom/core/quiz"
	"github.com/trezcool/classroom/core/user"
	emailsvc "github.com/trezcool/classroom/services/email"
	"github.com/trezcool/classroom/services/filestore"
	"github.com/trezcool/classroom/services/jobs"
	logsvc "github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/services/metrics"
	"github.com/trezcool/classroom/storage/database"
	sqlxrepos "github.com/trezcool/classroom/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In
	Conf        *core.Config
	Logger      core.Logger
	UserSvc     *user.Service
	MaterialSvc *material.Service
	NoteSvc     *note.Service
	QuizSvc     *quiz.Service
	Validate    *validator.Validate
	Translator  ut.Translator
	Metrics     *metrics.Metrics
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return reg
}

func newMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

// newBlobStore returns the configured store, instrumented.
func newBlobStore(conf *core.Config, m *metrics.Metrics) (material.BlobStore, error) {
	store, err := filestore.New(conf)
	if err != nil {
		return nil, err
	}
	return metrics.InstrumentBlobStore(store, conf.Storage.Driver, m), nil
}

func newBlobReaper(conf *core.Config, svc *material.Service, m *metrics.Metrics, logger core.Logger) *jobs.BlobReaper {
	return jobs.NewBlobReaper(svc, conf.Storage.ReapGrace, m, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		UserSvc:     p.UserSvc,
		MaterialSvc: p.MaterialSvc,
		NoteSvc:     p.NoteSvc,
		QuizSvc:     p.QuizSvc,
		Validate:    p.Validate,
		Translator:  p.Translator,
		Metrics:     p.Metrics,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(database.NewTxRunner, dig.As(new(core.Transactor))))
	must(c.Provide(newEmailService))
	must(c.Provide(newRegistry))
	must(c.Provide(newMetrics))
	must(c.Provide(newBlobStore))

	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewMaterialRepository, dig.As(new(material.Repository))))
	must(c.Provide(sqlxrepos.NewNoteRepository, dig.As(new(note.Repository))))
	must(c.Provide(sqlxrepos.NewQuizRepository, dig.As(new(quiz.Repository))))

	must(c.Provide(user.NewService))
	must(c.Provide(material.NewService))
	must(c.Provide(note.NewService))
	must(c.Provide(quiz.NewService))
	must(c.Provide(newBlobReaper))

	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
