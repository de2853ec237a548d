package dig_container

import (
	"context"
	"fmt"
	"log"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/mahimaacademy/academy/apps/api/echo"
	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/course"
	"github.com/mahimaacademy/academy/core/enrollment"
	"github.com/mahimaacademy/academy/core/lesson"
	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
	emailsvc "github.com/mahimaacademy/academy/services/email"
	eventsvc "github.com/mahimaacademy/academy/services/events"
	logsvc "github.com/mahimaacademy/academy/services/logger"
	"github.com/mahimaacademy/academy/services/metrics"
	storagesvc "github.com/mahimaacademy/academy/services/storage"
	"github.com/mahimaacademy/academy/storage/database"
	dummydb "github.com/mahimaacademy/academy/storage/database/dummy"
	sqlxrepos "github.com/mahimaacademy/academy/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// DBCloser releases the database, whichever engine is configured.
	DBCloser func() error

	// Repositories are the stores of the configured database engine.
	Repositories struct {
		dig.Out
		Users       user.Repository
		Courses     course.Repository
		Enrollments enrollment.Repository
		Payments    payment.Repository
		Lessons     lesson.Repository
		Tx          core.Transactor
		Close       DBCloser
	}

	paymentParams struct {
		dig.In
		Repo     payment.Repository
		Tx       core.Transactor
		Grants   *enrollment.Service
		Validate *validator.Validate
		Mail     core.EmailService
		Events   core.EventPublisher
		Logger   core.Logger
	}

	serverParams struct {
		dig.In
		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		UserSvc       *user.Service
		CourseSvc     *course.Service
		EnrollmentSvc *enrollment.Service
		PaymentSvc    *payment.Service
		LessonSvc     *lesson.Service
		Storage       core.ObjectStorage
	}
)

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(logsvc.NewStdLogger("API : "), conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(logsvc.NewStdLogger("DB : "), conf)
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.Engine == "memory" {
		db, _ := dummydb.Open()
		loggerParam.Logger.Warn("using the in-memory database: data is lost on exit")
		return Repositories{
			Users:       dummydb.NewUserRepository(db),
			Courses:     dummydb.NewCourseRepository(db),
			Enrollments: dummydb.NewEnrollmentRepository(db),
			Payments:    dummydb.NewPaymentRepository(db),
			Lessons:     dummydb.NewLessonRepository(db),
			Tx:          db,
			Close:       func() error { return nil },
		}
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Repositories{
		Users:       sqlxrepos.NewUserRepository(db),
		Courses:     sqlxrepos.NewCourseRepository(db),
		Enrollments: sqlxrepos.NewEnrollmentRepository(db),
		Payments:    sqlxrepos.NewPaymentRepository(db),
		Lessons:     sqlxrepos.NewLessonRepository(db),
		Tx:          database.NewTransactor(db),
		Close:       db.Close,
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newStorage(conf *core.Config, logger core.Logger) core.ObjectStorage {
	bucket, err := storagesvc.NewBucket(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	return bucket
}

// newEventPublisher publishes to RabbitMQ when a broker is configured, and only logs events otherwise.
func newEventPublisher(conf *core.Config, logger core.Logger) core.EventPublisher {
	var publisher core.EventPublisher = eventsvc.NewLogPublisher(logger)
	if conf.Broker.URL != "" {
		amqpPublisher, err := eventsvc.NewAMQPPublisher(conf.Broker.URL, conf.Broker.Exchange)
		if err != nil {
			logger.Error(fmt.Sprintf("connecting to broker, events will only be logged: %v", err), err)
		} else {
			publisher = amqpPublisher
		}
	}
	return metrics.NewCountingPublisher(publisher)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newPaymentService(p paymentParams) *payment.Service {
	return payment.NewService(payment.Deps{
		Repo:     p.Repo,
		Tx:       p.Tx,
		Grants:   p.Grants,
		Validate: p.Validate,
		Mail:     p.Mail,
		Events:   p.Events,
		Logger:   p.Logger,
	})
}

// newLessonService unlocks lessons through active enrollments.
func newLessonService(repo lesson.Repository, grants *enrollment.Service) *lesson.Service {
	return lesson.NewService(repo, grants)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(p.Conf, p.Logger, echoapi.ServerDeps{
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.UserSvc,
		CourseSvc:     p.CourseSvc,
		EnrollmentSvc: p.EnrollmentSvc,
		PaymentSvc:    p.PaymentSvc,
		LessonSvc:     p.LessonSvc,
		Storage:       p.Storage,
		Merchant:      payment.Merchant{VPA: p.Conf.Payment.MerchantUPI, Name: p.Conf.Payment.MerchantName},
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(newStorage))
	must(c.Provide(newEventPublisher))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(newPaymentService))
	must(c.Provide(newLessonService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
