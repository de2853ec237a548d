package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/mahimaacademy/academy/apps/api/echo"
	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/course"
	"github.com/mahimaacademy/academy/core/enrollment"
	"github.com/mahimaacademy/academy/core/lesson"
	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
	appfs "github.com/mahimaacademy/academy/fs"
	emailsvc "github.com/mahimaacademy/academy/services/email"
	eventsvc "github.com/mahimaacademy/academy/services/events"
	logsvc "github.com/mahimaacademy/academy/services/logger"
	storagesvc "github.com/mahimaacademy/academy/services/storage"
	dummydb "github.com/mahimaacademy/academy/storage/database/dummy"
)

const mediaURL = "http://localhost:8000/media"

var (
	conf       *core.Config
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator

	merchant = payment.Merchant{VPA: "mahimaacademy@okaxis", Name: "Mahima Academy"}

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	conf = core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	logger = logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)

	_en := en.New()
	translator, _ = ut.New(_en, _en).GetTranslator("en")
	validate = validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	os.Exit(m.Run())
}

// app is a server running on the in-memory database with its stores exposed.
type app struct {
	*Server
	db          *dummydb.DB
	users       user.Repository
	courses     course.Repository
	enrollments enrollment.Repository
	payments    payment.Repository
	lessons     lesson.Repository
	bucket      *storagesvc.Bucket
	events      *eventsvc.Recorder
}

func setup(t *testing.T) *app {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	a := &app{
		db:          db,
		users:       dummydb.NewUserRepository(db),
		courses:     dummydb.NewCourseRepository(db),
		enrollments: dummydb.NewEnrollmentRepository(db),
		payments:    dummydb.NewPaymentRepository(db),
		lessons:     dummydb.NewLessonRepository(db),
		bucket:      storagesvc.NewMemoryBucket(mediaURL),
		events:      eventsvc.NewRecorder(),
	}
	emailsvc.ResetSentMessages()

	enrollmentSvc := enrollment.NewService(a.enrollments)
	a.Server = NewServer(conf, logger, ServerDeps{
		Validate:      validate,
		Translator:    translator,
		UserSvc:       user.NewService(a.users),
		CourseSvc:     course.NewService(a.courses),
		EnrollmentSvc: enrollmentSvc,
		PaymentSvc: payment.NewService(payment.Deps{
			Repo:     a.payments,
			Tx:       db,
			Grants:   enrollmentSvc,
			Validate: validate,
			Mail:     emailsvc.NewConsoleServiceMock(conf, logger),
			Events:   a.events,
			Logger:   logger,
		}),
		LessonSvc: lesson.NewService(a.lessons, enrollmentSvc),
		Storage:   a.bucket,
		Merchant:  merchant,
	})
	return a
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

type proofFile struct {
	name string
	data []byte
}

// newCheckoutRequest builds the multipart form of a checkout submission.
func newCheckoutRequest(t *testing.T, path, token string, fields map[string]string, proof *proofFile) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() failed: %v", err)
		}
	}
	if proof != nil {
		fw, err := w.CreateFormFile("proof", proof.name)
		if err != nil {
			t.Fatalf("CreateFormFile() failed: %v", err)
		}
		if _, err = fw.Write(proof.data); err != nil {
			t.Fatalf("writing proof failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr, conf), conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func (a *app) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			a.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
