package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/labtrack/apps/api/echo"
	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/audit"
	"github.com/trezcool/labtrack/core/class"
	"github.com/trezcool/labtrack/core/grade"
	"github.com/trezcool/labtrack/core/group"
	"github.com/trezcool/labtrack/core/lab"
	"github.com/trezcool/labtrack/core/queue"
	emailsvc "github.com/trezcool/labtrack/services/email"
	notifysvc "github.com/trezcool/labtrack/services/notify"
	inmemdb "github.com/trezcool/labtrack/storage/database/inmem"
	testutil "github.com/trezcool/labtrack/tests"
)

type env struct {
	server    Server
	labRepo   lab.Repository
	classRepo class.Repository
	groupRepo group.Repository
}

func setup(t *testing.T) *env {
	t.Helper()

	conf := &core.Config{
		TestMode:         true,
		AppName:          "LabTrack",
		DefaultFromEmail: "noreply@localhost",
	}
	logger := testutil.NopLogger{}

	db := inmemdb.NewDB()
	labRepo := inmemdb.NewLabRepository(db)
	classRepo := inmemdb.NewClassRepository(db)
	groupRepo := inmemdb.NewGroupRepository(db)

	labSvc := lab.NewService(labRepo)
	classSvc := class.NewService(classRepo)
	auditSvc := audit.NewService(inmemdb.NewAuditRepository(db))
	hub := notifysvc.NewHub(logger)
	queueSvc := queue.NewService(inmemdb.NewQueueRepository(db), hub)
	groupSvc := group.NewService(groupRepo, labSvc, classSvc, auditSvc, hub, logger)
	gradeSvc := grade.NewService(labSvc, classSvc, groupRepo, emailsvc.NewConsoleServiceMock(conf))

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		GroupSvc:   groupSvc,
		QueueSvc:   queueSvc,
		AuditSvc:   auditSvc,
		GradeSvc:   gradeSvc,
		EventHub:   hub,
		Validate:   validate,
		Translator: translator,
	})

	return &env{
		server:    server,
		labRepo:   labRepo,
		classRepo: classRepo,
		groupRepo: groupRepo,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

// checkCodeAndData compares the recorded response against the expected status
// code and JSON body, ignoring key order and whitespace.
func checkCodeAndData(t *testing.T, rec *httptest.ResponseRecorder, wantCode int, wantData []byte) {
	t.Helper()
	if rec.Code != wantCode {
		t.Errorf("status code = %d; want %d\nbody: %s", rec.Code, wantCode, rec.Body.Bytes())
	}
	if !jsonBytesEqual(t, rec.Body.Bytes(), wantData) {
		t.Errorf("body = %s\nwant %s", rec.Body.Bytes(), wantData)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) bool {
	t.Helper()
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		t.Fatalf("jsonBytesEqual() failed: %v\nbody: %s", err, b1)
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		t.Fatalf("jsonBytesEqual() failed: %v\nbody: %s", err, b2)
	}
	return reflect.DeepEqual(j1, j2)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshall() failed: %v\nbody: %s", err, data)
	}
}
