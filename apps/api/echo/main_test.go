package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/mwalimu/apps/api/echo"
	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/instructor"
	"github.com/trezcool/mwalimu/services/email"
	"github.com/trezcool/mwalimu/services/logger"
	"github.com/trezcool/mwalimu/services/objstore"
	"github.com/trezcool/mwalimu/services/pagecache"
	"github.com/trezcool/mwalimu/services/session"
	"github.com/trezcool/mwalimu/storage/database/inmem"
)

var (
	app     *Server
	db      *inmemdb.DB
	pages   *pagecache.Recorder
	store   *objstore.MemoryStore
	tokens  *sessionsvc.Token
	crsSvc  *course.Service
	insSvc  *instructor.Service
	testCtx = context.Background()

	teacher = core.Session{UserID: "user-teacher", Email: "teacher@mwalimu.test", Name: "Teacher", Role: core.RoleInstructor}
	other   = core.Session{UserID: "user-other", Email: "other@mwalimu.test", Name: "Other", Role: core.RoleInstructor}
	admin   = core.Session{UserID: "user-admin", Email: "admin@mwalimu.test", Name: "Admin", Role: core.RoleAdmin}
	student = core.Session{UserID: "user-student", Email: "student@mwalimu.test", Name: "Student", Role: core.RoleStudent}

	errNotAuthenticated = core.ApiResponse{Status: core.StatusError, Message: "user not authenticated", Redirect: "/login"}
	errNotInstructor    = core.ApiResponse{Status: core.StatusError, Message: "permission denied", Redirect: "/not-instructor"}
)

func TestMain(m *testing.M) {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Server.DisableReqLogs = true

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	// set up DB & repos
	db = inmemdb.NewDB()
	insRepo := inmemdb.NewInstructorRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)

	// set up services
	pages = pagecache.NewRecorder()
	store = objstore.NewMemoryStore()
	tokens = sessionsvc.NewToken(conf.Session.TokenSecret, conf.AppName)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	insSvc = instructor.NewService(insRepo, mailSvc, logger)
	crsSvc = course.NewService(crsRepo, insSvc, pages)
	validate, translator := core.NewValidator()

	// set up server
	app = NewServer(
		"",  /* addr */
		nil, /* shutdown */
		&Deps{
			Conf:          conf,
			Logger:        logger,
			Sessions:      tokens,
			Store:         store,
			CourseSvc:     crsSvc,
			InstructorSvc: insSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)

	os.Exit(m.Run())
}

// reset empties every store between tests.
func reset() {
	db.Reset()
	pages.Reset()
	store.FailWith(nil)
	emailsvc.ResetSentMessages()
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

func getToken(t *testing.T, sess core.Session) string {
	token, err := tokens.Issue(sess, time.Hour)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
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
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
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

func runHTTPTests(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func failure(message string, fields ...map[string]string) core.ApiResponse {
	res := core.Failure(message)
	if len(fields) > 0 {
		res.Fields = fields[0]
	}
	return res
}

// decodeData unmarshals the `data` of a success response into dst.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var res struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, core.StatusSuccess, res.Status, rec.Body.String())
	require.NoError(t, json.Unmarshal(res.Data, dst))
}

func validCourse(title string) course.NewCourse {
	return course.NewCourse{
		Title:            title,
		SmallDescription: "A short pitch",
		Description:      "The full description",
		FileKey:          "uploads/cover.png",
		Price:            49,
		Duration:         12,
		Level:            course.LevelBeginner,
		Status:           course.StatusDraft,
	}
}

// seedCourse creates a course owned by sess with `chapters` chapters of `lessons` lessons each.
func seedCourse(t *testing.T, sess core.Session, title string, chapters, lessons int) course.Course {
	t.Helper()
	nc := validCourse(title)
	nc.Slug = core.Slugify(title)
	crs, err := crsSvc.CreateCourse(testCtx, sess, nc)
	require.NoError(t, err)

	for i := 0; i < chapters; i++ {
		ch, err := crsSvc.CreateChapter(testCtx, sess, crs.ID, course.NewChapter{Title: "Chapter " + string(rune('A'+i))})
		require.NoError(t, err)
		for j := 0; j < lessons; j++ {
			_, err = crsSvc.CreateLesson(testCtx, sess, crs.ID, ch.ID, course.NewLesson{Title: "Lesson " + string(rune('a'+j))})
			require.NoError(t, err)
		}
	}
	crs, err = crsSvc.GetCourse(testCtx, sess, crs.ID)
	require.NoError(t, err)
	pages.Reset()
	return crs
}

func chapterIDs(crs course.Course) []string {
	ids := make([]string, 0, len(crs.Chapters))
	for _, ch := range crs.Chapters {
		ids = append(ids, ch.ID)
	}
	return ids
}

func lessonIDs(ch course.Chapter) []string {
	ids := make([]string, 0, len(ch.Lessons))
	for _, ls := range ch.Lessons {
		ids = append(ids, ls.ID)
	}
	return ids
}

func getCourse(t *testing.T, id string) course.Course {
	t.Helper()
	crs, err := crsSvc.GetCourse(testCtx, teacher, id)
	require.NoError(t, err)
	return crs
}
