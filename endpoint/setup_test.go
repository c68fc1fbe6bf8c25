package endpoint

import (
	"context"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ariebrainware/cml-tracker/config"
	"github.com/ariebrainware/cml-tracker/middleware"
	"github.com/ariebrainware/cml-tracker/model"
	"github.com/ariebrainware/cml-tracker/session"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	util.SetSecurityLoggerForTest(zerolog.Nop())
}

type testServer struct {
	r        *gin.Engine
	db       *gorm.DB
	sessions *session.Manager
}

// setupTestServer builds the full route table on a fresh in-memory database.
// Responses are in English.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWithRepo(t, session.NewMemoryRepository())
}

func setupTestServerWithRepo(t *testing.T, repo session.Repository) *testServer {
	t.Helper()

	cfg := &config.Config{AppEnv: "test", DBDriver: "sqlite"}
	db, err := config.ConnectDatabase(cfg, "")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	require.NoError(t, model.SeedTKIMedications(db))

	sessions := session.NewManager(repo)

	r := gin.New()
	r.Use(middleware.LocaleNegotiation("en"))
	r.Use(middleware.DatabaseMiddleware(db, db))
	r.Use(middleware.SessionMiddleware(sessions, false))
	RegisterRoutes(r, RouteConfig{AppName: "CML Tracker", Port: 3000})

	return &testServer{r: r, db: db, sessions: sessions}
}

// fixNow pins the clock used for "today".
func fixNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func date(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func datePtr(s string) *time.Time {
	d := date(s)
	return &d
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	hash, err := util.HashPassword(plain)
	require.NoError(t, err)
	return hash
}

func (s *testServer) seedAdmin(t *testing.T, username, password string) {
	t.Helper()
	require.NoError(t, model.UpsertAdmin(s.db, username, mustHash(t, password)))
}

func (s *testServer) seedDoctor(t *testing.T, code, name, password string, active bool) model.Doctor {
	t.Helper()
	doctor := model.Doctor{DoctorCode: code, Name: name, PasswordHash: mustHash(t, password), IsActive: true}
	require.NoError(t, s.db.Create(&doctor).Error)
	if !active {
		require.NoError(t, s.db.Model(&doctor).Update("is_active", false).Error)
		doctor.IsActive = false
	}
	return doctor
}

func (s *testServer) seedPatient(t *testing.T, p model.Patient, password string) model.Patient {
	t.Helper()
	if password != "" {
		hash := mustHash(t, password)
		p.PasswordHash = &hash
	}
	require.NoError(t, s.db.Create(&p).Error)
	return p
}

// login issues a session directly, bypassing the credential check.
func (s *testServer) login(t *testing.T, kind session.Kind, identity string) string {
	t.Helper()
	sess, err := s.sessions.Login(context.Background(), kind, identity, "")
	require.NoError(t, err)
	return sess.Token
}

func (s *testServer) staffToken(t *testing.T) string {
	return s.login(t, session.KindDoctor, "D-STAFF")
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, w.Code, w.Body.String())
}

// assertFailure checks the error envelope and its localized message.
func assertFailure(t *testing.T, w *httptest.ResponseRecorder, resp map[string]interface{}, status int, msgKey string) {
	t.Helper()
	assertStatus(t, w, status)
	assert.Equal(t, false, resp["success"])
	if msgKey != "" {
		assert.Equal(t, util.T("en", msgKey), resp["msg"])
	}
}

func assertSuccess(t *testing.T, w *httptest.ResponseRecorder, resp map[string]interface{}) {
	t.Helper()
	assertStatus(t, w, 200)
	assert.Equal(t, true, resp["success"])
}

func uintStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
