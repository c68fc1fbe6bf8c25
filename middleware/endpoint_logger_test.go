package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariebrainware/cml-tracker/model"
	"github.com/ariebrainware/cml-tracker/session"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureSecurityLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	util.SetSecurityLoggerForTest(zerolog.New(&buf))
	t.Cleanup(func() {
		util.SetSecurityLoggerForTest(util.Logger().With().Str("component", "security").Logger())
		util.SetSecurityLoggerDB(nil)
	})
	return &buf
}

func TestEndpointCallLoggerBasicRequest(t *testing.T) {
	buf := captureSecurityLog(t)

	r := gin.New()
	r.Use(EndpointCallLogger())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/test?foo=bar", nil)
	req.RemoteAddr = "192.168.1.100:1234"
	req.Header.Set("User-Agent", "TestAgent/1.0")
	performRequest(r, req)

	out := buf.String()
	assert.Contains(t, out, `"event":"ENDPOINT_CALL"`)
	assert.Contains(t, out, `"ip":"192.168.1.100"`)
	assert.Contains(t, out, `"user_agent":"TestAgent/1.0"`)
	assert.Contains(t, out, "GET /test -> 200")
}

func TestEndpointCallLoggerPersistsWithSession(t *testing.T) {
	captureSecurityLog(t)
	db := newInMemoryDB(t)
	util.SetSecurityLoggerDB(db)

	m := session.NewManager(session.NewMemoryRepository())
	s := login(t, m, session.KindDoctor, "D001")

	r := newSessionRouter(m)
	r.Use(EndpointCallLogger())
	r.GET("/api/patients", RequireSession(session.KindDoctor), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	req.Header.Set(SessionTokenHeader, s.Token)
	performRequest(r, req)

	var logs []model.SecurityLog
	require.NoError(t, db.Where("event_type = ?", string(util.EventEndpointCall)).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "doctor", logs[0].Kind)
	assert.Equal(t, "D001", logs[0].Identity)
	assert.Contains(t, string(logs[0].Details), `"path":"/api/patients"`)
}
