package endpoint

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariebrainware/cml-tracker/middleware"
	"github.com/ariebrainware/cml-tracker/session"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02T15:04:05Z07:00"
)

// now is replaced in tests that depend on the current date.
var now = time.Now

// today is the current calendar date as UTC midnight, the form dates are
// stored in.
func today() time.Time {
	return dateOf(now().UTC())
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseDate accepts YYYY-MM-DD or RFC 3339 and returns the calendar date.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return dateOf(t), nil
}

// parseOptionalDate maps "" to nil.
func parseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseLimit reads a non-negative integer query parameter; invalid values are
// ignored.
func parseLimit(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseBoolQuery returns nil when the parameter is absent.
func parseBoolQuery(c *gin.Context, name string) (*bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", name)
	}
	return &b, nil
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: util.Localize(c, util.MsgInvalidRequest),
			Err: fmt.Errorf("invalid %s", name),
		})
		return 0, false
	}
	return uint(id), true
}

type clientInfo struct {
	IP    string
	Agent string
}

func clientInfoOf(c *gin.Context) clientInfo {
	return clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
}

func bindJSONOrRespond(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgInvalidRequest), Err: err})
		return false
	}
	return true
}

func userError(c *gin.Context, key string, err error) {
	util.CallUserError(c, util.APIErrorParams{Msg: util.Localize(c, key), Err: err})
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgDatabaseUnavailable), Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

// getServiceDBOrRespond returns the tier that bypasses row level security.
func getServiceDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetServiceDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgDatabaseUnavailable), Err: fmt.Errorf("service db is nil")})
		return nil, false
	}
	return db, true
}

func getSessionsOrRespond(c *gin.Context) (*session.Manager, bool) {
	m := middleware.GetSessions(c)
	if m == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgSessionFailed), Err: fmt.Errorf("session store is nil")})
		return nil, false
	}
	return m, true
}

func dbErrorOrRespond(c *gin.Context, err error) {
	key := util.MsgQueryFailed
	if util.ClassifyDBError(err) == util.DBErrNotFound {
		key = util.MsgNotFound
	}
	util.CallDBError(c, util.APIErrorParams{Msg: util.Localize(c, key), Err: err})
}

// scopePatientOrRespond limits a query to the caller's own data when the
// session belongs to a patient. It returns the effective patient id filter.
func scopePatientOrRespond(c *gin.Context, requested string) (string, bool) {
	rec, ok := middleware.GetSessionRecord(c)
	if !ok || rec.Kind != session.KindPatient {
		return requested, true
	}
	if requested == "" {
		return rec.Identity, true
	}
	if requested != rec.Identity {
		util.CallForbidden(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgForbidden), Err: fmt.Errorf("patients may only read their own records")})
		return "", false
	}
	return requested, true
}
