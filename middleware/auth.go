package middleware

import (
	"net/http"
	"strings"

	"github.com/ariebrainware/cml-tracker/session"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
)

// SessionTokenHeader carries a session token for API clients that do not use
// cookies.
const SessionTokenHeader = "session-token"

const (
	sessionRecordKey = "session_record"
	sessionTokenKey  = "session_token"
	cookieSecureKey  = "cookie_secure"
)

const patientCookiePrefix = "cml_patient_session_"

// candidateTokens lists the tokens a request presents for kind. The header
// wins over cookies. Patient cookies are scoped to the patient id in the path
// or query when there is one.
func candidateTokens(c *gin.Context, kind session.Kind) []string {
	if tok := c.GetHeader(SessionTokenHeader); tok != "" {
		return []string{tok}
	}
	if kind != session.KindPatient {
		if tok, err := c.Cookie(session.CookieName(kind, "")); err == nil && tok != "" {
			return []string{tok}
		}
		return nil
	}

	if patientID := requestedPatientID(c); patientID != "" {
		if tok, err := c.Cookie(session.CookieName(kind, patientID)); err == nil && tok != "" {
			return []string{tok}
		}
		return nil
	}
	return patientCookieTokens(c)
}

func requestedPatientID(c *gin.Context) string {
	if id := c.Param("patient_id"); id != "" {
		return id
	}
	return c.Query("patient_id")
}

func patientCookieTokens(c *gin.Context) []string {
	var tokens []string
	for _, ck := range c.Request.Cookies() {
		if strings.HasPrefix(ck.Name, patientCookiePrefix) && ck.Value != "" {
			tokens = append(tokens, ck.Value)
		}
	}
	return tokens
}

// AmbiguousPatientSession reports whether the request carries several patient
// cookies and names neither a patient id nor a header token, so no single
// patient session can be picked.
func AmbiguousPatientSession(c *gin.Context) bool {
	if c.GetHeader(SessionTokenHeader) != "" || requestedPatientID(c) != "" {
		return false
	}
	return len(patientCookieTokens(c)) > 1
}

// Authenticate resolves the first valid session of one of kinds.
func Authenticate(c *gin.Context, kinds ...session.Kind) (session.Record, string, bool) {
	m := GetSessions(c)
	if m == nil {
		return session.Record{}, "", false
	}
	ctx := c.Request.Context()
	for _, kind := range kinds {
		for _, tok := range candidateTokens(c, kind) {
			if rec, err := m.Current(ctx, kind, tok); err == nil {
				return rec, tok, true
			}
		}
	}
	return session.Record{}, "", false
}

// RequireSession aborts with 401 unless the request carries a valid session
// of one of kinds. The record is stored for GetSessionRecord.
func RequireSession(kinds ...session.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, tok, ok := Authenticate(c, kinds...)
		if !ok {
			util.LogUnauthorizedAccess(c.ClientIP(), c.Request.URL.Path, "no valid session")
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: util.Localize(c, util.MsgUnauthorized),
				Err: session.ErrNotFound,
			})
			c.Abort()
			return
		}
		c.Set(sessionRecordKey, rec)
		c.Set(sessionTokenKey, tok)
		c.Next()
	}
}

// RequireStaff allows admins and doctors.
func RequireStaff() gin.HandlerFunc {
	return RequireSession(session.KindAdmin, session.KindDoctor)
}

// GetSessionRecord returns the session validated by RequireSession.
func GetSessionRecord(c *gin.Context) (session.Record, bool) {
	v, ok := c.Get(sessionRecordKey)
	if !ok {
		return session.Record{}, false
	}
	rec, ok := v.(session.Record)
	return rec, ok
}

// IsStaff reports whether the validated session belongs to an admin or doctor.
func IsStaff(c *gin.Context) bool {
	rec, ok := GetSessionRecord(c)
	return ok && (rec.Kind == session.KindAdmin || rec.Kind == session.KindDoctor)
}

// CanAccessPatient reports whether the validated session may read data of
// patientID: staff may read everyone, a patient only themselves.
func CanAccessPatient(c *gin.Context, patientID string) bool {
	if IsStaff(c) {
		return true
	}
	rec, ok := GetSessionRecord(c)
	return ok && rec.Kind == session.KindPatient && patientID != "" && rec.Identity == patientID
}

// SetSessionCookie writes the cookie for a freshly issued session.
func SetSessionCookie(c *gin.Context, s session.Session) {
	secure := c.GetBool(cookieSecureKey)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName(s.Kind, s.Identity), s.Token,
		int(session.TTL(s.Kind).Seconds()), "/", "", secure, true)
}

// ClearSessionCookie expires the cookie of a session.
func ClearSessionCookie(c *gin.Context, kind session.Kind, identity string) {
	secure := c.GetBool(cookieSecureKey)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName(kind, identity), "", -1, "/", "", secure, true)
}
