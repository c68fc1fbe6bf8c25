package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariebrainware/cml-tracker/session"
	"github.com/stretchr/testify/assert"
)

func TestRouteGuard(t *testing.T) {
	m := session.NewManager(session.NewMemoryRepository())
	admin := login(t, m, session.KindAdmin, "admin")
	patient := login(t, m, session.KindPatient, "HN001")

	r := newSessionRouter(m)
	r.GET("/admin", RouteGuard(session.KindAdmin))
	r.GET("/doctor", RouteGuard(session.KindDoctor))
	r.GET("/patient/:patient_id", RouteGuard(session.KindPatient))

	tests := []struct {
		name     string
		path     string
		cookie   *http.Cookie
		header   string
		location string
	}{
		{"patient own header token", "/patient/HN001", nil, patient.Token, "/patient/dashboard"},
		{"patient header token for other id", "/patient/HN002", nil, patient.Token, "/patient/login"},
		{"admin header token on patient page", "/patient/HN001", nil, admin.Token, "/patient/login"},
		{"admin logged in", "/admin", &http.Cookie{Name: "cml_admin_session", Value: admin.Token}, "", "/admin/dashboard"},
		{"admin anonymous", "/admin", nil, "", "/admin/login"},
		{"doctor with admin cookie", "/doctor", &http.Cookie{Name: "cml_admin_session", Value: admin.Token}, "", "/doctor/login"},
		{"patient own cookie", "/patient/HN001", &http.Cookie{Name: "cml_patient_session_HN001", Value: patient.Token}, "", "/patient/dashboard"},
		{"patient other id", "/patient/HN002", &http.Cookie{Name: "cml_patient_session_HN001", Value: patient.Token}, "", "/patient/login"},
		{"stale token", "/admin", &http.Cookie{Name: "cml_admin_session", Value: "stale"}, "", "/admin/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set(SessionTokenHeader, tt.header)
			}
			w := performRequest(r, req)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}
}
