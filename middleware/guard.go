package middleware

import (
	"net/http"

	"github.com/ariebrainware/cml-tracker/session"
	"github.com/gin-gonic/gin"
)

// RouteGuard serves a kind's entry page. It decides once, from the session
// store, whether the visitor is authenticated and redirects to the dashboard
// or to the login page accordingly.
func RouteGuard(kind session.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := "/" + string(kind) + "/login"
		rec, _, ok := Authenticate(c, kind)
		// A patient page only accepts the session of that patient, whichever
		// way the token arrived.
		if ok && kind == session.KindPatient && rec.Identity != c.Param("patient_id") {
			ok = false
		}
		if ok {
			target = "/" + string(kind) + "/dashboard"
		}
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}
