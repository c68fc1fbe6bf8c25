package endpoint

import (
	"fmt"
	"net/http"

	"github.com/ariebrainware/cml-tracker/middleware"
	"github.com/ariebrainware/cml-tracker/session"
	"github.com/gin-gonic/gin"
)

// RouteConfig carries what the route table needs beyond the handlers.
type RouteConfig struct {
	AppName string
	Port    uint16
	// CredentialLimiter guards login and password endpoints. Nil disables it.
	CredentialLimiter gin.HandlerFunc
}

// RegisterRoutes wires page guards and the JSON API onto r. Database and
// session middleware must already be installed.
func RegisterRoutes(r *gin.Engine, cfg RouteConfig) {
	limited := cfg.CredentialLimiter
	if limited == nil {
		limited = func(c *gin.Context) { c.Next() }
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Welcome to %s!", cfg.AppName)})
	})

	// Entry pages resolve to the dashboard or the login page of each kind.
	r.GET("/admin", middleware.RouteGuard(session.KindAdmin))
	r.GET("/doctor", middleware.RouteGuard(session.KindDoctor))
	r.GET("/patient/:patient_id", middleware.RouteGuard(session.KindPatient))

	api := r.Group("/api")
	api.GET("/get-server-info", GetServerInfo(cfg.Port))
	api.GET("/hospitals", ListHospitals)
	api.GET("/tki-medications", ListTKIMedications)
	api.GET("/session/:kind", SessionStatus)

	api.POST("/admin/login", limited, AdminLogin)
	api.POST("/doctor/login", limited, DoctorLogin)
	api.POST("/patient/login", limited, PatientLogin)
	api.POST("/patient/set-password", limited, SetPatientPassword)
	api.POST("/admin/logout", Logout(session.KindAdmin))
	api.POST("/doctor/logout", Logout(session.KindDoctor))
	api.POST("/patient/logout", Logout(session.KindPatient))

	anyone := api.Group("", middleware.RequireSession(session.KindAdmin, session.KindDoctor, session.KindPatient))
	{
		anyone.GET("/patients/:patient_id", GetPatient)
		anyone.GET("/tki-records", ListTKIRecords)
		anyone.GET("/test-results", ListTestResults)
	}

	staff := api.Group("", middleware.RequireStaff())
	{
		staff.POST("/patient/reset-password", limited, ResetPatientPassword)

		staff.GET("/patients", ListPatients)
		staff.POST("/patients", CreatePatient)
		staff.PUT("/patients/:patient_id", UpdatePatient)
		staff.DELETE("/patients/:patient_id", DeletePatient)

		staff.POST("/tki-records", CreateTKIRecords)
		staff.POST("/tki-records/update", BulkUpdateTKIRecords)
		staff.PUT("/tki-records/:id", UpdateTKIRecord)

		staff.POST("/tki-medications", CreateTKIMedication)
		staff.PUT("/tki-medications/:id", UpdateTKIMedication)
		staff.DELETE("/tki-medications/:id", DeleteTKIMedication)

		staff.GET("/alerts", ListAlerts)
		staff.POST("/alerts", CreateAlert)
		staff.PUT("/alerts/:id", UpdateAlert)

		staff.GET("/doctors", ListDoctors)
		staff.POST("/test-results", CreateTestResult)
		staff.GET("/stats", Stats)
	}

	admin := api.Group("", middleware.RequireSession(session.KindAdmin))
	{
		admin.POST("/doctors", CreateDoctor)
		admin.PUT("/doctors/:id", UpdateDoctor)
	}
}
