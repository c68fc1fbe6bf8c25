package endpoint

import (
	"errors"
	"fmt"

	"github.com/ariebrainware/cml-tracker/middleware"
	"github.com/ariebrainware/cml-tracker/model"
	"github.com/ariebrainware/cml-tracker/session"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errInvalidCredentials = errors.New("invalid credentials")

type AdminLoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"secret1"`
}

type AdminLoginResponse struct {
	Username string `json:"username" example:"admin"`
	Token    string `json:"token"`
}

type DoctorLoginRequest struct {
	DoctorCode string `json:"doctor_code" binding:"required" example:"D001"`
	Password   string `json:"password" binding:"required"`
}

type DoctorInfo struct {
	DoctorCode string `json:"doctor_code" example:"D001"`
	Name       string `json:"name"`
}

type DoctorLoginResponse struct {
	Doctor DoctorInfo `json:"doctor"`
	Token  string     `json:"token"`
}

type PatientLoginRequest struct {
	PatientID string `json:"patient_id" binding:"required" example:"HN650001"`
	Password  string `json:"password" binding:"required"`
}

type PatientLoginResponse struct {
	PatientID string `json:"patient_id" example:"HN650001"`
	Token     string `json:"token"`
}

type loginContext struct {
	C        *gin.Context
	DB       *gorm.DB
	Kind     session.Kind
	Identity string
	CI       clientInfo
}

// rejectLogin answers every failed login the same way. The reason is only
// written to the security log.
func rejectLogin(ctx loginContext, reason string) {
	util.LogLoginFailure(string(ctx.Kind), ctx.Identity, ctx.CI.IP, ctx.CI.Agent, reason)
	util.CallUserNotAuthorized(ctx.C, util.APIErrorParams{
		Msg: util.Localize(ctx.C, util.MsgInvalidCredentials),
		Err: errInvalidCredentials,
	})
}

// lookupOrReject loads a principal row. A missing row is a credential failure,
// anything else a server error.
func lookupOrReject(ctx loginContext, dst interface{}, query string, args ...interface{}) bool {
	err := ctx.DB.Where(query, args...).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rejectLogin(ctx, "unknown identity")
		return false
	}
	if err != nil {
		util.LogLoginFailure(string(ctx.Kind), ctx.Identity, ctx.CI.IP, ctx.CI.Agent, "database error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: util.Localize(ctx.C, util.MsgQueryFailed), Err: err})
		return false
	}
	return true
}

// issueSessionOrRespond starts a session, sets its cookie and logs the login.
func issueSessionOrRespond(ctx loginContext, name string) (session.Session, bool) {
	m, ok := getSessionsOrRespond(ctx.C)
	if !ok {
		return session.Session{}, false
	}
	s, err := m.Login(ctx.C.Request.Context(), ctx.Kind, ctx.Identity, name)
	if err != nil {
		util.LogLoginFailure(string(ctx.Kind), ctx.Identity, ctx.CI.IP, ctx.CI.Agent, "session creation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: util.Localize(ctx.C, util.MsgSessionFailed), Err: err})
		return session.Session{}, false
	}
	middleware.SetSessionCookie(ctx.C, s)
	util.LogLoginSuccess(string(ctx.Kind), ctx.Identity, ctx.CI.IP, ctx.CI.Agent)
	return s, true
}

func newLoginContext(c *gin.Context, kind session.Kind, identity string) (loginContext, bool) {
	// Credential checks read password hashes, which only the service tier sees.
	db, ok := getServiceDBOrRespond(c)
	if !ok {
		return loginContext{}, false
	}
	return loginContext{C: c, DB: db, Kind: kind, Identity: identity, CI: clientInfoOf(c)}, true
}

// AdminLogin godoc
// @Summary      Admin login
// @Description  Authenticate an administrator with username and password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body AdminLoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=AdminLoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      401 {object} util.APIResponse "Invalid credentials"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /api/admin/login [post]
func AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	ctx, ok := newLoginContext(c, session.KindAdmin, req.Username)
	if !ok {
		return
	}

	var admin model.Admin
	if !lookupOrReject(ctx, &admin, "username = ?", req.Username) {
		return
	}
	if !util.CheckPassword(req.Password, admin.PasswordHash) {
		rejectLogin(ctx, "invalid password")
		return
	}

	s, ok := issueSessionOrRespond(ctx, admin.Username)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  util.Localize(c, util.MsgLoginSuccessful),
		Data: AdminLoginResponse{Username: admin.Username, Token: s.Token},
	})
}

// DoctorLogin godoc
// @Summary      Doctor login
// @Description  Authenticate an active doctor with doctor code and password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body DoctorLoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=DoctorLoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      401 {object} util.APIResponse "Invalid credentials or inactive account"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /api/doctor/login [post]
func DoctorLogin(c *gin.Context) {
	var req DoctorLoginRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	ctx, ok := newLoginContext(c, session.KindDoctor, req.DoctorCode)
	if !ok {
		return
	}

	var doctor model.Doctor
	if !lookupOrReject(ctx, &doctor, "doctor_code = ?", req.DoctorCode) {
		return
	}
	if !doctor.IsActive {
		rejectLogin(ctx, "account disabled")
		return
	}
	if !util.CheckPassword(req.Password, doctor.PasswordHash) {
		rejectLogin(ctx, "invalid password")
		return
	}

	s, ok := issueSessionOrRespond(ctx, doctor.Name)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: util.Localize(c, util.MsgLoginSuccessful),
		Data: DoctorLoginResponse{
			Doctor: DoctorInfo{DoctorCode: doctor.DoctorCode, Name: doctor.Name},
			Token:  s.Token,
		},
	})
}

// PatientLogin godoc
// @Summary      Patient login
// @Description  Authenticate a patient who has already set a password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body PatientLoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=PatientLoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      401 {object} util.APIResponse "Invalid credentials"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /api/patient/login [post]
func PatientLogin(c *gin.Context) {
	var req PatientLoginRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	ctx, ok := newLoginContext(c, session.KindPatient, req.PatientID)
	if !ok {
		return
	}

	var patient model.Patient
	if !lookupOrReject(ctx, &patient, "patient_id = ?", req.PatientID) {
		return
	}
	if !patient.HasPassword() {
		rejectLogin(ctx, "password not set")
		return
	}
	if !util.CheckPassword(req.Password, *patient.PasswordHash) {
		rejectLogin(ctx, "invalid password")
		return
	}

	s, ok := issueSessionOrRespond(ctx, util.NormalizeName(patient.FirstName+" "+patient.LastName))
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  util.Localize(c, util.MsgLoginSuccessful),
		Data: PatientLoginResponse{PatientID: patient.PatientID, Token: s.Token},
	})
}

// Logout returns the logout handler of a principal kind. Logging out without
// a valid session still succeeds.
//
// @Summary      Logout
// @Description  End the current admin, doctor or patient session
// @Tags         Authentication
// @Produce      json
// @Security     SessionToken
// @Param        patient_id query string false "Patient to log out when several patients share the device"
// @Success      200 {object} util.APIResponse "Logout successful"
// @Failure      400 {object} util.APIResponse "Several patient sessions and no patient_id"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /api/{kind}/logout [post]
func Logout(kind session.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := getSessionsOrRespond(c)
		if !ok {
			return
		}
		if kind == session.KindPatient && middleware.AmbiguousPatientSession(c) {
			userError(c, util.MsgInvalidRequest, fmt.Errorf("patient_id is required when several patient sessions are present"))
			return
		}
		if rec, token, ok := middleware.Authenticate(c, kind); ok {
			if err := m.Logout(c.Request.Context(), token); err != nil {
				util.CallServerError(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgSessionFailed), Err: err})
				return
			}
			middleware.ClearSessionCookie(c, kind, rec.Identity)
			ci := clientInfoOf(c)
			util.LogLogout(string(kind), rec.Identity, ci.IP, ci.Agent)
		}
		util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgLogoutSuccessful), Data: nil})
	}
}

type SessionStatusResponse struct {
	Kind      session.Kind `json:"kind"`
	Identity  string       `json:"identity"`
	Name      string       `json:"name,omitempty"`
	LoginTime string       `json:"login_time"`
	ExpiresAt string       `json:"expires_at"`
}

// SessionStatus godoc
// @Summary      Current session
// @Description  Report whether the caller holds a valid session of the given kind
// @Tags         Authentication
// @Produce      json
// @Security     SessionToken
// @Param        kind path string true "admin, doctor or patient"
// @Success      200 {object} util.APIResponse{data=SessionStatusResponse} "Valid session"
// @Failure      400 {object} util.APIResponse "Unknown kind"
// @Failure      401 {object} util.APIResponse "No valid session"
// @Router       /api/session/{kind} [get]
func SessionStatus(c *gin.Context) {
	kind, err := session.ParseKind(c.Param("kind"))
	if err != nil {
		userError(c, util.MsgInvalidRequest, err)
		return
	}
	rec, _, ok := middleware.Authenticate(c, kind)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: util.Localize(c, util.MsgUnauthorized),
			Err: fmt.Errorf("no valid %s session", kind),
		})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: util.Localize(c, util.MsgRetrieved),
		Data: SessionStatusResponse{
			Kind:      rec.Kind,
			Identity:  rec.Identity,
			Name:      rec.Name,
			LoginTime: rec.LoginTime.UTC().Format(timeLayout),
			ExpiresAt: rec.ExpiresAt().UTC().Format(timeLayout),
		},
	})
}
