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

type SetPasswordRequest struct {
	PatientID string `json:"patient_id" binding:"required" example:"HN650001"`
	Password  string `json:"password" binding:"required" example:"secret1"`
}

type ResetPasswordRequest struct {
	PatientID   string `json:"patient_id" binding:"required" example:"HN650001"`
	NewPassword string `json:"new_password" binding:"required" example:"secret1"`
}

// hashNewPasswordOrRespond enforces the minimum length before any hashing.
func hashNewPasswordOrRespond(c *gin.Context, plain string) (string, bool) {
	hash, err := util.HashNewPassword(plain)
	if errors.Is(err, util.ErrPasswordTooShort) {
		userError(c, util.MsgPasswordTooShort, err)
		return "", false
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgQueryFailed), Err: err})
		return "", false
	}
	return hash, true
}

// invalidatePatientSessions ends every session of a patient. A failure is
// logged and does not fail the request.
func invalidatePatientSessions(c *gin.Context, patientID string) {
	m := middleware.GetSessions(c)
	if m == nil {
		return
	}
	if err := m.InvalidateIdentity(c.Request.Context(), session.KindPatient, patientID); err != nil {
		util.Logger().Warn().Err(err).Str("patient_id", patientID).Msg("failed to invalidate patient sessions")
	}
}

func findPatientOrRespond(c *gin.Context, db *gorm.DB, patientID string) (model.Patient, bool) {
	var patient model.Patient
	err := db.Where("patient_id = ?", patientID).First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgPatientNotFound), Err: err})
		return model.Patient{}, false
	}
	if err != nil {
		dbErrorOrRespond(c, err)
		return model.Patient{}, false
	}
	return patient, true
}

// SetPatientPassword godoc
// @Summary      First-time patient password
// @Description  Set a patient's password. Only allowed while no password is set.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body SetPasswordRequest true "Patient id and new password"
// @Success      200 {object} util.APIResponse "Password set"
// @Failure      400 {object} util.APIResponse "Too short or already set"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /api/patient/set-password [post]
func SetPatientPassword(c *gin.Context) {
	var req SetPasswordRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	if err := util.ValidateNewPassword(req.Password); err != nil {
		userError(c, util.MsgPasswordTooShort, err)
		return
	}
	db, ok := getServiceDBOrRespond(c)
	if !ok {
		return
	}

	patient, ok := findPatientOrRespond(c, db, req.PatientID)
	if !ok {
		return
	}
	if patient.HasPassword() {
		userError(c, util.MsgPasswordAlreadySet, fmt.Errorf("password already set"))
		return
	}

	hash, ok := hashNewPasswordOrRespond(c, req.Password)
	if !ok {
		return
	}
	// The predicate closes the race between two first-time requests.
	res := db.Model(&model.Patient{}).
		Where("patient_id = ? AND (password_hash IS NULL OR password_hash = '')", req.PatientID).
		Update("password_hash", hash)
	if res.Error != nil {
		dbErrorOrRespond(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		userError(c, util.MsgPasswordAlreadySet, fmt.Errorf("password already set"))
		return
	}

	ci := clientInfoOf(c)
	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventPasswordSet,
		Kind:      string(session.KindPatient),
		Identity:  req.PatientID,
		IP:        ci.IP,
		UserAgent: ci.Agent,
		Message:   "Patient set initial password",
	})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgPasswordSet), Data: nil})
}

// ResetPatientPassword godoc
// @Summary      Reset patient password
// @Description  Staff replace a patient's password. All sessions of the patient end.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body ResetPasswordRequest true "Patient id and new password"
// @Success      200 {object} util.APIResponse "Password reset"
// @Failure      400 {object} util.APIResponse "Password too short"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /api/patient/reset-password [post]
func ResetPatientPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	if err := util.ValidateNewPassword(req.NewPassword); err != nil {
		userError(c, util.MsgPasswordTooShort, err)
		return
	}
	db, ok := getServiceDBOrRespond(c)
	if !ok {
		return
	}
	if _, ok := findPatientOrRespond(c, db, req.PatientID); !ok {
		return
	}

	hash, ok := hashNewPasswordOrRespond(c, req.NewPassword)
	if !ok {
		return
	}
	if err := db.Model(&model.Patient{}).Where("patient_id = ?", req.PatientID).Update("password_hash", hash).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}

	invalidatePatientSessions(c, req.PatientID)

	actor, _ := middleware.GetSessionRecord(c)
	ci := clientInfoOf(c)
	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventPasswordReset,
		Kind:      string(actor.Kind),
		Identity:  actor.Identity,
		IP:        ci.IP,
		UserAgent: ci.Agent,
		Message:   fmt.Sprintf("Password reset for patient %s", req.PatientID),
	})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgPasswordReset), Data: nil})
}
