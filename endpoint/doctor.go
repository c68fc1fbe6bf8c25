package endpoint

import (
	"fmt"
	"strings"

	"github.com/ariebrainware/cml-tracker/middleware"
	"github.com/ariebrainware/cml-tracker/model"
	"github.com/ariebrainware/cml-tracker/session"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
)

type CreateDoctorRequest struct {
	DoctorCode string `json:"doctor_code" binding:"required" example:"D001"`
	Name       string `json:"name" binding:"required" example:"พญ. สมหญิง ใจดี"`
	Password   string `json:"password" binding:"required" example:"secret1"`
}

type UpdateDoctorRequest struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
	// Password is optional; when present it must meet the minimum length.
	Password *string `json:"password"`
}

// ListDoctors godoc
// @Summary      List doctors
// @Tags         Doctor
// @Produce      json
// @Security     SessionToken
// @Param        active query bool false "Only active or only inactive doctors"
// @Success      200 {object} util.APIResponse{data=[]model.Doctor} "Doctors retrieved"
// @Router       /api/doctors [get]
func ListDoctors(c *gin.Context) {
	active, err := parseBoolQuery(c, "active")
	if err != nil {
		userError(c, util.MsgInvalidRequest, err)
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	query := db.Model(&model.Doctor{})
	if active != nil {
		query = query.Where("is_active = ?", *active)
	}
	var doctors []model.Doctor
	if err := query.Order("doctor_code ASC").Find(&doctors).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgRetrieved), Data: doctors})
}

// CreateDoctor godoc
// @Summary      Create doctor account
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CreateDoctorRequest true "Doctor"
// @Success      200 {object} util.APIResponse{data=model.Doctor} "Doctor created"
// @Failure      400 {object} util.APIResponse "Invalid request, short password or duplicate code"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /api/doctors [post]
func CreateDoctor(c *gin.Context) {
	var req CreateDoctorRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	req.DoctorCode = strings.TrimSpace(req.DoctorCode)
	if req.DoctorCode == "" {
		userError(c, util.MsgInvalidRequest, fmt.Errorf("doctor_code is required"))
		return
	}
	hash, ok := hashNewPasswordOrRespond(c, req.Password)
	if !ok {
		return
	}
	db, ok := getServiceDBOrRespond(c)
	if !ok {
		return
	}

	doctor := model.Doctor{
		DoctorCode:   req.DoctorCode,
		Name:         util.NormalizeName(req.Name),
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := db.Create(&doctor).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgCreated), Data: doctor})
}

// UpdateDoctor godoc
// @Summary      Update doctor account
// @Description  Deactivating a doctor ends all of their sessions.
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Doctor id"
// @Param        request body UpdateDoctorRequest true "Fields to change"
// @Success      200 {object} util.APIResponse{data=model.Doctor} "Doctor updated"
// @Failure      400 {object} util.APIResponse "Invalid request or short password"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Router       /api/doctors/{id} [put]
func UpdateDoctor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateDoctorRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = util.NormalizeName(*req.Name)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		hash, ok := hashNewPasswordOrRespond(c, *req.Password)
		if !ok {
			return
		}
		updates["password_hash"] = hash
	}
	if len(updates) == 0 {
		userError(c, util.MsgInvalidRequest, fmt.Errorf("no fields to update"))
		return
	}
	db, ok := getServiceDBOrRespond(c)
	if !ok {
		return
	}

	var doctor model.Doctor
	if err := db.First(&doctor, id).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	if err := db.Model(&doctor).Updates(updates).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}

	// A disabled account or a new password ends every open session.
	if (req.IsActive != nil && !*req.IsActive) || req.Password != nil {
		if m := middleware.GetSessions(c); m != nil {
			if err := m.InvalidateIdentity(c.Request.Context(), session.KindDoctor, doctor.DoctorCode); err != nil {
				util.Logger().Warn().Err(err).Str("doctor_code", doctor.DoctorCode).Msg("failed to invalidate doctor sessions")
			}
		}
	}
	if req.IsActive != nil && !*req.IsActive {
		actor, _ := middleware.GetSessionRecord(c)
		ci := clientInfoOf(c)
		util.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventAccountDisabled,
			Kind:      string(actor.Kind),
			Identity:  actor.Identity,
			IP:        ci.IP,
			UserAgent: ci.Agent,
			Message:   fmt.Sprintf("Doctor %s deactivated", doctor.DoctorCode),
		})
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgUpdated), Data: doctor})
}
