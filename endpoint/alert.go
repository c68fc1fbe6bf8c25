package endpoint

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ariebrainware/cml-tracker/model"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// ListAlerts godoc
// @Summary      List alerts
// @Description  Newest first
// @Tags         Alert
// @Produce      json
// @Security     SessionToken
// @Param        resolved query bool false "Resolved state"
// @Param        patient_id query string false "Patient business id"
// @Param        limit query int false "Limit number of results"
// @Success      200 {object} util.APIResponse{data=[]model.Alert} "Alerts retrieved"
// @Router       /api/alerts [get]
func ListAlerts(c *gin.Context) {
	resolved, err := parseBoolQuery(c, "resolved")
	if err != nil {
		userError(c, util.MsgInvalidRequest, err)
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	query := db.Model(&model.Alert{})
	if resolved != nil {
		query = query.Where("resolved = ?", *resolved)
	}
	if patientID := c.Query("patient_id"); patientID != "" {
		query = query.Where("patient_id = ?", patientID)
	}
	if limit := parseLimit(c, "limit"); limit > 0 {
		query = query.Limit(limit)
	}

	var alerts []model.Alert
	if err := query.Order("created_at DESC").Order("id DESC").Find(&alerts).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgRetrieved), Data: alerts})
}

type CreateAlertRequest struct {
	PatientID *string         `json:"patient_id" example:"HN650001"`
	AlertType string          `json:"alert_type" binding:"required" example:"missed_appointment"`
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"payload" swaggertype:"object"`
}

// CreateAlert godoc
// @Summary      Raise an alert
// @Tags         Alert
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CreateAlertRequest true "Alert"
// @Success      200 {object} util.APIResponse{data=model.Alert} "Alert created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Router       /api/alerts [post]
func CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	if strings.TrimSpace(req.AlertType) == "" {
		userError(c, util.MsgInvalidRequest, fmt.Errorf("alert_type is required"))
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	alert := model.Alert{
		PatientID: req.PatientID,
		AlertType: strings.TrimSpace(req.AlertType),
		Message:   req.Message,
	}
	if len(req.Payload) > 0 && string(req.Payload) != "null" {
		alert.Payload = datatypes.JSON(req.Payload)
	}
	if err := db.Create(&alert).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgCreated), Data: alert})
}

type UpdateAlertRequest struct {
	Resolved *bool `json:"resolved" binding:"required"`
}

// UpdateAlert godoc
// @Summary      Resolve or reopen an alert
// @Description  Resolving stamps resolved_at, reopening clears it.
// @Tags         Alert
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Alert id"
// @Param        request body UpdateAlertRequest true "Resolved state"
// @Success      200 {object} util.APIResponse{data=model.Alert} "Alert updated"
// @Failure      404 {object} util.APIResponse "Alert not found"
// @Router       /api/alerts/{id} [put]
func UpdateAlert(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateAlertRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var alert model.Alert
	if err := db.First(&alert, id).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	alert.Resolved = *req.Resolved
	alert.ResolvedAt = nil
	if alert.Resolved {
		t := now().UTC()
		alert.ResolvedAt = &t
	}
	if err := db.Model(&alert).Updates(map[string]interface{}{
		"resolved":    alert.Resolved,
		"resolved_at": alert.ResolvedAt,
	}).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgUpdated), Data: alert})
}
