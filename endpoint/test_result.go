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

// ListTestResults godoc
// @Summary      List lab results
// @Description  Newest test date first. from and to are inclusive dates. Patients only see their own.
// @Tags         TestResult
// @Produce      json
// @Security     SessionToken
// @Param        patient_id query string false "Patient business id"
// @Param        from query string false "YYYY-MM-DD"
// @Param        to query string false "YYYY-MM-DD"
// @Param        limit query int false "Limit number of results"
// @Success      200 {object} util.APIResponse{data=[]model.TestResult} "Results retrieved"
// @Failure      400 {object} util.APIResponse "Invalid date"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Router       /api/test-results [get]
func ListTestResults(c *gin.Context) {
	patientID, ok := scopePatientOrRespond(c, c.Query("patient_id"))
	if !ok {
		return
	}
	from, err := parseOptionalDate(c.Query("from"))
	if err != nil {
		userError(c, util.MsgInvalidRequest, err)
		return
	}
	to, err := parseOptionalDate(c.Query("to"))
	if err != nil {
		userError(c, util.MsgInvalidRequest, err)
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	query := db.Model(&model.TestResult{})
	if patientID != "" {
		query = query.Where("patient_id = ?", patientID)
	}
	if from != nil {
		query = query.Where("test_date >= ?", *from)
	}
	if to != nil {
		query = query.Where("test_date <= ?", *to)
	}
	if limit := parseLimit(c, "limit"); limit > 0 {
		query = query.Limit(limit)
	}

	var results []model.TestResult
	if err := query.Order("test_date DESC").Order("id DESC").Find(&results).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgRetrieved), Data: results})
}

type CreateTestResultRequest struct {
	PatientID string          `json:"patient_id" binding:"required" example:"HN650001"`
	TestDate  string          `json:"test_date" binding:"required" example:"2026-01-15"`
	BCRABL    *float64        `json:"bcr_abl" example:"0.1"`
	Values    json.RawMessage `json:"values" swaggertype:"object"`
	Notes     string          `json:"notes"`
}

// CreateTestResult godoc
// @Summary      Record a lab result
// @Description  Results are append-only.
// @Tags         TestResult
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CreateTestResultRequest true "Result"
// @Success      200 {object} util.APIResponse{data=model.TestResult} "Result created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Router       /api/test-results [post]
func CreateTestResult(c *gin.Context) {
	var req CreateTestResultRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	testDate, err := parseDate(req.TestDate)
	if err != nil {
		userError(c, util.MsgInvalidRequest, err)
		return
	}
	if req.BCRABL != nil && *req.BCRABL < 0 {
		userError(c, util.MsgInvalidRequest, fmt.Errorf("bcr_abl must not be negative"))
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	result := model.TestResult{
		PatientID: strings.TrimSpace(req.PatientID),
		TestDate:  testDate,
		BCRABL:    req.BCRABL,
		Notes:     req.Notes,
	}
	if len(req.Values) > 0 && string(req.Values) != "null" {
		result.Values = datatypes.JSON(req.Values)
	}
	if err := db.Create(&result).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgCreated), Data: result})
}
