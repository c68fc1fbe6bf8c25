package endpoint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ariebrainware/cml-tracker/model"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	errActiveRegimenExists = errors.New("patient already has an active TKI regimen")
	errEmptyFilter         = errors.New("filter must contain at least one condition")
	errEndBeforeStart      = errors.New("end_date is before start_date")
)

// ListTKIRecords godoc
// @Summary      List TKI history
// @Description  Regimens ordered by start date, newest first. Patients only see their own.
// @Tags         TKI
// @Produce      json
// @Security     SessionToken
// @Param        patient_id query string false "Patient business id"
// @Param        active query bool false "true: current regimens, false: ended regimens"
// @Param        limit query int false "Limit number of results"
// @Success      200 {object} util.APIResponse{data=[]model.TKIRecord} "Records retrieved"
// @Failure      400 {object} util.APIResponse "Invalid query"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Router       /api/tki-records [get]
func ListTKIRecords(c *gin.Context) {
	patientID, ok := scopePatientOrRespond(c, c.Query("patient_id"))
	if !ok {
		return
	}
	active, err := parseBoolQuery(c, "active")
	if err != nil {
		userError(c, util.MsgInvalidRequest, err)
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	query := db.Model(&model.TKIRecord{})
	if patientID != "" {
		query = query.Where("patient_id = ?", patientID)
	}
	query = whereEndDateNull(query, active)
	if limit := parseLimit(c, "limit"); limit > 0 {
		query = query.Limit(limit)
	}

	var records []model.TKIRecord
	if err := query.Order("start_date DESC").Order("id DESC").Find(&records).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgRetrieved), Data: records})
}

// whereEndDateNull applies the tri-state end date predicate: nil adds
// nothing, true keeps active regimens, false keeps ended ones.
func whereEndDateNull(db *gorm.DB, isNull *bool) *gorm.DB {
	if isNull == nil {
		return db
	}
	if *isNull {
		return db.Where("end_date IS NULL")
	}
	return db.Where("end_date IS NOT NULL")
}

type TKIRecordRequest struct {
	PatientID string `json:"patient_id" example:"HN650001"`
	TKIName   string `json:"tki_name" example:"Imatinib"`
	StartDate string `json:"start_date" example:"2025-01-10"`
	EndDate   string `json:"end_date" example:""`
	Reason    string `json:"reason"`
}

func (r TKIRecordRequest) toModel() (model.TKIRecord, error) {
	if strings.TrimSpace(r.PatientID) == "" || strings.TrimSpace(r.TKIName) == "" {
		return model.TKIRecord{}, fmt.Errorf("patient_id and tki_name are required")
	}
	start, err := parseDate(r.StartDate)
	if err != nil {
		return model.TKIRecord{}, err
	}
	end, err := parseOptionalDate(r.EndDate)
	if err != nil {
		return model.TKIRecord{}, err
	}
	if end != nil && end.Before(start) {
		return model.TKIRecord{}, errEndBeforeStart
	}
	return model.TKIRecord{
		PatientID: strings.TrimSpace(r.PatientID),
		TKIName:   strings.TrimSpace(r.TKIName),
		StartDate: start,
		EndDate:   end,
		Reason:    r.Reason,
	}, nil
}

// decodeOneOrMany accepts either a JSON object or an array of objects.
func decodeOneOrMany(raw []byte) ([]TKIRecordRequest, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var many []TKIRecordRequest
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, true, err
		}
		if len(many) == 0 {
			return nil, true, fmt.Errorf("empty record list")
		}
		return many, true, nil
	}
	var one TKIRecordRequest
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, false, err
	}
	return []TKIRecordRequest{one}, false, nil
}

func hasActiveRegimen(tx *gorm.DB, patientID string, excludeID uint) (bool, error) {
	query := tx.Model(&model.TKIRecord{}).Where("patient_id = ? AND end_date IS NULL", patientID)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// insertTKIRecords creates the records in one transaction. A patient never
// ends up with two active regimens.
func insertTKIRecords(db *gorm.DB, records []model.TKIRecord) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for i := range records {
			if records[i].IsActive() {
				active, err := hasActiveRegimen(tx, records[i].PatientID, 0)
				if err != nil {
					return err
				}
				if active {
					return errActiveRegimenExists
				}
			}
			if err := tx.Create(&records[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateTKIRecords godoc
// @Summary      Add TKI regimens
// @Description  Accepts a single record or an array. Creating an active regimen fails while the patient already has one.
// @Tags         TKI
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body TKIRecordRequest true "Record or array of records"
// @Success      200 {object} util.APIResponse{data=model.TKIRecord} "Records created"
// @Failure      400 {object} util.APIResponse "Invalid request or active regimen exists"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /api/tki-records [post]
func CreateTKIRecords(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		userError(c, util.MsgInvalidRequest, err)
		return
	}
	reqs, isArray, err := decodeOneOrMany(raw)
	if err != nil {
		userError(c, util.MsgInvalidRequest, err)
		return
	}
	records := make([]model.TKIRecord, 0, len(reqs))
	for _, r := range reqs {
		rec, err := r.toModel()
		if err != nil {
			userError(c, util.MsgInvalidRequest, err)
			return
		}
		records = append(records, rec)
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	if err := insertTKIRecords(db, records); err != nil {
		if errors.Is(err, errActiveRegimenExists) {
			userError(c, util.MsgActiveRegimenExists, err)
			return
		}
		dbErrorOrRespond(c, err)
		return
	}

	var data interface{} = records[0]
	if isArray {
		data = records
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgCreated), Data: data})
}

// UpdateTKIRecordRequest: absent fields stay unchanged; an empty end_date
// reopens the regimen.
type UpdateTKIRecordRequest struct {
	TKIName   *string `json:"tki_name"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Reason    *string `json:"reason"`
}

// UpdateTKIRecord godoc
// @Summary      Update a TKI regimen
// @Tags         TKI
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Record id"
// @Param        request body UpdateTKIRecordRequest true "Fields to change"
// @Success      200 {object} util.APIResponse{data=model.TKIRecord} "Record updated"
// @Failure      400 {object} util.APIResponse "Invalid request or active regimen exists"
// @Failure      404 {object} util.APIResponse "Record not found"
// @Router       /api/tki-records/{id} [put]
func UpdateTKIRecord(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateTKIRecordRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var record model.TKIRecord
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, id).Error; err != nil {
			return err
		}
		if req.TKIName != nil {
			record.TKIName = strings.TrimSpace(*req.TKIName)
		}
		if req.Reason != nil {
			record.Reason = *req.Reason
		}
		if req.StartDate != nil {
			start, err := parseDate(*req.StartDate)
			if err != nil {
				return validationError{err}
			}
			record.StartDate = start
		}
		if req.EndDate != nil {
			end, err := parseOptionalDate(*req.EndDate)
			if err != nil {
				return validationError{err}
			}
			if end == nil && record.EndDate != nil {
				active, err := hasActiveRegimen(tx, record.PatientID, record.ID)
				if err != nil {
					return err
				}
				if active {
					return errActiveRegimenExists
				}
			}
			record.EndDate = end
		}
		if record.EndDate != nil && record.EndDate.Before(record.StartDate) {
			return validationError{errEndBeforeStart}
		}
		return tx.Model(&record).Updates(map[string]interface{}{
			"tki_name":   record.TKIName,
			"start_date": record.StartDate,
			"end_date":   record.EndDate,
			"reason":     record.Reason,
		}).Error
	})

	var vErr validationError
	switch {
	case err == nil:
		util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgUpdated), Data: record})
	case errors.Is(err, errActiveRegimenExists):
		userError(c, util.MsgActiveRegimenExists, err)
	case errors.As(err, &vErr):
		userError(c, util.MsgInvalidRequest, vErr.err)
	default:
		dbErrorOrRespond(c, err)
	}
}

type validationError struct{ err error }

func (v validationError) Error() string { return v.err.Error() }

type TKIRecordFilter struct {
	PatientID *string `json:"patient_id"`
	// EndDateIsNull is tri-state: true matches IS NULL, false IS NOT NULL,
	// absent adds no predicate.
	EndDateIsNull *bool `json:"end_date_is_null"`
}

type TKIRecordUpdate struct {
	EndDate *string `json:"end_date"`
	Reason  *string `json:"reason"`
}

type BulkUpdateTKIRecordsRequest struct {
	Filter TKIRecordFilter `json:"filter"`
	Update TKIRecordUpdate `json:"update"`
}

func (f TKIRecordFilter) apply(db *gorm.DB) (*gorm.DB, error) {
	if f.PatientID == nil && f.EndDateIsNull == nil {
		return nil, errEmptyFilter
	}
	if f.PatientID != nil {
		db = db.Where("patient_id = ?", *f.PatientID)
	}
	return whereEndDateNull(db, f.EndDateIsNull), nil
}

// BulkUpdateTKIRecords godoc
// @Summary      Update TKI regimens matching a filter
// @Description  Typically closes a patient's active regimen: filter {patient_id, end_date_is_null: true}, update {end_date, reason}.
// @Tags         TKI
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body BulkUpdateTKIRecordsRequest true "Filter and changes"
// @Success      200 {object} util.APIResponse{data=object} "Records updated"
// @Failure      400 {object} util.APIResponse "Empty filter or invalid update"
// @Router       /api/tki-records/update [post]
func BulkUpdateTKIRecords(c *gin.Context) {
	var req BulkUpdateTKIRecordsRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	updates := map[string]interface{}{}
	if req.Update.EndDate != nil {
		end, err := parseOptionalDate(*req.Update.EndDate)
		if err != nil {
			userError(c, util.MsgInvalidRequest, err)
			return
		}
		updates["end_date"] = end
	}
	if req.Update.Reason != nil {
		updates["reason"] = *req.Update.Reason
	}
	if len(updates) == 0 {
		userError(c, util.MsgInvalidRequest, fmt.Errorf("no fields to update"))
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	query, err := req.Filter.apply(db.Model(&model.TKIRecord{}))
	if err != nil {
		userError(c, util.MsgEmptyFilter, err)
		return
	}
	res := query.Updates(updates)
	if res.Error != nil {
		dbErrorOrRespond(c, res.Error)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  util.Localize(c, util.MsgUpdated),
		Data: map[string]interface{}{"updated": res.RowsAffected},
	})
}

// ListTKIMedications godoc
// @Summary      TKI medication catalog
// @Tags         TKI
// @Produce      json
// @Success      200 {object} util.APIResponse{data=[]model.TKIMedication} "Catalog retrieved"
// @Router       /api/tki-medications [get]
func ListTKIMedications(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var meds []model.TKIMedication
	if err := db.Order("sort_order ASC").Order("name ASC").Find(&meds).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgRetrieved), Data: meds})
}

type TKIMedicationRequest struct {
	Name      *string `json:"name" example:"Imatinib"`
	SortOrder *int    `json:"sort_order" example:"1"`
}

// CreateTKIMedication godoc
// @Summary      Add a catalog entry
// @Tags         TKI
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body TKIMedicationRequest true "Medication"
// @Success      200 {object} util.APIResponse{data=model.TKIMedication} "Medication created"
// @Failure      400 {object} util.APIResponse "Invalid request or duplicate name"
// @Router       /api/tki-medications [post]
func CreateTKIMedication(c *gin.Context) {
	var req TKIMedicationRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		userError(c, util.MsgInvalidRequest, fmt.Errorf("name is required"))
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	med := model.TKIMedication{Name: strings.TrimSpace(*req.Name)}
	if req.SortOrder != nil {
		med.SortOrder = *req.SortOrder
	}
	if err := db.Create(&med).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgCreated), Data: med})
}

// UpdateTKIMedication godoc
// @Summary      Rename or reorder a catalog entry
// @Tags         TKI
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Medication id"
// @Param        request body TKIMedicationRequest true "Fields to change"
// @Success      200 {object} util.APIResponse{data=model.TKIMedication} "Medication updated"
// @Failure      404 {object} util.APIResponse "Medication not found"
// @Router       /api/tki-medications/{id} [put]
func UpdateTKIMedication(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req TKIMedicationRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var med model.TKIMedication
	if err := db.First(&med, id).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	updates := map[string]interface{}{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if len(updates) == 0 {
		userError(c, util.MsgInvalidRequest, fmt.Errorf("no fields to update"))
		return
	}
	if err := db.Model(&med).Updates(updates).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgUpdated), Data: med})
}

// DeleteTKIMedication godoc
// @Summary      Remove a catalog entry
// @Tags         TKI
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Medication id"
// @Success      200 {object} util.APIResponse "Medication deleted"
// @Failure      404 {object} util.APIResponse "Medication not found"
// @Router       /api/tki-medications/{id} [delete]
func DeleteTKIMedication(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	res := db.Delete(&model.TKIMedication{}, id)
	if res.Error != nil {
		dbErrorOrRespond(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgNotFound), Err: gorm.ErrRecordNotFound})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgDeleted), Data: nil})
}
