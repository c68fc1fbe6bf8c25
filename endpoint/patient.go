package endpoint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ariebrainware/cml-tracker/middleware"
	"github.com/ariebrainware/cml-tracker/model"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	filterAppointments = "appointments"
	appointmentDays    = 7
)

var patientFilters = []string{filterAppointments}

type patientListQuery struct {
	Filter     string
	Search     string
	HospitalID uint
	Limit      int
	Offset     int
}

func parsePatientQuery(c *gin.Context) patientListQuery {
	hospitalID, _ := strconv.ParseUint(c.Query("hospital_id"), 10, 64)
	return patientListQuery{
		Filter:     c.Query("filter"),
		Search:     strings.TrimSpace(c.Query("search")),
		HospitalID: uint(hospitalID),
		Limit:      parseLimit(c, "limit"),
		Offset:     parseLimit(c, "offset"),
	}
}

// appointmentWindow keeps patients whose next appointment falls within
// [today, today+7 days]. Patients without an appointment never match.
func appointmentWindow(db *gorm.DB) *gorm.DB {
	from := today()
	to := from.AddDate(0, 0, appointmentDays)
	return db.Where("next_appointment_date IS NOT NULL AND next_appointment_date >= ? AND next_appointment_date <= ?", from, to)
}

func fetchPatients(db *gorm.DB, q patientListQuery) ([]model.Patient, int64, error) {
	query := db.Model(&model.Patient{})
	if q.Filter == filterAppointments {
		query = appointmentWindow(query)
	}
	if q.HospitalID != 0 {
		query = query.Where("hospital_id = ?", q.HospitalID)
	}
	if q.Search != "" {
		kw := "%" + q.Search + "%"
		query = query.Where("patient_id LIKE ? OR first_name LIKE ? OR last_name LIKE ? OR phone LIKE ?", kw, kw, kw, kw)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if q.Filter == filterAppointments {
		query = query.Order("next_appointment_date ASC").Order("patient_id ASC")
	} else {
		query = query.Order("patient_id ASC")
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}

	var patients []model.Patient
	if err := query.Preload("Hospital").Find(&patients).Error; err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

// ListPatients godoc
// @Summary      List patients
// @Description  List patients with their hospital. filter=appointments keeps patients with an appointment in the next 7 days.
// @Tags         Patient
// @Produce      json
// @Security     SessionToken
// @Param        filter query string false "appointments"
// @Param        search query string false "Matches patient id, name or phone"
// @Param        hospital_id query int false "Hospital filter"
// @Param        limit query int false "Limit number of results"
// @Param        offset query int false "Offset for pagination"
// @Success      200 {object} util.APIResponse{data=object} "Patients retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /api/patients [get]
func ListPatients(c *gin.Context) {
	q := parsePatientQuery(c)
	if q.Filter != "" && !util.Contains(q.Filter, patientFilters) {
		userError(c, util.MsgInvalidRequest, fmt.Errorf("unknown filter %q", q.Filter))
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patients, total, err := fetchPatients(db, q)
	if err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  util.Localize(c, util.MsgRetrieved),
		Data: map[string]interface{}{"total": total, "total_fetched": len(patients), "patients": patients},
	})
}

// GetPatient godoc
// @Summary      Get patient
// @Description  Staff may read any patient, a patient only their own record
// @Tags         Patient
// @Produce      json
// @Security     SessionToken
// @Param        patient_id path string true "Patient business id"
// @Success      200 {object} util.APIResponse{data=model.Patient} "Patient retrieved"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Router       /api/patients/{patient_id} [get]
func GetPatient(c *gin.Context) {
	patientID := c.Param("patient_id")
	if !middleware.CanAccessPatient(c, patientID) {
		util.CallForbidden(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgForbidden), Err: fmt.Errorf("access to patient %s denied", patientID)})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	patient, ok := findPatientOrRespond(c, db.Preload("Hospital"), patientID)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgRetrieved), Data: patient})
}

// PatientRequest is the write payload for patients. Passwords are managed by
// the set-password and reset-password endpoints only.
type PatientRequest struct {
	PatientID           string `json:"patient_id" example:"HN650001"`
	FirstName           string `json:"first_name" example:"Somchai"`
	LastName            string `json:"last_name" example:"Jaidee"`
	Phone               string `json:"phone" example:"0812345678"`
	HospitalID          *uint  `json:"hospital_id" example:"1"`
	DiagnosisDate       string `json:"diagnosis_date" example:"2024-03-01"`
	NextAppointmentDate string `json:"next_appointment_date" example:"2026-01-20"`
	Notes               string `json:"notes"`
}

// CreatePatient godoc
// @Summary      Create patient
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body PatientRequest true "Patient information"
// @Success      200 {object} util.APIResponse{data=model.Patient} "Patient created"
// @Failure      400 {object} util.APIResponse "Invalid request or duplicate patient id"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /api/patients [post]
func CreatePatient(c *gin.Context) {
	var req PatientRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	req.PatientID = strings.TrimSpace(req.PatientID)
	if req.PatientID == "" {
		userError(c, util.MsgInvalidRequest, fmt.Errorf("patient_id is required"))
		return
	}
	diagnosis, err := parseOptionalDate(req.DiagnosisDate)
	if err != nil {
		userError(c, util.MsgInvalidRequest, err)
		return
	}
	appointment, err := parseOptionalDate(req.NextAppointmentDate)
	if err != nil {
		userError(c, util.MsgInvalidRequest, err)
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient := model.Patient{
		PatientID:           req.PatientID,
		FirstName:           util.NormalizeName(req.FirstName),
		LastName:            util.NormalizeName(req.LastName),
		Phone:               strings.TrimSpace(req.Phone),
		HospitalID:          req.HospitalID,
		DiagnosisDate:       diagnosis,
		NextAppointmentDate: appointment,
		Notes:               req.Notes,
	}
	if err := db.Create(&patient).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgCreated), Data: patient})
}

// UpdatePatientRequest carries optional fields; absent fields stay unchanged
// and an empty date string clears the date.
type UpdatePatientRequest struct {
	FirstName           *string `json:"first_name"`
	LastName            *string `json:"last_name"`
	Phone               *string `json:"phone"`
	HospitalID          *uint   `json:"hospital_id"`
	DiagnosisDate       *string `json:"diagnosis_date"`
	NextAppointmentDate *string `json:"next_appointment_date"`
	Notes               *string `json:"notes"`
}

func (r UpdatePatientRequest) updates() (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if r.FirstName != nil {
		updates["first_name"] = util.NormalizeName(*r.FirstName)
	}
	if r.LastName != nil {
		updates["last_name"] = util.NormalizeName(*r.LastName)
	}
	if r.Phone != nil {
		updates["phone"] = strings.TrimSpace(*r.Phone)
	}
	if r.HospitalID != nil {
		updates["hospital_id"] = *r.HospitalID
	}
	if r.Notes != nil {
		updates["notes"] = *r.Notes
	}
	dates := map[string]*string{"diagnosis_date": r.DiagnosisDate, "next_appointment_date": r.NextAppointmentDate}
	for column, raw := range dates {
		if raw == nil {
			continue
		}
		d, err := parseOptionalDate(*raw)
		if err != nil {
			return nil, err
		}
		updates[column] = d
	}
	return updates, nil
}

// UpdatePatient godoc
// @Summary      Update patient
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        patient_id path string true "Patient business id"
// @Param        request body UpdatePatientRequest true "Fields to change"
// @Success      200 {object} util.APIResponse{data=model.Patient} "Patient updated"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Router       /api/patients/{patient_id} [put]
func UpdatePatient(c *gin.Context) {
	patientID := c.Param("patient_id")
	var req UpdatePatientRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}
	updates, err := req.updates()
	if err != nil {
		userError(c, util.MsgInvalidRequest, err)
		return
	}
	if len(updates) == 0 {
		userError(c, util.MsgInvalidRequest, fmt.Errorf("no fields to update"))
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient, ok := findPatientOrRespond(c, db, patientID)
	if !ok {
		return
	}
	if err := db.Model(&patient).Updates(updates).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	patient, ok = findPatientOrRespond(c, db.Preload("Hospital"), patientID)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgUpdated), Data: patient})
}

// DeletePatient godoc
// @Summary      Delete patient
// @Tags         Patient
// @Produce      json
// @Security     SessionToken
// @Param        patient_id path string true "Patient business id"
// @Success      200 {object} util.APIResponse "Patient deleted"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Router       /api/patients/{patient_id} [delete]
func DeletePatient(c *gin.Context) {
	patientID := c.Param("patient_id")
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	res := db.Where("patient_id = ?", patientID).Delete(&model.Patient{})
	if res.Error != nil {
		dbErrorOrRespond(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgPatientNotFound), Err: gorm.ErrRecordNotFound})
		return
	}
	invalidatePatientSessions(c, patientID)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgDeleted), Data: nil})
}

// ListHospitals godoc
// @Summary      List hospitals
// @Tags         Hospital
// @Produce      json
// @Success      200 {object} util.APIResponse{data=[]model.Hospital} "Hospitals retrieved"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /api/hospitals [get]
func ListHospitals(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var hospitals []model.Hospital
	if err := db.Order("name ASC").Find(&hospitals).Error; err != nil {
		dbErrorOrRespond(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgRetrieved), Data: hospitals})
}
