package endpoint

import (
	"context"

	"github.com/ariebrainware/cml-tracker/model"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type StatsResponse struct {
	TotalPatients           int64 `json:"total_patients"`
	ActiveDoctors           int64 `json:"active_doctors"`
	PatientsOnActiveRegimen int64 `json:"patients_on_active_regimen"`
	TotalTestResults        int64 `json:"total_test_results"`
	UnresolvedAlerts        int64 `json:"unresolved_alerts"`
	UpcomingAppointments    int64 `json:"upcoming_appointments"`
}

type countQuery struct {
	dst   *int64
	build func(db *gorm.DB) *gorm.DB
}

// collectStats runs the six counts concurrently. The first failure cancels
// the rest and no partial result is returned.
func collectStats(ctx context.Context, db *gorm.DB) (StatsResponse, error) {
	var s StatsResponse
	queries := []countQuery{
		{&s.TotalPatients, func(db *gorm.DB) *gorm.DB { return db.Model(&model.Patient{}) }},
		{&s.ActiveDoctors, func(db *gorm.DB) *gorm.DB { return db.Model(&model.Doctor{}).Where("is_active = ?", true) }},
		{&s.PatientsOnActiveRegimen, func(db *gorm.DB) *gorm.DB {
			return db.Model(&model.TKIRecord{}).Where("end_date IS NULL").Distinct("patient_id")
		}},
		{&s.TotalTestResults, func(db *gorm.DB) *gorm.DB { return db.Model(&model.TestResult{}) }},
		{&s.UnresolvedAlerts, func(db *gorm.DB) *gorm.DB { return db.Model(&model.Alert{}).Where("resolved = ?", false) }},
		{&s.UpcomingAppointments, func(db *gorm.DB) *gorm.DB { return appointmentWindow(db.Model(&model.Patient{})) }},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, q := range queries {
		g.Go(func() error {
			return q.build(db.WithContext(gctx)).Count(q.dst).Error
		})
	}
	if err := g.Wait(); err != nil {
		return StatsResponse{}, err
	}
	return s, nil
}

// Stats godoc
// @Summary      Dashboard counters
// @Description  Six counts computed concurrently. Any failing count fails the whole request.
// @Tags         Stats
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=StatsResponse} "Stats retrieved"
// @Failure      500 {object} util.APIResponse "A count failed"
// @Router       /api/stats [get]
func Stats(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	stats, err := collectStats(c.Request.Context(), db)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: util.Localize(c, util.MsgQueryFailed), Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: util.Localize(c, util.MsgRetrieved), Data: stats})
}
