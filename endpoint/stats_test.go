package endpoint

import (
	"net/http"
	"testing"
	"time"

	"github.com/ariebrainware/cml-tracker/model"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStatsFixture(t *testing.T, s *testServer) {
	t.Helper()
	s.seedPatient(t, model.Patient{PatientID: "HN001", NextAppointmentDate: datePtr("2026-01-16")}, "")
	s.seedPatient(t, model.Patient{PatientID: "HN002", NextAppointmentDate: datePtr("2026-02-20")}, "")
	s.seedPatient(t, model.Patient{PatientID: "HN003"}, "")
	s.seedDoctor(t, "D001", "Dr. A", "secret1", true)
	s.seedDoctor(t, "D002", "Dr. B", "secret1", false)
	require.NoError(t, s.db.Create(&[]model.TKIRecord{
		{PatientID: "HN001", TKIName: "Imatinib", StartDate: date("2024-01-01"), EndDate: datePtr("2024-12-31")},
		{PatientID: "HN001", TKIName: "Nilotinib", StartDate: date("2025-01-01")},
		{PatientID: "HN002", TKIName: "Dasatinib", StartDate: date("2025-01-01")},
	}).Error)
	require.NoError(t, s.db.Create(&[]model.TestResult{
		{PatientID: "HN001", TestDate: date("2025-12-01")},
		{PatientID: "HN002", TestDate: date("2025-12-02")},
	}).Error)
	require.NoError(t, s.db.Create(&[]model.Alert{
		{AlertType: "missed_appointment"},
		{AlertType: "high_bcr_abl", Resolved: true},
	}).Error)
}

func TestStats(t *testing.T) {
	s := setupTestServer(t)
	fixNow(t, time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
	seedStatsFixture(t, s)

	w, resp := do(t, s.r, requestSpec{method: http.MethodGet, path: "/api/stats", token: s.staffToken(t)})
	assertSuccess(t, w, resp)
	var stats StatsResponse
	decodeData(t, resp, &stats)
	assert.Equal(t, StatsResponse{
		TotalPatients:           3,
		ActiveDoctors:           1,
		PatientsOnActiveRegimen: 2,
		TotalTestResults:        2,
		UnresolvedAlerts:        1,
		UpcomingAppointments:    1,
	}, stats)
}

func TestStatsFailsWhenACountFails(t *testing.T) {
	s := setupTestServer(t)
	require.NoError(t, s.db.Migrator().DropTable(&model.Alert{}))

	w, resp := do(t, s.r, requestSpec{method: http.MethodGet, path: "/api/stats", token: s.staffToken(t)})
	assertFailure(t, w, resp, http.StatusInternalServerError, util.MsgQueryFailed)
	assert.Empty(t, resp["data"])
}
