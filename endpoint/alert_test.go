package endpoint

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ariebrainware/cml-tracker/model"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertLifecycle(t *testing.T) {
	s := setupTestServer(t)
	staff := s.staffToken(t)
	resolvedAt := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	fixNow(t, resolvedAt)

	w, resp := do(t, s.r, requestSpec{method: http.MethodPost, path: "/api/alerts", token: staff, body: map[string]interface{}{
		"patient_id": "HN001",
		"alert_type": "missed_appointment",
		"message":    "Missed appointment on 2026-01-10",
		"payload":    map[string]interface{}{"appointment_date": "2026-01-10"},
	}})
	assertSuccess(t, w, resp)
	var alert model.Alert
	decodeData(t, resp, &alert)
	assert.False(t, alert.Resolved)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(alert.Payload, &payload))
	assert.Equal(t, "2026-01-10", payload["appointment_date"])

	w, resp = do(t, s.r, requestSpec{method: http.MethodPut, path: "/api/alerts/" + uintStr(alert.ID), token: staff, body: map[string]bool{"resolved": true}})
	assertSuccess(t, w, resp)
	var resolved model.Alert
	decodeData(t, resp, &resolved)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedAt)
	assert.True(t, resolved.ResolvedAt.Equal(resolvedAt))

	w, resp = do(t, s.r, requestSpec{method: http.MethodPut, path: "/api/alerts/" + uintStr(alert.ID), token: staff, body: map[string]bool{"resolved": false}})
	assertSuccess(t, w, resp)
	var reopened model.Alert
	require.NoError(t, s.db.First(&reopened, alert.ID).Error)
	assert.False(t, reopened.Resolved)
	assert.Nil(t, reopened.ResolvedAt)

	w, resp = do(t, s.r, requestSpec{method: http.MethodPut, path: "/api/alerts/" + uintStr(alert.ID), token: staff, body: map[string]interface{}{}})
	assertFailure(t, w, resp, http.StatusBadRequest, util.MsgInvalidRequest)

	w, resp = do(t, s.r, requestSpec{method: http.MethodPut, path: "/api/alerts/9999", token: staff, body: map[string]bool{"resolved": true}})
	assertFailure(t, w, resp, http.StatusNotFound, util.MsgNotFound)
}

func TestListAlerts(t *testing.T) {
	s := setupTestServer(t)
	staff := s.staffToken(t)
	hn1, hn2 := "HN001", "HN002"
	base := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	alerts := []model.Alert{
		{PatientID: &hn1, AlertType: "high_bcr_abl", CreatedAt: base},
		{PatientID: &hn2, AlertType: "missed_appointment", CreatedAt: base.Add(time.Hour)},
		{PatientID: &hn1, AlertType: "missed_appointment", Resolved: true, CreatedAt: base.Add(2 * time.Hour)},
		{AlertType: "system", CreatedAt: base.Add(3 * time.Hour)},
	}
	require.NoError(t, s.db.Create(&alerts).Error)

	types := func(resp map[string]interface{}) []string {
		var got []model.Alert
		decodeData(t, resp, &got)
		out := make([]string, 0, len(got))
		for _, a := range got {
			out = append(out, a.AlertType)
		}
		return out
	}

	w, resp := do(t, s.r, requestSpec{method: http.MethodGet, path: "/api/alerts", token: staff})
	assertSuccess(t, w, resp)
	assert.Equal(t, []string{"system", "missed_appointment", "missed_appointment", "high_bcr_abl"}, types(resp))

	w, resp = do(t, s.r, requestSpec{method: http.MethodGet, path: "/api/alerts?resolved=false&patient_id=HN001", token: staff})
	assertSuccess(t, w, resp)
	assert.Equal(t, []string{"high_bcr_abl"}, types(resp))

	w, resp = do(t, s.r, requestSpec{method: http.MethodGet, path: "/api/alerts?limit=1", token: staff})
	assertSuccess(t, w, resp)
	assert.Equal(t, []string{"system"}, types(resp))

	w, resp = do(t, s.r, requestSpec{method: http.MethodGet, path: "/api/alerts?resolved=yes", token: staff})
	assertFailure(t, w, resp, http.StatusBadRequest, util.MsgInvalidRequest)
}
