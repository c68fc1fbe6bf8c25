package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTKIRecordIsActive(t *testing.T) {
	end := time.Now()
	assert.True(t, TKIRecord{}.IsActive())
	assert.False(t, TKIRecord{EndDate: &end}.IsActive())
}

func TestPatientHasPassword(t *testing.T) {
	empty := ""
	hash := "$2a$10$abc"
	assert.False(t, Patient{}.HasPassword())
	assert.False(t, Patient{PasswordHash: &empty}.HasPassword())
	assert.True(t, Patient{PasswordHash: &hash}.HasPassword())
}

func TestPasswordHashesAreNeverSerialized(t *testing.T) {
	hash := "$2a$10$secret"
	for _, v := range []interface{}{
		Admin{Username: "admin", PasswordHash: hash},
		Doctor{DoctorCode: "D001", PasswordHash: hash},
		Patient{PatientID: "HN1", PasswordHash: &hash},
	} {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		assert.NotContains(t, string(b), "secret")
		assert.NotContains(t, string(b), "password_hash")
	}
}

func TestPatientPreloadsHospital(t *testing.T) {
	db := setupTestDB(t, "patient_hospital")

	hospital := Hospital{Code: "SI", Name: "ศิริราช", NameEN: "Siriraj"}
	require.NoError(t, db.Create(&hospital).Error)
	require.NoError(t, db.Create(&Patient{PatientID: "HN1", HospitalID: &hospital.ID}).Error)

	var p Patient
	require.NoError(t, db.Preload("Hospital").Where("patient_id = ?", "HN1").First(&p).Error)
	require.NotNil(t, p.Hospital)
	assert.Equal(t, "Siriraj", p.Hospital.NameEN)
}

func TestSessionTokenUnique(t *testing.T) {
	db := setupTestDB(t, "session_unique")

	now := time.Now()
	require.NoError(t, db.Create(&Session{Token: "t1", Kind: "admin", Identity: "admin", LoginTime: now}).Error)
	assert.Error(t, db.Create(&Session{Token: "t1", Kind: "doctor", Identity: "D1", LoginTime: now}).Error)
}
