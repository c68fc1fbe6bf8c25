package model

import (
	"time"

	"gorm.io/datatypes"
)

// TestResult is an append-only lab result entry.
type TestResult struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PatientID string    `json:"patient_id" gorm:"column:patient_id;index;size:64;not null"`
	TestDate  time.Time `json:"test_date" gorm:"column:test_date;type:date;not null;index"`
	// BCRABL is the BCR-ABL1 transcript level on the international scale, in percent.
	BCRABL    *float64       `json:"bcr_abl" gorm:"column:bcr_abl"`
	Values    datatypes.JSON `json:"values" gorm:"column:lab_values"`
	Notes     string         `json:"notes" gorm:"column:notes;type:text"`
	CreatedAt time.Time      `json:"created_at"`
}
