package model

import (
	"time"

	"gorm.io/datatypes"
)

type Alert struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	PatientID  *string        `json:"patient_id" gorm:"column:patient_id;index;size:64"`
	AlertType  string         `json:"alert_type" gorm:"column:alert_type;size:64" example:"missed_appointment"`
	Message    string         `json:"message" gorm:"column:message;type:text"`
	Payload    datatypes.JSON `json:"payload" gorm:"column:payload"`
	Resolved   bool           `json:"resolved" gorm:"column:resolved;default:false;index"`
	ResolvedAt *time.Time     `json:"resolved_at" gorm:"column:resolved_at"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}
