package model

import "time"

// TKIMedication is an entry of the tyrosine-kinase inhibitor catalog.
type TKIMedication struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"column:name;uniqueIndex;size:191;not null" example:"Imatinib"`
	SortOrder int       `json:"sort_order" gorm:"column:sort_order;default:0"`
	CreatedAt time.Time `json:"created_at"`
}

// TKIRecord is one regimen in a patient's TKI history. A nil EndDate marks the
// patient's current regimen.
type TKIRecord struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	PatientID string     `json:"patient_id" gorm:"column:patient_id;index;size:64;not null"`
	TKIName   string     `json:"tki_name" gorm:"column:tki_name;size:191;not null" example:"Nilotinib"`
	StartDate time.Time  `json:"start_date" gorm:"column:start_date;type:date;not null"`
	EndDate   *time.Time `json:"end_date" gorm:"column:end_date;type:date;index"`
	Reason    string     `json:"reason" gorm:"column:reason;type:text"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsActive reports whether the record is the patient's current regimen.
func (r TKIRecord) IsActive() bool {
	return r.EndDate == nil
}
