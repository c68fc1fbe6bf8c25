package model

import "time"

// Hospital is referenced by patients.
type Hospital struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Code      string    `json:"code" gorm:"column:code;size:32;uniqueIndex"`
	Name      string    `json:"name" gorm:"column:name;size:255;not null" example:"โรงพยาบาลศิริราช"`
	NameEN    string    `json:"name_en" gorm:"column:name_en;size:255" example:"Siriraj Hospital"`
	CreatedAt time.Time `json:"created_at"`
}
