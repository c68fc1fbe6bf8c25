package model

import "time"

// Doctor is a clinician account. Accounts are soft-disabled through IsActive
// rather than deleted.
type Doctor struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	DoctorCode   string    `json:"doctor_code" gorm:"column:doctor_code;uniqueIndex;size:64;not null" example:"D001"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	Name         string    `json:"name" gorm:"column:name;size:255" example:"พญ. สมหญิง ใจดี"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
