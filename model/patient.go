package model

import "time"

// Patient is a CML patient. PasswordHash stays nil until the patient sets a
// password for the first time.
type Patient struct {
	ID                  uint       `json:"id" gorm:"primaryKey"`
	PatientID           string     `json:"patient_id" gorm:"column:patient_id;uniqueIndex;size:64;not null" example:"HN650001"`
	PasswordHash        *string    `json:"-" gorm:"column:password_hash"`
	FirstName           string     `json:"first_name" gorm:"column:first_name;size:191" example:"Somchai"`
	LastName            string     `json:"last_name" gorm:"column:last_name;size:191" example:"Jaidee"`
	Phone               string     `json:"phone" gorm:"column:phone;size:32"`
	HospitalID          *uint      `json:"hospital_id" gorm:"column:hospital_id;index"`
	Hospital            *Hospital  `json:"hospital,omitempty" gorm:"foreignKey:HospitalID"`
	DiagnosisDate       *time.Time `json:"diagnosis_date" gorm:"column:diagnosis_date;type:date"`
	NextAppointmentDate *time.Time `json:"next_appointment_date" gorm:"column:next_appointment_date;type:date;index"`
	Notes               string     `json:"notes" gorm:"column:notes;type:text"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// HasPassword reports whether the patient has completed password setup.
func (p Patient) HasPassword() bool {
	return p.PasswordHash != nil && *p.PasswordHash != ""
}
