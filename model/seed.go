package model

import (
	"fmt"

	"gorm.io/gorm"
)

// AllModels lists every table the application migrates.
func AllModels() []interface{} {
	return []interface{}{
		&Admin{},
		&Doctor{},
		&Hospital{},
		&Patient{},
		&TKIMedication{},
		&TKIRecord{},
		&TestResult{},
		&Alert{},
		&Session{},
		&SecurityLog{},
	}
}

// DefaultTKIMedications is the catalog seeded on migrate.
var DefaultTKIMedications = []TKIMedication{
	{Name: "Imatinib", SortOrder: 1},
	{Name: "Nilotinib", SortOrder: 2},
	{Name: "Dasatinib", SortOrder: 3},
	{Name: "Bosutinib", SortOrder: 4},
	{Name: "Ponatinib", SortOrder: 5},
	{Name: "Asciminib", SortOrder: 6},
	{Name: "Flumatinib", SortOrder: 7},
}

// SeedTKIMedications inserts the default catalog entries that are missing.
// Existing rows, including their sort order, are left untouched.
func SeedTKIMedications(db *gorm.DB) error {
	for _, med := range DefaultTKIMedications {
		var existing TKIMedication
		res := db.Where("name = ?", med.Name).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			continue
		}
		if err := db.Create(&med).Error; err != nil {
			return fmt.Errorf("failed to seed TKI medication %s: %w", med.Name, err)
		}
	}
	return nil
}

// UpsertAdmin creates the admin account or replaces its password hash.
func UpsertAdmin(db *gorm.DB, username, passwordHash string) error {
	var admin Admin
	res := db.Where("username = ?", username).Limit(1).Find(&admin)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.Create(&Admin{Username: username, PasswordHash: passwordHash}).Error
	}
	return db.Model(&admin).Update("password_hash", passwordHash).Error
}
