package model

import (
	"time"

	"gorm.io/datatypes"
)

// SecurityLog represents a persisted security event
type SecurityLog struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	EventType string `json:"event_type" gorm:"column:event_type;type:varchar(64);index"`
	Kind      string `json:"kind" gorm:"column:kind;type:varchar(16)"`
	Identity  string `json:"identity" gorm:"column:identity;type:varchar(191);index"`
	IP        string `json:"ip" gorm:"column:ip;type:varchar(45)"`
	// Location stores city and country in the format "City/Country" when available.
	Location  string         `json:"location" gorm:"column:location;type:varchar(255)"`
	UserAgent string         `json:"user_agent" gorm:"column:user_agent;type:varchar(512)"`
	Message   string         `json:"message" gorm:"column:message;type:text"`
	Details   datatypes.JSON `json:"details" gorm:"column:details"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
}
