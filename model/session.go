package model

import "time"

// Session is a persisted login used by the database session backend.
type Session struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Token     string    `json:"-" gorm:"column:token;uniqueIndex;size:191;not null"`
	Kind      string    `json:"kind" gorm:"column:kind;size:16;index:idx_sessions_identity"`
	Identity  string    `json:"identity" gorm:"column:identity;size:191;index:idx_sessions_identity"`
	Name      string    `json:"name" gorm:"column:name;size:255"`
	LoginTime time.Time `json:"login_time" gorm:"column:login_time;not null"`
	CreatedAt time.Time `json:"created_at"`
}
