package models

import (
	"time"

	"gorm.io/datatypes"
)

// SweepResult is the outcome of one reminder within a sweep
type SweepResult struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SweepRun records a single sweep so duplicate or missed sends can be traced
type SweepRun struct {
	ID            uint                             `gorm:"primaryKey;autoIncrement" json:"id"`
	StartedAt     time.Time                        `gorm:"not null;index" json:"startedAt"`
	FinishedAt    time.Time                        `gorm:"not null" json:"finishedAt"`
	Processed     int                              `gorm:"not null" json:"processed"`
	Sent          int                              `gorm:"not null" json:"sent"`
	Failed        int                              `gorm:"not null" json:"failed"`
	Confirmations int                              `gorm:"not null;default:0" json:"confirmations"`
	Results       datatypes.JSONSlice[SweepResult] `json:"results"`
}

// TableName specifies the table name for the SweepRun model
func (SweepRun) TableName() string {
	return "sweep_run"
}
