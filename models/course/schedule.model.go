package course

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClassRoutine is a weekly live class slot of a batch
type ClassRoutine struct {
	gorm.Model
	BatchID   uint                        `json:"batch_id" gorm:"index;not null"`
	Weekday   int                         `json:"weekday"`    // 0 = Sunday
	StartTime string                      `json:"start_time"` // HH:MM, server local time
	EndTime   string                      `json:"end_time"`
	OffDates  datatypes.JSONSlice[string] `json:"off_dates"` // YYYY-MM-DD
	IsActive  bool                        `json:"is_active"`

	Batch *Batch `json:"batch,omitempty" gorm:"foreignKey:BatchID"`
}

// Zoom is the live meeting attached to a batch
type Zoom struct {
	gorm.Model
	BatchID   uint   `json:"batch_id" gorm:"uniqueIndex;not null"`
	Topic     string `json:"topic"`
	MeetingID string `json:"meeting_id"`
	JoinURL   string `json:"join_url"`
	Password  string `json:"password"`
}
