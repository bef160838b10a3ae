package cashbook

import "time"

// Entry is a single cash movement. Amount is in minor units and always positive;
// EntryType carries the direction.
type Entry struct {
	ID          int64     `gorm:"primaryKey"`
	EntryDate   time.Time `gorm:"column:entry_date;not null;index"`
	EntryType   string    `gorm:"column:entry_type;size:16;not null;index"`
	Head        string    `gorm:"column:head;size:64;not null;index"`
	Description string    `gorm:"column:description"`
	Amount      int64     `gorm:"column:amount;not null"`
	Reference   string    `gorm:"column:reference;size:128"`
	CreatedBy   string    `gorm:"column:created_by;size:36;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Entry) TableName() string { return "cashbook_entries" }
