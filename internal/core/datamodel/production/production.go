package production

import "time"

// Entry is one day's output of a line in a department.
type Entry struct {
	ID             int64     `gorm:"primaryKey"`
	EntryDate      time.Time `gorm:"column:entry_date;not null;index"`
	DepartmentCode string    `gorm:"column:department_code;size:32;not null;index"`
	Line           string    `gorm:"column:line;size:64"`
	Style          string    `gorm:"column:style;size:128"`
	OrderNumber    string    `gorm:"column:order_number;size:64;index"`
	TargetQty      int64     `gorm:"column:target_qty;not null"`
	ProducedQty    int64     `gorm:"column:produced_qty;not null"`
	RejectedQty    int64     `gorm:"column:rejected_qty;not null"`
	Remarks        string    `gorm:"column:remarks"`
	CreatedBy      string    `gorm:"column:created_by;size:36;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Entry) TableName() string { return "production_entries" }
