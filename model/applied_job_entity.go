package model

import "time"

// 投递状态
const (
	ApplyStatusApplied = "applied"
	// 没有沟通按钮或没有出现“留在此页”
	ApplyStatusSkipped = "skipped"
	ApplyStatusFailed  = "failed"
)

// AppliedJobEntity Boss直聘已处理的职位
type AppliedJobEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	JobID     string    `gorm:"column:job_id;size:128;uniqueIndex"`
	JobName   string    `gorm:"column:job_name"`
	Company   string    `gorm:"column:company"`
	Status    string    `gorm:"column:status;size:32"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (AppliedJobEntity) TableName() string {
	return "applied_job"
}
