package model

import "time"

// SavedResumeEntity 刷新简历后跳转成功的记录
type SavedResumeEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	SourceURL string    `gorm:"column:source_url;size:1024"`
	SavedURL  string    `gorm:"column:saved_url;size:1024"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (SavedResumeEntity) TableName() string {
	return "saved_resume"
}
