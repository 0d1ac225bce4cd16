package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auto_resume_go/model"
)

// AppliedJobRepository 已处理职位
type AppliedJobRepository interface {
	// Upsert 按 job_id 插入或更新状态
	Upsert(job *model.AppliedJobEntity) error
	Exists(jobID string) (bool, error)
	FindAllIDs() ([]string, error)
	CountByStatus(status string) (int64, error)
	DeleteAll() error
}

type appliedJobRepository struct {
	db *gorm.DB
}

func NewAppliedJobRepository(db *gorm.DB) AppliedJobRepository {
	return &appliedJobRepository{db: db}
}

func (r *appliedJobRepository) Upsert(job *model.AppliedJobEntity) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "job_name", "company", "updated_at"}),
	}).Create(job).Error
}

func (r *appliedJobRepository) Exists(jobID string) (bool, error) {
	var n int64
	err := r.db.Model(&model.AppliedJobEntity{}).Where("job_id = ?", jobID).Count(&n).Error
	return n > 0, err
}

func (r *appliedJobRepository) FindAllIDs() ([]string, error) {
	var ids []string
	err := r.db.Model(&model.AppliedJobEntity{}).Order("id").Pluck("job_id", &ids).Error
	return ids, err
}

func (r *appliedJobRepository) CountByStatus(status string) (int64, error) {
	var n int64
	err := r.db.Model(&model.AppliedJobEntity{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// DeleteAll 清空记录，停止投递后重新开始时使用
func (r *appliedJobRepository) DeleteAll() error {
	return r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.AppliedJobEntity{}).Error
}
