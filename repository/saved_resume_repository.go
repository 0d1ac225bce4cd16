package repository

import (
	"time"

	"gorm.io/gorm"

	"auto_resume_go/model"
)

// SavedResumeRepository 简历保存记录
type SavedResumeRepository interface {
	Create(rec *model.SavedResumeEntity) error
	FindSince(since time.Time) ([]*model.SavedResumeEntity, error)
	Count() (int64, error)
}

type savedResumeRepository struct {
	db *gorm.DB
}

func NewSavedResumeRepository(db *gorm.DB) SavedResumeRepository {
	return &savedResumeRepository{db: db}
}

func (r *savedResumeRepository) Create(rec *model.SavedResumeEntity) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return r.db.Create(rec).Error
}

// FindSince 按时间顺序返回 since 之后的记录
func (r *savedResumeRepository) FindSince(since time.Time) ([]*model.SavedResumeEntity, error) {
	var recs []*model.SavedResumeEntity
	err := r.db.Where("created_at >= ?", since).Order("created_at, id").Find(&recs).Error
	return recs, err
}

func (r *savedResumeRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&model.SavedResumeEntity{}).Count(&n).Error
	return n, err
}
