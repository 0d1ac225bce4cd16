package repository

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"auto_resume_go/model"
)

// CookieRepository Cookie仓储接口
type CookieRepository interface {
	FindByHost(host string) (*model.CookieEntity, error)
	FindAll() ([]*model.CookieEntity, error)
	Save(cookie *model.CookieEntity) error
	Update(cookie *model.CookieEntity) error
	DeleteByHost(host string) error
	ClearCookieValue(host, remark string) error
}

type cookieRepository struct {
	db *gorm.DB
}

func NewCookieRepository(db *gorm.DB) CookieRepository {
	return &cookieRepository{db: db}
}

// FindByHost 获取站点最新的一条Cookie，不存在时返回 nil, nil
func (r *cookieRepository) FindByHost(host string) (*model.CookieEntity, error) {
	var cookie model.CookieEntity
	result := r.db.Where("host = ?", host).
		Order("updated_at DESC").
		First(&cookie)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &cookie, nil
}

func (r *cookieRepository) FindAll() ([]*model.CookieEntity, error) {
	var cookies []*model.CookieEntity
	if err := r.db.Order("host").Find(&cookies).Error; err != nil {
		return nil, err
	}
	return cookies, nil
}

func (r *cookieRepository) Save(cookie *model.CookieEntity) error {
	if err := r.db.Create(cookie).Error; err != nil {
		return err
	}
	log.WithField("host", cookie.Host).Debug("创建Cookie成功")
	return nil
}

func (r *cookieRepository) Update(cookie *model.CookieEntity) error {
	if err := r.db.Save(cookie).Error; err != nil {
		return err
	}
	log.WithField("host", cookie.Host).Debug("更新Cookie成功")
	return nil
}

func (r *cookieRepository) DeleteByHost(host string) error {
	result := r.db.Where("host = ?", host).Delete(&model.CookieEntity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.WithField("host", host).Info("删除Cookie成功")
	}
	return nil
}

// ClearCookieValue 清空站点的Cookie值，保留记录和备注
func (r *cookieRepository) ClearCookieValue(host, remark string) error {
	result := r.db.Model(&model.CookieEntity{}).
		Where("host = ?", host).
		Updates(map[string]interface{}{
			"cookie_value": "",
			"remark":       remark,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.WithField("host", host).Info("清空Cookie值成功")
	}
	return nil
}
