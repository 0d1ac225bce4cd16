package service

import (
	"encoding/json"
	"fmt"
	"time"

	"auto_resume_go/model"
	"auto_resume_go/repository"
)

// CookieService 按站点保存和恢复浏览器Cookie
type CookieService struct {
	cookieRepo repository.CookieRepository
}

func NewCookieService(cookieRepo repository.CookieRepository) *CookieService {
	return &CookieService{
		cookieRepo: cookieRepo,
	}
}

// LoadCookies 读取站点保存的Cookie，没有记录时返回空列表
func (s *CookieService) LoadCookies(host string) ([]model.BrowserCookie, error) {
	entity, err := s.cookieRepo.FindByHost(host)
	if err != nil {
		return nil, err
	}
	if entity == nil || entity.CookieValue == "" {
		return nil, nil
	}
	var cookies []model.BrowserCookie
	if err := json.Unmarshal([]byte(entity.CookieValue), &cookies); err != nil {
		return nil, fmt.Errorf("解析Cookie失败(host=%s): %w", host, err)
	}
	return cookies, nil
}

// SaveCookies 保存或更新站点的Cookie
func (s *CookieService) SaveCookies(host string, cookies []model.BrowserCookie, remark string) error {
	raw, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("序列化Cookie失败: %w", err)
	}
	existing, err := s.cookieRepo.FindByHost(host)
	if err != nil {
		return err
	}

	now := time.Now()
	if existing != nil {
		existing.CookieValue = string(raw)
		existing.Remark = remark
		existing.UpdatedAt = now
		return s.cookieRepo.Update(existing)
	}
	return s.cookieRepo.Save(&model.CookieEntity{
		Host:        host,
		CookieValue: string(raw),
		Remark:      remark,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// ClearCookies 清空站点的Cookie值
func (s *CookieService) ClearCookies(host, remark string) error {
	return s.cookieRepo.ClearCookieValue(host, remark)
}

// DeleteCookies 删除站点的Cookie
func (s *CookieService) DeleteCookies(host string) error {
	return s.cookieRepo.DeleteByHost(host)
}

// Hosts 已保存Cookie的站点
func (s *CookieService) Hosts() ([]string, error) {
	all, err := s.cookieRepo.FindAll()
	if err != nil {
		return nil, err
	}
	hosts := make([]string, 0, len(all))
	for _, c := range all {
		hosts = append(hosts, c.Host)
	}
	return hosts, nil
}
