package model

import (
	"time"
)

// CookieEntity 浏览器 Cookie，按站点域名保存，值为 BrowserCookie 列表的 JSON
type CookieEntity struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Host        string    `gorm:"column:host;size:255;index"` // 站点域名，例如 www.zhipin.com
	CookieValue string    `gorm:"column:cookie_value;type:text"`
	Remark      string    `gorm:"column:remark"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (CookieEntity) TableName() string {
	return "cookie"
}

// BrowserCookie 与具体浏览器驱动无关的 Cookie
type BrowserCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}
