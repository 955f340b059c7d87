package service

import (
	"encoding/json"
	"fmt"
	"time"

	"job_applier_go/model"
	"job_applier_go/repository"
)

// Cookie 浏览器 Cookie 的持久化形式，playwright 与 chromedp 共用
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HttpOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

var supportedPlatforms = []string{string(model.PlatformBoss), string(model.PlatformZhilian)}

// CookieService 平台登录态
type CookieService struct {
	cookieRepo repository.CookieRepository
}

func NewCookieService(cookieRepo repository.CookieRepository) *CookieService {
	return &CookieService{cookieRepo: cookieRepo}
}

// ValidatePlatform 平台名是否受支持
func (s *CookieService) ValidatePlatform(platform string) bool {
	for _, p := range supportedPlatforms {
		if p == platform {
			return true
		}
	}
	return false
}

// SaveOrUpdateCookie 保存平台 Cookie 原始值
func (s *CookieService) SaveOrUpdateCookie(platform, cookieValue, remark string) error {
	if !s.ValidatePlatform(platform) {
		return fmt.Errorf("不支持的平台: %s", platform)
	}
	existing, err := s.cookieRepo.FindByPlatform(platform)
	if err != nil {
		return err
	}
	now := time.Now()
	if existing == nil {
		existing = &model.CookieEntity{Platform: platform, CreatedAt: now}
	}
	existing.CookieValue = cookieValue
	existing.Remark = remark
	existing.UpdatedAt = now
	return s.cookieRepo.Save(existing)
}

// SaveCookies 序列化后保存
func (s *CookieService) SaveCookies(platform string, cookies []Cookie, remark string) error {
	data, err := json.Marshal(cookies)
	if err != nil {
		return err
	}
	return s.SaveOrUpdateCookie(platform, string(data), remark)
}

// LoadCookies 读取并反序列化，无记录时返回空
func (s *CookieService) LoadCookies(platform string) ([]Cookie, error) {
	value, err := s.GetCookieValueByPlatform(platform)
	if err != nil || value == "" {
		return nil, err
	}
	var cookies []Cookie
	if err := json.Unmarshal([]byte(value), &cookies); err != nil {
		return nil, fmt.Errorf("解析 %s Cookie 失败: %w", platform, err)
	}
	return cookies, nil
}

// GetCookieValueByPlatform 原始值
func (s *CookieService) GetCookieValueByPlatform(platform string) (string, error) {
	cookie, err := s.cookieRepo.FindByPlatform(platform)
	if err != nil || cookie == nil {
		return "", err
	}
	return cookie.CookieValue, nil
}

// ClearCookieByPlatform 退出登录时清空
func (s *CookieService) ClearCookieByPlatform(platform, remark string) error {
	return s.cookieRepo.ClearCookieValue(platform, remark)
}
