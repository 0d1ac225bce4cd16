package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"auto_resume_go/model"
	"auto_resume_go/repository"
)

// ResumeService 读取简历数据文件，记录刷新保存结果
type ResumeService struct {
	savedRepo repository.SavedResumeRepository
}

func NewResumeService(savedRepo repository.SavedResumeRepository) *ResumeService {
	return &ResumeService{savedRepo: savedRepo}
}

// LoadResume 按扩展名解析 YAML 或 JSON 简历数据
func (s *ResumeService) LoadResume(path string) (*model.Resume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取简历数据失败: %w", err)
	}
	return ParseResume(data, filepath.Ext(path))
}

// ParseResume ext 为 .json 时按 JSON 解析，其余按 YAML
func ParseResume(data []byte, ext string) (*model.Resume, error) {
	var resume model.Resume
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&resume); err != nil {
			return nil, fmt.Errorf("解析简历JSON失败: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&resume); err != nil {
			return nil, fmt.Errorf("解析简历YAML失败: %w", err)
		}
	}
	if err := validateResume(&resume); err != nil {
		return nil, err
	}
	return &resume, nil
}

func validateResume(r *model.Resume) error {
	check := func(name string, sec model.Section) error {
		if len(sec.TitleLabels) == 0 {
			return fmt.Errorf("%s缺少 titleLabels", name)
		}
		for i, f := range sec.Fields {
			if len(f.Labels) == 0 {
				return fmt.Errorf("%s第 %d 个字段缺少 labelTexts", name, i+1)
			}
			if len(f.Values) == 0 {
				return fmt.Errorf("%s字段 %q 缺少 value", name, f.Labels[0])
			}
		}
		return nil
	}
	if r.PersonalInfo != nil {
		if err := check("个人信息", *r.PersonalInfo); err != nil {
			return err
		}
	}
	for i, sec := range r.ProjectExperiences {
		if err := check(fmt.Sprintf("项目经历[%d]", i), sec); err != nil {
			return err
		}
	}
	for i, sec := range r.InternshipExperiences {
		if err := check(fmt.Sprintf("实习经历[%d]", i), sec); err != nil {
			return err
		}
	}
	return nil
}

// RecordSaved 保存一次成功的简历刷新
func (s *ResumeService) RecordSaved(sourceURL, savedURL string) error {
	rec := &model.SavedResumeEntity{SourceURL: sourceURL, SavedURL: savedURL, CreatedAt: time.Now()}
	if err := s.savedRepo.Create(rec); err != nil {
		return fmt.Errorf("保存简历记录失败: %w", err)
	}
	log.WithFields(log.Fields{"source": sourceURL, "saved": savedURL}).Info("[统计] 简历已保存")
	return nil
}

// SavedToday 今天保存成功的记录
func (s *ResumeService) SavedToday() ([]*model.SavedResumeEntity, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.savedRepo.FindSince(start)
}

// LogStatistics 打印今天的保存统计
func (s *ResumeService) LogStatistics() {
	recs, err := s.SavedToday()
	if err != nil {
		log.WithError(err).Error("[统计] 读取保存记录失败")
		return
	}
	log.Infof("[统计] 今日成功保存 %d 份简历", len(recs))
	for i, r := range recs {
		log.Infof("  %d. [%s] %s", i+1, r.CreatedAt.Format("2006-01-02 15:04:05"), r.SavedURL)
	}
}
