package service

import (
	"sync"

	"auto_resume_go/model"
	"auto_resume_go/repository"
)

// AppliedJobService 记录已处理的职位，内存集合与数据库同步
type AppliedJobService struct {
	repo repository.AppliedJobRepository

	mu   sync.RWMutex
	seen map[string]bool
}

func NewAppliedJobService(repo repository.AppliedJobRepository) *AppliedJobService {
	return &AppliedJobService{repo: repo, seen: make(map[string]bool)}
}

// Load 从数据库恢复已处理职位
func (s *AppliedJobService) Load() (int, error) {
	ids, err := s.repo.FindAllIDs()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.seen[id] = true
	}
	return len(ids), nil
}

func (s *AppliedJobService) IsProcessed(jobID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen[jobID]
}

// MarkProcessed 标记职位已处理；临时ID只记在内存中
func (s *AppliedJobService) MarkProcessed(jobID, status, jobName, company string, persist bool) error {
	s.mu.Lock()
	s.seen[jobID] = true
	s.mu.Unlock()
	if !persist {
		return nil
	}
	return s.repo.Upsert(&model.AppliedJobEntity{JobID: jobID, Status: status, JobName: jobName, Company: company})
}

// Reset 清空内存集合，数据库记录保留
func (s *AppliedJobService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]bool)
}

func (s *AppliedJobService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
