package service

import (
	"aomail/backend/internal/domain"
	"aomail/backend/internal/storage"
)

// StatisticsService 封装用户统计读取。
type StatisticsService struct {
	repo storage.StatisticsRepository
}

// NewStatisticsService 创建统计业务服务。
func NewStatisticsService(repo storage.StatisticsRepository) *StatisticsService {
	return &StatisticsService{repo: repo}
}

// Get 获取用户统计，无记录时返回零值
func (s *StatisticsService) Get(userID string) (*domain.Statistics, error) {
	return s.repo.GetStatistics(userID)
}
