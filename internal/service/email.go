package service

import (
	"time"

	"go.uber.org/zap"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/storage"
)

// retentionWindow 已读邮件的保留窗口
const retentionWindow = 7 * 24 * time.Hour

// EmailService 封装邮件读取与状态变更操作。
type EmailService struct {
	repo   storage.EmailRepository
	logger *zap.Logger
}

// NewEmailService 创建邮件业务服务。
func NewEmailService(repo storage.EmailRepository, logger *zap.Logger) *EmailService {
	return &EmailService{
		repo:   repo,
		logger: logger,
	}
}

// Get 获取一封邮件详情
func (s *EmailService) Get(userID, emailID string) (*domain.Email, error) {
	return s.repo.GetEmail(userID, emailID)
}

// List 按条件分页查询邮件
func (s *EmailService) List(criteria domain.EmailSearchCriteria) (*domain.EmailSearchResult, error) {
	return s.repo.ListEmails(criteria)
}

// MarkRead 标记已读或未读
func (s *EmailService) MarkRead(userID, emailID string, read bool) error {
	return s.repo.MarkEmailRead(userID, emailID, read)
}

// SetAnswerLater 标记或取消稍后回复
func (s *EmailService) SetAnswerLater(userID, emailID string, answerLater bool) error {
	return s.repo.SetAnswerLater(userID, emailID, answerLater)
}

// Archive 归档或取消归档
func (s *EmailService) Archive(userID, emailID string, archived bool) error {
	return s.repo.ArchiveEmail(userID, emailID, archived)
}

// Delete 删除邮件
func (s *EmailService) Delete(userID, emailID string) error {
	return s.repo.DeleteEmail(userID, emailID)
}

// SweepReadEmails 删除已读超过保留窗口的邮件，返回删除数量。
// 由后台定时器周期调用。
func (s *EmailService) SweepReadEmails() (int, error) {
	cutoff := time.Now().UTC().Add(-retentionWindow)
	count, err := s.repo.DeleteReadEmailsBefore(cutoff)
	if err != nil {
		s.logger.Error("retention sweep failed", zap.Error(err))
		return 0, err
	}
	if count > 0 {
		s.logger.Info("retention sweep completed",
			zap.Int("deleted", count),
			zap.Time("cutoff", cutoff))
	}
	return count, nil
}
