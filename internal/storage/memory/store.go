// Package memory 提供内存存储实现，主要用于开发验证与测试。
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/storage"
)

// Store 使用内存保存全部数据。
type Store struct {
	mu               sync.RWMutex
	emails           map[string]*domain.Email       // emailID -> email
	byProviderID     map[string]string              // providerID -> emailID
	senders          map[string]*domain.Sender      // senderID -> sender
	bySenderEmail    map[string]string              // 发件人地址 -> senderID
	categories       map[string]*domain.Category    // categoryID -> category
	rules            map[string]*domain.Rule        // ruleID -> rule
	accounts         map[string]*domain.MailAccount // accountID -> account
	byAccountEmail   map[string]string              // 账户地址 -> accountID
	bySubscriptionID map[string]string              // 订阅标识 -> accountID
	statistics       map[string]*domain.Statistics  // userID -> statistics
	users            map[string]*domain.User        // userID -> user
	byUserEmail      map[string]string              // 用户邮箱 -> userID
}

// NewStore 创建内存存储
func NewStore() *Store {
	return &Store{
		emails:           make(map[string]*domain.Email),
		byProviderID:     make(map[string]string),
		senders:          make(map[string]*domain.Sender),
		bySenderEmail:    make(map[string]string),
		categories:       make(map[string]*domain.Category),
		rules:            make(map[string]*domain.Rule),
		accounts:         make(map[string]*domain.MailAccount),
		byAccountEmail:   make(map[string]string),
		bySubscriptionID: make(map[string]string),
		statistics:       make(map[string]*domain.Statistics),
		users:            make(map[string]*domain.User),
		byUserEmail:      make(map[string]string),
	}
}

// Close 关闭存储（内存实现为空操作）
func (s *Store) Close() error {
	return nil
}

// Health 健康检查（内存实现恒为健康）
func (s *Store) Health() error {
	return nil
}

// ========== Email Repository ==========

// CreateEmail 写入邮件，provider_id 冲突返回 storage.ErrEmailExists
func (s *Store) CreateEmail(email *domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byProviderID[email.ProviderID]; exists {
		return storage.ErrEmailExists
	}

	clone := *email
	s.emails[email.ID] = &clone
	s.byProviderID[email.ProviderID] = email.ID
	return nil
}

// EmailExistsByProviderID 检查服务商消息是否已入库
func (s *Store) EmailExistsByProviderID(providerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.byProviderID[providerID]
	return exists, nil
}

// GetEmail 获取指定用户的一封邮件
func (s *Store) GetEmail(userID, emailID string) (*domain.Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.emails[emailID]
	if !ok || email.UserID != userID {
		return nil, storage.ErrEmailNotFound
	}

	clone := *email
	if email.SenderID != "" {
		if sender, ok := s.senders[email.SenderID]; ok {
			senderClone := *sender
			clone.Sender = &senderClone
		}
	}
	return &clone, nil
}

// ListEmails 按条件分页查询邮件列表
func (s *Store) ListEmails(criteria domain.EmailSearchCriteria) (*domain.EmailSearchResult, error) {
	if criteria.Page <= 0 {
		criteria.Page = 1
	}
	if criteria.PageSize <= 0 {
		criteria.PageSize = 20
	}
	if criteria.PageSize > 100 {
		criteria.PageSize = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Email
	for _, email := range s.emails {
		if !s.matches(email, criteria) {
			continue
		}
		matched = append(matched, *email)
	}

	// 按发送时间倒序
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SentDate.After(matched[j].SentDate)
	})

	total := len(matched)
	start := (criteria.Page - 1) * criteria.PageSize
	if start > total {
		start = total
	}
	end := start + criteria.PageSize
	if end > total {
		end = total
	}

	return &domain.EmailSearchResult{
		Emails:   matched[start:end],
		Total:    total,
		Page:     criteria.Page,
		PageSize: criteria.PageSize,
	}, nil
}

// matches 判断邮件是否满足查询条件
func (s *Store) matches(email *domain.Email, criteria domain.EmailSearchCriteria) bool {
	if email.UserID != criteria.UserID {
		return false
	}
	if criteria.CategoryID != "" && email.CategoryID != criteria.CategoryID {
		return false
	}
	if criteria.Priority != "" && email.Priority != criteria.Priority {
		return false
	}
	if criteria.Read != nil && email.Read != *criteria.Read {
		return false
	}
	if criteria.Archived != nil && email.Archived != *criteria.Archived {
		return false
	}
	if criteria.Query != "" {
		q := strings.ToLower(criteria.Query)
		if !strings.Contains(strings.ToLower(email.Subject), q) &&
			!strings.Contains(strings.ToLower(email.OneLineSummary), q) &&
			!strings.Contains(strings.ToLower(email.ShortSummary), q) {
			return false
		}
	}
	return true
}

// MarkEmailRead 更新已读状态
func (s *Store) MarkEmailRead(userID, emailID string, read bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.emails[emailID]
	if !ok || email.UserID != userID {
		return storage.ErrEmailNotFound
	}

	email.Read = read
	if read {
		now := time.Now().UTC()
		email.ReadDate = &now
	} else {
		email.ReadDate = nil
	}
	return nil
}

// SetAnswerLater 更新稍后回复标记
func (s *Store) SetAnswerLater(userID, emailID string, answerLater bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.emails[emailID]
	if !ok || email.UserID != userID {
		return storage.ErrEmailNotFound
	}
	email.AnswerLater = answerLater
	return nil
}

// ArchiveEmail 更新归档状态
func (s *Store) ArchiveEmail(userID, emailID string, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.emails[emailID]
	if !ok || email.UserID != userID {
		return storage.ErrEmailNotFound
	}
	email.Archived = archived
	return nil
}

// DeleteEmail 删除指定邮件
func (s *Store) DeleteEmail(userID, emailID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.emails[emailID]
	if !ok || email.UserID != userID {
		return storage.ErrEmailNotFound
	}

	delete(s.byProviderID, email.ProviderID)
	delete(s.emails, emailID)
	return nil
}

// DeleteReadEmailsBefore 删除在指定时刻之前已读的邮件，返回删除数量
func (s *Store) DeleteReadEmailsBefore(before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, email := range s.emails {
		if email.Read && email.ReadDate != nil && email.ReadDate.Before(before) {
			delete(s.byProviderID, email.ProviderID)
			delete(s.emails, id)
			count++
		}
	}
	return count, nil
}
