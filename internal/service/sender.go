package service

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/storage"
)

var ErrSenderRequired = errors.New("sender id is required")

// SenderService 封装发件人通讯录与规则操作。
type SenderService struct {
	senders storage.SenderRepository
	rules   storage.RuleRepository
}

// NewSenderService 创建发件人业务服务。
func NewSenderService(senders storage.SenderRepository, rules storage.RuleRepository) *SenderService {
	return &SenderService{
		senders: senders,
		rules:   rules,
	}
}

// ListContacts 列出用户的发件人通讯录。
// 自动回复地址（no-reply 等）不进入通讯录。
func (s *SenderService) ListContacts(userID string) ([]domain.Sender, error) {
	senders, err := s.senders.ListSendersByUserID(userID)
	if err != nil {
		return nil, err
	}

	contacts := make([]domain.Sender, 0, len(senders))
	for _, sender := range senders {
		if domain.IsNoReplyAddress(sender.Email) {
			continue
		}
		contacts = append(contacts, sender)
	}
	return contacts, nil
}

// UpsertRuleInput 创建或更新发件人规则的输入。
type UpsertRuleInput struct {
	UserID     string
	SenderID   string
	Block      bool
	CategoryID *string
}

// UpsertRule 创建或更新针对某发件人的规则，每个发件人至多一条
func (s *SenderService) UpsertRule(input UpsertRuleInput) (*domain.Rule, error) {
	if input.SenderID == "" {
		return nil, ErrSenderRequired
	}
	if _, err := s.senders.GetSender(input.SenderID); err != nil {
		return nil, err
	}

	rule, err := s.rules.GetRuleBySender(input.UserID, input.SenderID)
	if err != nil {
		if !errors.Is(err, storage.ErrRuleNotFound) {
			return nil, err
		}
		rule = &domain.Rule{
			ID:        uuid.New().String(),
			UserID:    input.UserID,
			SenderID:  input.SenderID,
			CreatedAt: time.Now().UTC(),
		}
	}

	rule.Block = input.Block
	rule.CategoryID = input.CategoryID
	if err := s.rules.SaveRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// ListRules 列出用户的全部规则
func (s *SenderService) ListRules(userID string) ([]domain.Rule, error) {
	return s.rules.ListRules(userID)
}

// DeleteRule 删除规则
func (s *SenderService) DeleteRule(userID, ruleID string) error {
	return s.rules.DeleteRule(userID, ruleID)
}
