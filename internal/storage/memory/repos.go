package memory

import (
	"sort"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/storage"
)

// ========== Sender Repository ==========

// SaveSender 保存发件人信息
func (s *Store) SaveSender(sender *domain.Sender) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *sender
	s.senders[sender.ID] = &clone
	s.bySenderEmail[sender.Email] = sender.ID
	return nil
}

// GetSender 根据 ID 获取发件人
func (s *Store) GetSender(id string) (*domain.Sender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sender, ok := s.senders[id]
	if !ok {
		return nil, storage.ErrSenderNotFound
	}
	clone := *sender
	return &clone, nil
}

// GetSenderByEmail 根据邮箱地址获取发件人
func (s *Store) GetSenderByEmail(email string) (*domain.Sender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySenderEmail[email]
	if !ok {
		return nil, storage.ErrSenderNotFound
	}
	clone := *s.senders[id]
	return &clone, nil
}

// ListSendersByUserID 返回在该用户邮件中出现过的全部发件人
func (s *Store) ListSendersByUserID(userID string) ([]domain.Sender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var senders []domain.Sender
	for _, email := range s.emails {
		if email.UserID != userID || email.SenderID == "" || seen[email.SenderID] {
			continue
		}
		seen[email.SenderID] = true
		if sender, ok := s.senders[email.SenderID]; ok {
			senders = append(senders, *sender)
		}
	}

	sort.Slice(senders, func(i, j int) bool {
		return senders[i].Email < senders[j].Email
	})
	return senders, nil
}

// ========== Category Repository ==========

// CreateCategory 创建类别，同名冲突返回 storage.ErrCategoryExists
func (s *Store) CreateCategory(category *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if existing.UserID == category.UserID && existing.Name == category.Name {
			return storage.ErrCategoryExists
		}
	}

	clone := *category
	s.categories[category.ID] = &clone
	return nil
}

// GetCategory 获取指定用户的类别
func (s *Store) GetCategory(userID, categoryID string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.categories[categoryID]
	if !ok || category.UserID != userID {
		return nil, storage.ErrCategoryNotFound
	}
	clone := *category
	return &clone, nil
}

// GetCategoryByName 按名称获取指定用户的类别
func (s *Store) GetCategoryByName(userID, name string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, category := range s.categories {
		if category.UserID == userID && category.Name == name {
			clone := *category
			return &clone, nil
		}
	}
	return nil, storage.ErrCategoryNotFound
}

// ListCategories 列出指定用户的全部类别
func (s *Store) ListCategories(userID string) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var categories []domain.Category
	for _, category := range s.categories {
		if category.UserID == userID {
			categories = append(categories, *category)
		}
	}

	sort.Slice(categories, func(i, j int) bool {
		return categories[i].CreatedAt.Before(categories[j].CreatedAt)
	})
	return categories, nil
}

// UpdateCategory 更新类别
func (s *Store) UpdateCategory(category *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[category.ID]
	if !ok || existing.UserID != category.UserID {
		return storage.ErrCategoryNotFound
	}
	existing.Name = category.Name
	existing.Description = category.Description
	return nil
}

// DeleteCategory 删除类别
func (s *Store) DeleteCategory(userID, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[categoryID]
	if !ok || category.UserID != userID {
		return storage.ErrCategoryNotFound
	}
	delete(s.categories, categoryID)
	return nil
}

// ========== Rule Repository ==========

// SaveRule 保存发件人规则
func (s *Store) SaveRule(rule *domain.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *rule
	s.rules[rule.ID] = &clone
	return nil
}

// GetRule 获取指定用户的规则
func (s *Store) GetRule(userID, ruleID string) (*domain.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[ruleID]
	if !ok || rule.UserID != userID {
		return nil, storage.ErrRuleNotFound
	}
	clone := *rule
	return &clone, nil
}

// GetRuleBySender 获取指定用户针对某发件人的规则
func (s *Store) GetRuleBySender(userID, senderID string) (*domain.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rule := range s.rules {
		if rule.UserID == userID && rule.SenderID == senderID {
			clone := *rule
			return &clone, nil
		}
	}
	return nil, storage.ErrRuleNotFound
}

// ListRules 列出指定用户的全部规则
func (s *Store) ListRules(userID string) ([]domain.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rules []domain.Rule
	for _, rule := range s.rules {
		if rule.UserID == userID {
			rules = append(rules, *rule)
		}
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].CreatedAt.After(rules[j].CreatedAt)
	})
	return rules, nil
}

// DeleteRule 删除规则
func (s *Store) DeleteRule(userID, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[ruleID]
	if !ok || rule.UserID != userID {
		return storage.ErrRuleNotFound
	}
	delete(s.rules, ruleID)
	return nil
}

// ========== Account Repository ==========

// SaveAccount 保存邮箱授权记录
func (s *Store) SaveAccount(account *domain.MailAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *account
	s.accounts[account.ID] = &clone
	s.byAccountEmail[account.Email] = account.ID
	if account.SubscriptionID != "" {
		s.bySubscriptionID[account.SubscriptionID] = account.ID
	}
	return nil
}

// GetAccount 根据 ID 获取邮箱授权记录
func (s *Store) GetAccount(id string) (*domain.MailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	clone := *account
	return &clone, nil
}

// GetAccountByEmail 根据邮箱地址获取授权记录
func (s *Store) GetAccountByEmail(email string) (*domain.MailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAccountEmail[email]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	clone := *s.accounts[id]
	return &clone, nil
}

// GetAccountBySubscriptionID 根据订阅标识获取授权记录
func (s *Store) GetAccountBySubscriptionID(subscriptionID string) (*domain.MailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySubscriptionID[subscriptionID]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	clone := *s.accounts[id]
	return &clone, nil
}

// ListAccountsByUserID 列出指定用户的全部邮箱授权记录
func (s *Store) ListAccountsByUserID(userID string) ([]domain.MailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var accounts []domain.MailAccount
	for _, account := range s.accounts {
		if account.UserID == userID {
			accounts = append(accounts, *account)
		}
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

// DeleteAccount 删除邮箱授权记录
func (s *Store) DeleteAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return storage.ErrAccountNotFound
	}
	delete(s.byAccountEmail, account.Email)
	delete(s.bySubscriptionID, account.SubscriptionID)
	delete(s.accounts, id)
	return nil
}

// ========== Statistics Repository ==========

// GetStatistics 获取用户统计，不存在时返回零值记录
func (s *Store) GetStatistics(userID string) (*domain.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.statistics[userID]
	if !ok {
		return &domain.Statistics{UserID: userID}, nil
	}
	clone := *stats
	return &clone, nil
}

// ApplyStatisticsDelta 按增量累加统计计数，记录不存在时创建
func (s *Store) ApplyStatisticsDelta(userID string, delta *domain.Statistics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.statistics[userID]
	if !ok {
		clone := *delta
		clone.UserID = userID
		s.statistics[userID] = &clone
		return nil
	}

	stats.EmailsReceived += delta.EmailsReceived
	stats.EmailsImportant += delta.EmailsImportant
	stats.EmailsInformative += delta.EmailsInformative
	stats.EmailsUseless += delta.EmailsUseless
	stats.AnswerRequired += delta.AnswerRequired
	stats.MightRequireAnswer += delta.MightRequireAnswer
	stats.NoAnswerRequired += delta.NoAnswerRequired
	stats.HighlyRelevant += delta.HighlyRelevant
	stats.PossiblyRelevant += delta.PossiblyRelevant
	stats.NotRelevant += delta.NotRelevant
	stats.Spam += delta.Spam
	stats.Scam += delta.Scam
	stats.Newsletter += delta.Newsletter
	stats.Notification += delta.Notification
	stats.Meeting += delta.Meeting
	return nil
}

// ========== User Repository ==========

// CreateUser 创建用户
func (s *Store) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *user
	s.users[user.ID] = &clone
	s.byUserEmail[user.Email] = user.ID
	return nil
}

// GetUserByID 根据 ID 获取用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

// GetUserByEmail 根据邮箱获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUserEmail[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	clone := *s.users[id]
	return &clone, nil
}

// UpdateUser 更新用户
func (s *Store) UpdateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return storage.ErrUserNotFound
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}
