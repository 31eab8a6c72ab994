package postgres

import (
	"errors"

	"gorm.io/gorm"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/storage"
)

// ========== Sender Repository ==========

// SaveSender 保存发件人信息
func (s *Store) SaveSender(sender *domain.Sender) error {
	return s.db.Save(sender).Error
}

// GetSender 根据 ID 获取发件人
func (s *Store) GetSender(id string) (*domain.Sender, error) {
	var sender domain.Sender
	if err := s.db.Where("id = ?", id).First(&sender).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrSenderNotFound
		}
		return nil, err
	}
	return &sender, nil
}

// GetSenderByEmail 根据邮箱地址获取发件人
func (s *Store) GetSenderByEmail(email string) (*domain.Sender, error) {
	var sender domain.Sender
	if err := s.db.Where("email = ?", email).First(&sender).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrSenderNotFound
		}
		return nil, err
	}
	return &sender, nil
}

// ListSendersByUserID 返回在该用户邮件中出现过的全部发件人
func (s *Store) ListSendersByUserID(userID string) ([]domain.Sender, error) {
	var senders []domain.Sender
	err := s.db.
		Distinct("senders.*").
		Joins("JOIN emails ON emails.sender_id = senders.id").
		Where("emails.user_id = ?", userID).
		Order("senders.email ASC").
		Find(&senders).Error
	if err != nil {
		return nil, err
	}
	return senders, nil
}

// ========== Category Repository ==========

// CreateCategory 创建类别，同名冲突返回 storage.ErrCategoryExists
func (s *Store) CreateCategory(category *domain.Category) error {
	var count int64
	if err := s.db.Model(&domain.Category{}).
		Where("user_id = ? AND name = ?", category.UserID, category.Name).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return storage.ErrCategoryExists
	}
	return s.db.Create(category).Error
}

// GetCategory 获取指定用户的类别
func (s *Store) GetCategory(userID, categoryID string) (*domain.Category, error) {
	var category domain.Category
	err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// GetCategoryByName 按名称获取指定用户的类别
func (s *Store) GetCategoryByName(userID, name string) (*domain.Category, error) {
	var category domain.Category
	err := s.db.Where("user_id = ? AND name = ?", userID, name).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// ListCategories 列出指定用户的全部类别
func (s *Store) ListCategories(userID string) ([]domain.Category, error) {
	var categories []domain.Category
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// UpdateCategory 更新类别
func (s *Store) UpdateCategory(category *domain.Category) error {
	result := s.db.Model(&domain.Category{}).
		Where("id = ? AND user_id = ?", category.ID, category.UserID).
		Updates(map[string]interface{}{
			"name":        category.Name,
			"description": category.Description,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory 删除类别，其下邮件退回默认类别由服务层处理
func (s *Store) DeleteCategory(userID, categoryID string) error {
	result := s.db.Where("id = ? AND user_id = ?", categoryID, userID).Delete(&domain.Category{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrCategoryNotFound
	}
	return nil
}

// ========== Rule Repository ==========

// SaveRule 保存发件人规则
func (s *Store) SaveRule(rule *domain.Rule) error {
	return s.db.Save(rule).Error
}

// GetRule 获取指定用户的规则
func (s *Store) GetRule(userID, ruleID string) (*domain.Rule, error) {
	var rule domain.Rule
	err := s.db.Where("id = ? AND user_id = ?", ruleID, userID).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// GetRuleBySender 获取指定用户针对某发件人的规则
func (s *Store) GetRuleBySender(userID, senderID string) (*domain.Rule, error) {
	var rule domain.Rule
	err := s.db.Where("user_id = ? AND sender_id = ?", userID, senderID).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// ListRules 列出指定用户的全部规则
func (s *Store) ListRules(userID string) ([]domain.Rule, error) {
	var rules []domain.Rule
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// DeleteRule 删除规则
func (s *Store) DeleteRule(userID, ruleID string) error {
	result := s.db.Where("id = ? AND user_id = ?", ruleID, userID).Delete(&domain.Rule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrRuleNotFound
	}
	return nil
}

// ========== Account Repository ==========

// SaveAccount 保存邮箱授权记录
func (s *Store) SaveAccount(account *domain.MailAccount) error {
	return s.db.Save(account).Error
}

// GetAccount 根据 ID 获取邮箱授权记录
func (s *Store) GetAccount(id string) (*domain.MailAccount, error) {
	var account domain.MailAccount
	if err := s.db.Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByEmail 根据邮箱地址获取授权记录
func (s *Store) GetAccountByEmail(email string) (*domain.MailAccount, error) {
	var account domain.MailAccount
	if err := s.db.Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountBySubscriptionID 根据订阅标识获取授权记录（Graph 通知路由用）
func (s *Store) GetAccountBySubscriptionID(subscriptionID string) (*domain.MailAccount, error) {
	var account domain.MailAccount
	if err := s.db.Where("subscription_id = ?", subscriptionID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListAccountsByUserID 列出指定用户的全部邮箱授权记录
func (s *Store) ListAccountsByUserID(userID string) ([]domain.MailAccount, error) {
	var accounts []domain.MailAccount
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// DeleteAccount 删除邮箱授权记录
func (s *Store) DeleteAccount(id string) error {
	result := s.db.Where("id = ?", id).Delete(&domain.MailAccount{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

// ========== Statistics Repository ==========

// GetStatistics 获取用户统计，不存在时返回零值记录
func (s *Store) GetStatistics(userID string) (*domain.Statistics, error) {
	var stats domain.Statistics
	err := s.db.Where("user_id = ?", userID).First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domain.Statistics{UserID: userID}, nil
		}
		return nil, err
	}
	return &stats, nil
}

// ApplyStatisticsDelta 按增量累加统计计数，记录不存在时创建
func (s *Store) ApplyStatisticsDelta(userID string, delta *domain.Statistics) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var stats domain.Statistics
		err := tx.Where("user_id = ?", userID).First(&stats).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created := *delta
			created.ID = delta.ID
			created.UserID = userID
			return tx.Create(&created).Error
		}
		if err != nil {
			return err
		}

		return tx.Model(&stats).Updates(map[string]interface{}{
			"emails_received":      gorm.Expr("emails_received + ?", delta.EmailsReceived),
			"emails_important":     gorm.Expr("emails_important + ?", delta.EmailsImportant),
			"emails_informative":   gorm.Expr("emails_informative + ?", delta.EmailsInformative),
			"emails_useless":       gorm.Expr("emails_useless + ?", delta.EmailsUseless),
			"answer_required":      gorm.Expr("answer_required + ?", delta.AnswerRequired),
			"might_require_answer": gorm.Expr("might_require_answer + ?", delta.MightRequireAnswer),
			"no_answer_required":   gorm.Expr("no_answer_required + ?", delta.NoAnswerRequired),
			"highly_relevant":      gorm.Expr("highly_relevant + ?", delta.HighlyRelevant),
			"possibly_relevant":    gorm.Expr("possibly_relevant + ?", delta.PossiblyRelevant),
			"not_relevant":         gorm.Expr("not_relevant + ?", delta.NotRelevant),
			"spam":                 gorm.Expr("spam + ?", delta.Spam),
			"scam":                 gorm.Expr("scam + ?", delta.Scam),
			"newsletter":           gorm.Expr("newsletter + ?", delta.Newsletter),
			"notification":         gorm.Expr("notification + ?", delta.Notification),
			"meeting":              gorm.Expr("meeting + ?", delta.Meeting),
		}).Error
	})
}

// ========== User Repository ==========

// CreateUser 创建用户
func (s *Store) CreateUser(user *domain.User) error {
	return s.db.Create(user).Error
}

// GetUserByID 根据 ID 获取用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail 根据邮箱获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	var user domain.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser 更新用户
func (s *Store) UpdateUser(user *domain.User) error {
	return s.db.Save(user).Error
}
