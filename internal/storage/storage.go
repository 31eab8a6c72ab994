package storage

import (
	"errors"
	"time"

	"aomail/backend/internal/domain"
)

var (
	// ErrEmailExists 同一服务商消息已入库（幂等冲突）
	ErrEmailExists = errors.New("email already exists")
	// ErrEmailNotFound 邮件未找到错误
	ErrEmailNotFound = errors.New("email not found")
	// ErrSenderNotFound 发件人未找到错误
	ErrSenderNotFound = errors.New("sender not found")
	// ErrCategoryNotFound 类别未找到错误
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryExists 同名类别已存在错误
	ErrCategoryExists = errors.New("category already exists")
	// ErrRuleNotFound 规则未找到错误
	ErrRuleNotFound = errors.New("rule not found")
	// ErrAccountNotFound 邮箱授权记录未找到错误
	ErrAccountNotFound = errors.New("mail account not found")
	// ErrUserNotFound 用户未找到错误
	ErrUserNotFound = errors.New("user not found")
)

// EmailRepository 定义邮件数据存取操作。
type EmailRepository interface {
	// CreateEmail 以单个事务写入邮件及其收件人、要点、附件、图片。
	// ProviderID 唯一索引冲突时返回 ErrEmailExists。
	CreateEmail(email *domain.Email) error
	EmailExistsByProviderID(providerID string) (bool, error)
	GetEmail(userID, emailID string) (*domain.Email, error)
	ListEmails(criteria domain.EmailSearchCriteria) (*domain.EmailSearchResult, error)
	MarkEmailRead(userID, emailID string, read bool) error
	SetAnswerLater(userID, emailID string, answerLater bool) error
	ArchiveEmail(userID, emailID string, archived bool) error
	DeleteEmail(userID, emailID string) error
	// DeleteReadEmailsBefore 删除在指定时刻之前已读的邮件，返回删除数量
	DeleteReadEmailsBefore(before time.Time) (int, error)
}

// SenderRepository 定义发件人通讯录存取操作。
type SenderRepository interface {
	SaveSender(sender *domain.Sender) error
	GetSender(id string) (*domain.Sender, error)
	GetSenderByEmail(email string) (*domain.Sender, error)
	ListSendersByUserID(userID string) ([]domain.Sender, error)
}

// CategoryRepository 定义类别数据存取操作。
type CategoryRepository interface {
	CreateCategory(category *domain.Category) error
	GetCategory(userID, categoryID string) (*domain.Category, error)
	GetCategoryByName(userID, name string) (*domain.Category, error)
	ListCategories(userID string) ([]domain.Category, error)
	UpdateCategory(category *domain.Category) error
	DeleteCategory(userID, categoryID string) error
}

// RuleRepository 定义发件人规则存取操作。
type RuleRepository interface {
	SaveRule(rule *domain.Rule) error
	GetRule(userID, ruleID string) (*domain.Rule, error)
	GetRuleBySender(userID, senderID string) (*domain.Rule, error)
	ListRules(userID string) ([]domain.Rule, error)
	DeleteRule(userID, ruleID string) error
}

// AccountRepository 定义邮箱授权记录存取操作。
type AccountRepository interface {
	SaveAccount(account *domain.MailAccount) error
	GetAccount(id string) (*domain.MailAccount, error)
	GetAccountByEmail(email string) (*domain.MailAccount, error)
	GetAccountBySubscriptionID(subscriptionID string) (*domain.MailAccount, error)
	ListAccountsByUserID(userID string) ([]domain.MailAccount, error)
	DeleteAccount(id string) error
}

// StatisticsRepository 定义用户统计存取操作。
type StatisticsRepository interface {
	GetStatistics(userID string) (*domain.Statistics, error)
	// ApplyStatisticsDelta 按增量累加统计计数，记录不存在时创建
	ApplyStatisticsDelta(userID string, delta *domain.Statistics) error
}

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	CreateUser(user *domain.User) error
	GetUserByID(id string) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	UpdateUser(user *domain.User) error
}

// Store 定义完整的存储接口。
type Store interface {
	EmailRepository
	SenderRepository
	CategoryRepository
	RuleRepository
	AccountRepository
	StatisticsRepository
	UserRepository

	// 工具方法
	Close() error
	Health() error
}
