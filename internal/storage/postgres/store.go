// Package postgres 关系型存储实现（支持 PostgreSQL 和 MySQL）。
package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/storage"
)

// Store 关系型数据库存储实现
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn))
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn))
}

// NewStoreWithDialector 使用指定的 GORM dialector 创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	// 配置 GORM
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent), // 静默模式
		TranslateError: true,                                  // 统一方言错误，便于识别唯一键冲突
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	// 连接数据库
	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db}

	// 自动迁移数据库表
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.User{},
		&domain.MailAccount{},
		&domain.Sender{},
		&domain.Category{},
		&domain.Rule{},
		&domain.Email{},
		&domain.Recipient{},
		&domain.BulletPoint{},
		&domain.Attachment{},
		&domain.Picture{},
		&domain.Statistics{},
	)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// ========== Email Repository ==========

// CreateEmail 以单个事务写入邮件及其全部子记录。
// provider_id 唯一索引冲突映射为 storage.ErrEmailExists。
func (s *Store) CreateEmail(email *domain.Email) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(email).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return storage.ErrEmailExists
		}
		return err
	}
	return nil
}

// EmailExistsByProviderID 检查服务商消息是否已入库
func (s *Store) EmailExistsByProviderID(providerID string) (bool, error) {
	var count int64
	err := s.db.Model(&domain.Email{}).Where("provider_id = ?", providerID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetEmail 获取指定用户的一封邮件（含全部子记录）
func (s *Store) GetEmail(userID, emailID string) (*domain.Email, error) {
	var email domain.Email
	err := s.db.
		Preload("Sender").
		Preload("Recipients").
		Preload("BulletPoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Attachments").
		Preload("Pictures").
		Where("id = ? AND user_id = ?", emailID, userID).
		First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrEmailNotFound
		}
		return nil, err
	}
	return &email, nil
}

// MarkEmailRead 更新已读状态，置为已读时记录阅读时间
func (s *Store) MarkEmailRead(userID, emailID string, read bool) error {
	updates := map[string]interface{}{"read": read}
	if read {
		updates["read_date"] = time.Now().UTC()
	} else {
		updates["read_date"] = nil
	}
	return s.updateEmail(userID, emailID, updates)
}

// SetAnswerLater 更新稍后回复标记
func (s *Store) SetAnswerLater(userID, emailID string, answerLater bool) error {
	return s.updateEmail(userID, emailID, map[string]interface{}{"answer_later": answerLater})
}

// ArchiveEmail 更新归档状态
func (s *Store) ArchiveEmail(userID, emailID string, archived bool) error {
	return s.updateEmail(userID, emailID, map[string]interface{}{"archived": archived})
}

// updateEmail 对单封邮件执行限定用户的字段更新
func (s *Store) updateEmail(userID, emailID string, updates map[string]interface{}) error {
	result := s.db.Model(&domain.Email{}).
		Where("id = ? AND user_id = ?", emailID, userID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrEmailNotFound
	}
	return nil
}

// DeleteEmail 删除指定邮件及其子记录
func (s *Store) DeleteEmail(userID, emailID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var email domain.Email
		if err := tx.Where("id = ? AND user_id = ?", emailID, userID).First(&email).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrEmailNotFound
			}
			return err
		}
		if err := s.deleteEmailChildren(tx, []string{emailID}); err != nil {
			return err
		}
		return tx.Delete(&email).Error
	})
}

// DeleteReadEmailsBefore 删除在指定时刻之前已读的邮件，返回删除数量
func (s *Store) DeleteReadEmailsBefore(before time.Time) (int, error) {
	var count int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&domain.Email{}).
			Where("read = ? AND read_date IS NOT NULL AND read_date < ?", true, before).
			Pluck("id", &ids).Error; err != nil {
			return err
		}

		count = len(ids)
		if count == 0 {
			return nil
		}

		if err := s.deleteEmailChildren(tx, ids); err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&domain.Email{}).Error
	})
	return count, err
}

// deleteEmailChildren 删除一批邮件的全部子记录
func (s *Store) deleteEmailChildren(tx *gorm.DB, emailIDs []string) error {
	if err := tx.Where("email_id IN ?", emailIDs).Delete(&domain.Recipient{}).Error; err != nil {
		return err
	}
	if err := tx.Where("email_id IN ?", emailIDs).Delete(&domain.BulletPoint{}).Error; err != nil {
		return err
	}
	if err := tx.Where("email_id IN ?", emailIDs).Delete(&domain.Attachment{}).Error; err != nil {
		return err
	}
	return tx.Where("email_id IN ?", emailIDs).Delete(&domain.Picture{}).Error
}
