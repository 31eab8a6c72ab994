package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"aomail/backend/internal/domain"
)

// ListEmails 按条件分页查询邮件列表
func (s *Store) ListEmails(criteria domain.EmailSearchCriteria) (*domain.EmailSearchResult, error) {
	// 设置默认分页参数
	if criteria.Page <= 0 {
		criteria.Page = 1
	}
	if criteria.PageSize <= 0 {
		criteria.PageSize = 20
	}
	if criteria.PageSize > 100 {
		criteria.PageSize = 100
	}

	// 构建查询
	query := s.db.Model(&domain.Email{}).Where("user_id = ?", criteria.UserID)

	if criteria.CategoryID != "" {
		query = query.Where("category_id = ?", criteria.CategoryID)
	}
	if criteria.Priority != "" {
		query = query.Where("priority = ?", criteria.Priority)
	}
	if criteria.Read != nil {
		query = query.Where("read = ?", *criteria.Read)
	}
	if criteria.Archived != nil {
		query = query.Where("archived = ?", *criteria.Archived)
	}

	// 关键词搜索（LIKE 兼容 MySQL 和 PostgreSQL）
	if criteria.Query != "" {
		searchPattern := "%" + criteria.Query + "%"
		query = query.Where(
			"subject LIKE ? OR one_line_summary LIKE ? OR short_summary LIKE ?",
			searchPattern, searchPattern, searchPattern,
		)
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count emails: %w", err)
	}

	// 分页查询
	var emails []domain.Email
	offset := (criteria.Page - 1) * criteria.PageSize
	if err := query.
		Preload("Sender").
		Preload("BulletPoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("sent_date DESC").
		Limit(criteria.PageSize).
		Offset(offset).
		Find(&emails).Error; err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}

	return &domain.EmailSearchResult{
		Emails:   emails,
		Total:    int(total),
		Page:     criteria.Page,
		PageSize: criteria.PageSize,
	}, nil
}
