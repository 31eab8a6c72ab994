package domain

import "time"

const (
	// DefaultCategoryName 兜底分类名。每个用户恒有且仅有一个，
	// 总是出现在提示词的候选类别中，LLM 给出未知分类时也回退到它。
	DefaultCategoryName = "Others"

	// DefaultCategoryDescription 兜底分类的固定描述。
	// 解析分类表时总是覆盖存储中的值，保证 LLM 提示词的一致性。
	DefaultCategoryDescription = "All emails that cannot be classified in any of the given categories"
)

// Category 表示用户自定义的邮件分类（名称 + 描述）。
type Category struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string    `json:"userId" gorm:"type:varchar(36);index;not null"`
	Name        string    `json:"name" gorm:"type:varchar(50);not null"`
	Description string    `json:"description" gorm:"type:varchar(300)"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IsDefault 判断是否为兜底分类。
func (c *Category) IsDefault() bool {
	return c.Name == DefaultCategoryName
}
