package domain

import "time"

// Rule 表示用户针对某发件人的覆盖规则。
//
// Block 为真时该发件人的邮件在入库前被静默丢弃（成功空操作）；
// CategoryID 非空时强制指定分类，绕过 LLM 的主题判定
// （LLM 仍会被调用以生成摘要和重要性）。
type Rule struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `json:"userId" gorm:"type:varchar(36);index;not null"`
	SenderID   string    `json:"senderId" gorm:"type:varchar(36);index;not null"`
	Block      bool      `json:"block" gorm:"default:false"`
	CategoryID *string   `json:"categoryId,omitempty" gorm:"type:varchar(36)"`
	CreatedAt  time.Time `json:"createdAt"`
}
