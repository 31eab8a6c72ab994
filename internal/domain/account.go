package domain

import "time"

// User 表示一个应用用户。
// 注册、登录与 OAuth 授权流程由外部系统负责，这里只保留身份信息。
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username  string    `json:"username" gorm:"type:varchar(100);uniqueIndex"`
	Email     string    `json:"email" gorm:"type:varchar(320);uniqueIndex"`
	CreatedAt time.Time `json:"createdAt"`
}

// MailAccount 表示一条已关联的邮箱授权记录（服务商凭据）。
// 令牌的换取与刷新由外部 OAuth 流程维护，本系统只读取使用。
type MailAccount struct {
	ID       string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID   string        `json:"userId" gorm:"type:varchar(36);index;not null"`
	Provider EmailProvider `json:"provider" gorm:"type:varchar(50)"`
	Email    string        `json:"email" gorm:"type:varchar(320);uniqueIndex;not null"`

	AccessToken  string `json:"-" gorm:"type:varchar(3000)"`
	RefreshToken string `json:"-" gorm:"type:varchar(2000)"`

	// UserDescription 用户自述，拼入分类提示词帮助 LLM 判断相关性
	UserDescription string `json:"userDescription" gorm:"type:varchar(200)"`

	// SubscriptionID 服务商推送订阅标识（Microsoft Graph 必填）
	SubscriptionID string    `json:"subscriptionId" gorm:"type:varchar(100);index"`
	CreatedAt      time.Time `json:"createdAt"`
}
