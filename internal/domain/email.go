package domain

import "time"

// EmailProvider 邮件服务商类型
type EmailProvider string

const (
	// ProviderGoogle Gmail 服务商
	ProviderGoogle EmailProvider = "google"
	// ProviderMicrosoft Outlook (Microsoft Graph) 服务商
	ProviderMicrosoft EmailProvider = "microsoft"
)

// Priority 邮件最终优先级（三值，存储在 Email 上）
type Priority string

const (
	PriorityImportant   Priority = "important"   // 需要立即关注
	PriorityInformative Priority = "informative" // 需要知晓但不紧急
	PriorityUseless     Priority = "useless"     // 推广、新闻等无用邮件
)

// 响应需求封闭枚举，LLM 只能从中选择，禁止造词
const (
	AnswerRequired     = "Answer Required"
	MightRequireAnswer = "Might Require Answer"
	NoAnswerRequired   = "No Answer Required"
)

// 相关性封闭枚举
const (
	HighlyRelevant   = "Highly Relevant"
	PossiblyRelevant = "Possibly Relevant"
	NotRelevant      = "Not Relevant"
)

// Email 表示一封已入库的邮件聚合根。
//
// ProviderID 在全表范围内唯一：同一条服务商消息的重复投递
// 必须落在该唯一索引上，由持久层转换为幂等成功。
type Email struct {
	ID         string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string        `json:"userId" gorm:"type:varchar(36);index;not null"`
	AccountID  string        `json:"accountId" gorm:"type:varchar(36);index"` // 关联的邮箱授权记录
	ProviderID string        `json:"providerId" gorm:"type:varchar(200);uniqueIndex;not null"`
	Provider   EmailProvider `json:"provider" gorm:"type:varchar(50)"`

	Subject        string `json:"subject" gorm:"type:varchar(400)"`
	OneLineSummary string `json:"oneLineSummary" gorm:"type:varchar(200)"`
	ShortSummary   string `json:"shortSummary" gorm:"type:varchar(1000)"`
	Content        string `json:"content" gorm:"type:text"`     // 清洗后的纯文本正文
	HTMLContent    string `json:"htmlContent" gorm:"type:text"` // 消毒后的安全 HTML

	Priority    Priority   `json:"priority" gorm:"type:varchar(50);index"`
	Read        bool       `json:"read" gorm:"default:false;index"`
	ReadDate    *time.Time `json:"readDate,omitempty"`
	Archived    bool       `json:"archived" gorm:"default:false"`
	AnswerLater bool       `json:"answerLater" gorm:"default:false"`

	SenderID   string    `json:"senderId" gorm:"type:varchar(36);index"`
	Sender     *Sender   `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	CategoryID string    `json:"categoryId" gorm:"type:varchar(36);index"`
	SentDate   time.Time `json:"sentDate"`
	WebLink    string    `json:"webLink" gorm:"type:varchar(500)"` // 回跳服务商网页端的链接

	HasAttachments bool   `json:"hasAttachments" gorm:"default:false"`
	Answer         string `json:"answer" gorm:"type:varchar(50)"`    // 响应需求枚举值
	Relevance      string `json:"relevance" gorm:"type:varchar(50)"` // 相关性枚举值

	// LLM 判定的标志位
	Spam         bool `json:"spam" gorm:"default:false"`
	Scam         bool `json:"scam" gorm:"default:false"`
	Newsletter   bool `json:"newsletter" gorm:"default:false"`
	Notification bool `json:"notification" gorm:"default:false"`
	Meeting      bool `json:"meeting" gorm:"default:false"`

	// 子记录，与 Email 同事务写入
	Recipients   []Recipient   `json:"recipients,omitempty" gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE"`
	BulletPoints []BulletPoint `json:"bulletPoints,omitempty" gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE"`
	Attachments  []Attachment  `json:"attachments,omitempty" gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE"`
	Pictures     []Picture     `json:"pictures,omitempty" gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"createdAt"`
}

// RecipientKind 收件人类型（抄送/密送）
type RecipientKind string

const (
	RecipientCC  RecipientKind = "cc"
	RecipientBCC RecipientKind = "bcc"
)

// Recipient 表示邮件的一个抄送或密送收件人。
type Recipient struct {
	ID      string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EmailID string        `json:"-" gorm:"type:varchar(36);index;not null"`
	Kind    RecipientKind `json:"kind" gorm:"type:varchar(10)"`
	Name    string        `json:"name" gorm:"type:varchar(200)"`
	Address string        `json:"address" gorm:"type:varchar(320)"`
}

// BulletPoint 表示 LLM 详细摘要中的一条要点，Position 保序。
type BulletPoint struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EmailID  string `json:"-" gorm:"type:varchar(36);index;not null"`
	Position int    `json:"position"`
	Content  string `json:"content" gorm:"type:text"`
}

// Attachment 表示附件元数据。
// 附件内容不落库，按需通过服务商 API 以 ProviderAttachmentID 拉取。
type Attachment struct {
	ID                   string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EmailID              string `json:"-" gorm:"type:varchar(36);index;not null"`
	Name                 string `json:"name" gorm:"type:varchar(200)"`
	ProviderAttachmentID string `json:"providerAttachmentId" gorm:"type:varchar(500)"`
}

// Picture 表示随正文内嵌并已落盘的图片。
type Picture struct {
	ID      string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EmailID string `json:"-" gorm:"type:varchar(36);index;not null"`
	Path    string `json:"path" gorm:"type:text"` // 本地存储的相对路径
}

// Sender 表示一个去重后的发件人（按邮箱地址唯一），首次出现时惰性创建。
type Sender struct {
	ID    string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email string `json:"email" gorm:"type:varchar(320);uniqueIndex;not null"`
	Name  string `json:"name" gorm:"type:varchar(200)"`
}
