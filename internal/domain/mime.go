package domain

import (
	"strings"
	"time"
)

// NameEmail 一个（姓名，地址）对，来自 From/Cc/Bcc 头。
type NameEmail struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MailHeader 服务商报文中的一条头部。
type MailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MailPartBody MIME 叶子节点的内容。
// Data 为 base64url 编码的正文；AttachmentID 指向服务商侧的附件实体。
type MailPartBody struct {
	Data         string `json:"data"`
	AttachmentID string `json:"attachmentId"`
	Size         int    `json:"size"`
}

// MailPart 是从服务商 JSON 构建一次、之后穷举递归的 MIME 节点。
// 叶子节点携带 MimeType 与 Body；multipart 节点携带 Parts。
// 用类型化的树替代对原始字典的鸭子类型遍历，保证递归总是可终止。
type MailPart struct {
	MimeType string       `json:"mimeType"`
	Filename string       `json:"filename"`
	Headers  []MailHeader `json:"headers"`
	Body     MailPartBody `json:"body"`
	Parts    []*MailPart  `json:"parts"`
}

// Header 按名称查找头部值，名称比较不区分大小写，未找到返回空串。
func (p *MailPart) Header(name string) string {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// IsMultipart 判断是否为 multipart 容器节点。
func (p *MailPart) IsMultipart() bool {
	return strings.HasPrefix(p.MimeType, "multipart/")
}

// RawMessage 表示一封已从服务商载荷归一化、尚未分类入库的邮件。
type RawMessage struct {
	ProviderID string
	Provider   EmailProvider

	Subject  string
	From     NameEmail
	CC       []NameEmail
	BCC      []NameEmail
	SentDate time.Time
	IsReply  bool
	WebLink  string

	Payload *MailPart
}
