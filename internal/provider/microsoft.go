package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"aomail/backend/internal/domain"
)

// defaultGraphBaseURL Microsoft Graph API 地址
const defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

// GraphChange Graph 变更通知中的一条消息引用。
type GraphChange struct {
	SubscriptionID string
	MessageID      string
}

// graphNotificationEnvelope Graph webhook 通知信封
type graphNotificationEnvelope struct {
	Value []struct {
		SubscriptionID string `json:"subscriptionId"`
		ChangeType     string `json:"changeType"`
		ResourceData   struct {
			ID string `json:"id"`
		} `json:"resourceData"`
	} `json:"value"`
}

// ParseGraphNotifications 解析 Graph 变更通知，只保留新建消息
func ParseGraphNotifications(body []byte) ([]GraphChange, error) {
	var envelope graphNotificationEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("invalid graph notification: %w", err)
	}

	var changes []GraphChange
	for _, item := range envelope.Value {
		if item.ChangeType != "" && item.ChangeType != "created" {
			continue
		}
		if item.ResourceData.ID == "" {
			continue
		}
		changes = append(changes, GraphChange{
			SubscriptionID: item.SubscriptionID,
			MessageID:      item.ResourceData.ID,
		})
	}
	return changes, nil
}

// MicrosoftClient Microsoft Graph 邮件客户端。
type MicrosoftClient struct {
	baseURL string
	caller  *apiCaller
	logger  *zap.Logger
}

// NewMicrosoftClient 创建 Graph 客户端，baseURL 为空时使用官方地址
func NewMicrosoftClient(baseURL string, logger *zap.Logger) *MicrosoftClient {
	if baseURL == "" {
		baseURL = defaultGraphBaseURL
	}
	return &MicrosoftClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		caller:  newAPICaller(30*time.Second, 10),
		logger:  logger,
	}
}

// graphAddress Graph 的地址表示
type graphAddress struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

// graphMessage messages/{id} 响应
type graphMessage struct {
	ID               string         `json:"id"`
	Subject          string         `json:"subject"`
	From             *graphAddress  `json:"from"`
	CCRecipients     []graphAddress `json:"ccRecipients"`
	BCCRecipients    []graphAddress `json:"bccRecipients"`
	ReceivedDateTime string         `json:"receivedDateTime"`
	WebLink          string         `json:"webLink"`
	HasAttachments   bool           `json:"hasAttachments"`
	Body             struct {
		ContentType string `json:"contentType"` // "text" 或 "html"
		Content     string `json:"content"`
	} `json:"body"`
}

// graphAttachment attachments 列表项
type graphAttachment struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	IsInline     bool   `json:"isInline"`
	ContentID    string `json:"contentId"`
	ContentBytes string `json:"contentBytes"` // base64 标准编码
	Size         int    `json:"size"`
}

// FetchMessage 拉取一封完整邮件并归一化
func (c *MicrosoftClient) FetchMessage(ctx context.Context, account *domain.MailAccount, providerID string) (*domain.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/me/messages/%s", c.baseURL, url.PathEscape(providerID))

	resp, err := c.caller.do(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, account, endpoint)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph message get failed: status %d", resp.StatusCode)
	}

	var msg graphMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to decode graph message: %w", err)
	}

	var attachments []graphAttachment
	if msg.HasAttachments {
		attachments, err = c.listAttachments(ctx, account, providerID)
		if err != nil {
			// 附件列表失败不阻断正文摄取
			c.logger.Warn("failed to list graph attachments",
				zap.String("message_id", providerID),
				zap.Error(err))
		}
	}

	return normalizeGraphMessage(&msg, attachments), nil
}

// listAttachments 拉取附件清单（含内联图片内容）
func (c *MicrosoftClient) listAttachments(ctx context.Context, account *domain.MailAccount, messageID string) ([]graphAttachment, error) {
	endpoint := fmt.Sprintf("%s/me/messages/%s/attachments", c.baseURL, url.PathEscape(messageID))

	resp, err := c.caller.do(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, account, endpoint)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph attachments list failed: status %d", resp.StatusCode)
	}

	var parsed struct {
		Value []graphAttachment `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.Value, nil
}

// newRequest 构造带授权头的 GET 请求
func (c *MicrosoftClient) newRequest(ctx context.Context, account *domain.MailAccount, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	return req, nil
}

// normalizeGraphMessage 将 Graph 报文转换为归一化的 MIME 部件树
func normalizeGraphMessage(msg *graphMessage, attachments []graphAttachment) *domain.RawMessage {
	raw := &domain.RawMessage{
		ProviderID: msg.ID,
		Provider:   domain.ProviderMicrosoft,
		Subject:    msg.Subject,
		WebLink:    msg.WebLink,
		IsReply:    strings.HasPrefix(strings.ToLower(msg.Subject), "re:"),
	}

	if msg.From != nil {
		raw.From = domain.NameEmail{
			Name:  msg.From.EmailAddress.Name,
			Email: msg.From.EmailAddress.Address,
		}
	}
	for _, cc := range msg.CCRecipients {
		raw.CC = append(raw.CC, domain.NameEmail{Name: cc.EmailAddress.Name, Email: cc.EmailAddress.Address})
	}
	for _, bcc := range msg.BCCRecipients {
		raw.BCC = append(raw.BCC, domain.NameEmail{Name: bcc.EmailAddress.Name, Email: bcc.EmailAddress.Address})
	}

	if parsed, err := time.Parse(time.RFC3339, msg.ReceivedDateTime); err == nil {
		raw.SentDate = parsed.UTC()
	} else {
		raw.SentDate = time.Now().UTC()
	}

	raw.Payload = buildGraphPartTree(msg, attachments)
	return raw
}

// buildGraphPartTree 用正文与附件组装 multipart 树。
// Graph 返回明文正文，统一转为 base64url 叶子与 Gmail 表示对齐。
func buildGraphPartTree(msg *graphMessage, attachments []graphAttachment) *domain.MailPart {
	bodyMime := "text/plain"
	if strings.EqualFold(msg.Body.ContentType, "html") {
		bodyMime = "text/html"
	}
	bodyPart := &domain.MailPart{
		MimeType: bodyMime,
		Body: domain.MailPartBody{
			Data: base64.RawURLEncoding.EncodeToString([]byte(msg.Body.Content)),
			Size: len(msg.Body.Content),
		},
	}

	if len(attachments) == 0 {
		return bodyPart
	}

	root := &domain.MailPart{
		MimeType: "multipart/mixed",
		Parts:    []*domain.MailPart{bodyPart},
	}

	for _, att := range attachments {
		part := &domain.MailPart{
			MimeType: att.ContentType,
			Filename: att.Name,
			Body: domain.MailPartBody{
				AttachmentID: att.ID,
				Size:         att.Size,
			},
		}

		if att.IsInline && att.ContentBytes != "" {
			// 内联图片：转 base64url 随树下行，供提取器落盘并改写 cid 引用
			if decoded, err := base64.StdEncoding.DecodeString(att.ContentBytes); err == nil {
				part.Body.Data = base64.RawURLEncoding.EncodeToString(decoded)
			}
			if att.ContentID != "" {
				part.Headers = append(part.Headers, domain.MailHeader{
					Name:  "Content-ID",
					Value: "<" + att.ContentID + ">",
				})
			}
		}

		root.Parts = append(root.Parts, part)
	}
	return root
}

// SearchMessages 以 Graph $search 执行服务商侧搜索
func (c *MicrosoftClient) SearchMessages(ctx context.Context, account *domain.MailAccount, query domain.ProviderSearchQuery) ([]domain.ProviderSearchHit, error) {
	top := query.MaxResults
	if top <= 0 || top > 100 {
		top = 100
	}

	endpoint := fmt.Sprintf(`%s/me/messages?$search=%s&$top=%d&$select=id,subject,from`,
		c.baseURL, url.QueryEscape(`"`+buildGraphQuery(query)+`"`), top)

	resp, err := c.caller.do(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, account, endpoint)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph search failed: status %d", resp.StatusCode)
	}

	var parsed struct {
		Value []graphMessage `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode graph search result: %w", err)
	}

	hits := make([]domain.ProviderSearchHit, 0, len(parsed.Value))
	for _, msg := range parsed.Value {
		hit := domain.ProviderSearchHit{
			AccountEmail: account.Email,
			Provider:     domain.ProviderMicrosoft,
			ProviderID:   msg.ID,
			Subject:      msg.Subject,
		}
		if msg.From != nil {
			hit.From = msg.From.EmailAddress.Address
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// buildGraphQuery 将结构化查询拼为 Graph $search 表达式
func buildGraphQuery(query domain.ProviderSearchQuery) string {
	var parts []string
	if len(query.Keywords) > 0 {
		parts = append(parts, strings.Join(query.Keywords, " "))
	}
	for _, from := range query.From {
		parts = append(parts, "from:"+from)
	}
	if query.Subject != "" {
		parts = append(parts, "subject:"+query.Subject)
	}
	return strings.Join(parts, " ")
}
