package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	netmail "net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"aomail/backend/internal/domain"
)

// defaultGmailBaseURL Gmail REST API 地址
const defaultGmailBaseURL = "https://gmail.googleapis.com"

// gmailWebLinkFormat 回跳 Gmail 网页端的链接模板
const gmailWebLinkFormat = "https://mail.google.com/mail/u/0/#inbox/%s"

// PubSubNotification Gmail watch 推送解包后的内容。
type PubSubNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// pubSubEnvelope Cloud Pub/Sub push 信封
type pubSubEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// ParsePubSubNotification 解析 Pub/Sub push 信封，提取 Gmail 通知内容
func ParsePubSubNotification(body []byte) (*PubSubNotification, error) {
	var envelope pubSubEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("invalid pubsub envelope: %w", err)
	}
	if envelope.Message.Data == "" {
		return nil, fmt.Errorf("pubsub envelope has no data")
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		// push 投递偶见 URL-safe 编码
		decoded, err = base64.URLEncoding.DecodeString(envelope.Message.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode pubsub data: %w", err)
		}
	}

	var notification PubSubNotification
	if err := json.Unmarshal(decoded, &notification); err != nil {
		return nil, fmt.Errorf("invalid gmail notification: %w", err)
	}
	if notification.EmailAddress == "" {
		return nil, fmt.Errorf("gmail notification has no email address")
	}
	return &notification, nil
}

// GoogleClient Gmail API 客户端。
type GoogleClient struct {
	baseURL string
	caller  *apiCaller
	logger  *zap.Logger
}

// NewGoogleClient 创建 Gmail 客户端，baseURL 为空时使用官方地址
func NewGoogleClient(baseURL string, logger *zap.Logger) *GoogleClient {
	if baseURL == "" {
		baseURL = defaultGmailBaseURL
	}
	return &GoogleClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		caller:  newAPICaller(30*time.Second, 10),
		logger:  logger,
	}
}

// gmailMessage messages.get 响应
type gmailMessage struct {
	ID           string     `json:"id"`
	ThreadID     string     `json:"threadId"`
	InternalDate string     `json:"internalDate"` // 毫秒时间戳字符串
	Payload      *gmailPart `json:"payload"`
}

// gmailPart Gmail 的 MIME 部件表示，结构与 domain.MailPart 对齐
type gmailPart struct {
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data         string `json:"data"`
		AttachmentID string `json:"attachmentId"`
		Size         int    `json:"size"`
	} `json:"body"`
	Parts []*gmailPart `json:"parts"`
}

// gmailHistoryResponse history.list 响应（只取新增消息）
type gmailHistoryResponse struct {
	History []struct {
		MessagesAdded []struct {
			Message struct {
				ID string `json:"id"`
			} `json:"message"`
		} `json:"messagesAdded"`
	} `json:"history"`
	NextPageToken string `json:"nextPageToken"`
}

// ListNewMessageIDs 从指定 history 位点列出新增消息的标识
func (c *GoogleClient) ListNewMessageIDs(ctx context.Context, account *domain.MailAccount, historyID uint64) ([]string, error) {
	endpoint := fmt.Sprintf("%s/gmail/v1/users/me/history?startHistoryId=%d&historyTypes=messageAdded", c.baseURL, historyID)

	resp, err := c.caller.do(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, account, endpoint)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gmail history list failed: status %d", resp.StatusCode)
	}

	var parsed gmailHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode gmail history: %w", err)
	}

	var ids []string
	seen := make(map[string]bool)
	for _, entry := range parsed.History {
		for _, added := range entry.MessagesAdded {
			if id := added.Message.ID; id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// FetchMessage 拉取一封完整邮件并归一化
func (c *GoogleClient) FetchMessage(ctx context.Context, account *domain.MailAccount, providerID string) (*domain.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/gmail/v1/users/me/messages/%s?format=full", c.baseURL, url.PathEscape(providerID))

	resp, err := c.caller.do(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, account, endpoint)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gmail message get failed: status %d", resp.StatusCode)
	}

	var msg gmailMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to decode gmail message: %w", err)
	}

	return normalizeGmailMessage(&msg), nil
}

// newRequest 构造带授权头的 GET 请求
func (c *GoogleClient) newRequest(ctx context.Context, account *domain.MailAccount, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	return req, nil
}

// normalizeGmailMessage 将 Gmail 报文转换为归一化表示
func normalizeGmailMessage(msg *gmailMessage) *domain.RawMessage {
	payload := convertGmailPart(msg.Payload)

	raw := &domain.RawMessage{
		ProviderID: msg.ID,
		Provider:   domain.ProviderGoogle,
		WebLink:    fmt.Sprintf(gmailWebLinkFormat, msg.ID),
		Payload:    payload,
	}

	if payload != nil {
		raw.Subject = payload.Header("Subject")
		raw.From = parseAddress(payload.Header("From"))
		raw.CC = parseAddressList(payload.Header("Cc"))
		raw.BCC = parseAddressList(payload.Header("Bcc"))
		raw.IsReply = payload.Header("In-Reply-To") != "" || payload.Header("References") != ""
	}

	raw.SentDate = gmailSentDate(msg, payload)
	return raw
}

// gmailSentDate 优先 internalDate，缺失时回退 Date 头
func gmailSentDate(msg *gmailMessage, payload *domain.MailPart) time.Time {
	if ms, err := strconv.ParseInt(msg.InternalDate, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	if payload != nil {
		if parsed, err := netmail.ParseDate(payload.Header("Date")); err == nil {
			return parsed.UTC()
		}
	}
	return time.Now().UTC()
}

// convertGmailPart 递归转换 MIME 部件树
func convertGmailPart(part *gmailPart) *domain.MailPart {
	if part == nil {
		return nil
	}

	converted := &domain.MailPart{
		MimeType: part.MimeType,
		Filename: part.Filename,
		Body: domain.MailPartBody{
			Data:         part.Body.Data,
			AttachmentID: part.Body.AttachmentID,
			Size:         part.Body.Size,
		},
	}
	for _, h := range part.Headers {
		converted.Headers = append(converted.Headers, domain.MailHeader{Name: h.Name, Value: h.Value})
	}
	for _, child := range part.Parts {
		converted.Parts = append(converted.Parts, convertGmailPart(child))
	}
	return converted
}

// parseAddress 解析单个地址头，解析失败时原样保留地址串
func parseAddress(header string) domain.NameEmail {
	if header == "" {
		return domain.NameEmail{}
	}
	addr, err := netmail.ParseAddress(header)
	if err != nil {
		return domain.NameEmail{Email: strings.TrimSpace(header)}
	}
	return domain.NameEmail{Name: addr.Name, Email: addr.Address}
}

// parseAddressList 解析 Cc/Bcc 一类的多地址头
func parseAddressList(header string) []domain.NameEmail {
	if header == "" {
		return nil
	}
	addrs, err := netmail.ParseAddressList(header)
	if err != nil {
		return nil
	}

	list := make([]domain.NameEmail, 0, len(addrs))
	for _, addr := range addrs {
		list = append(list, domain.NameEmail{Name: addr.Name, Email: addr.Address})
	}
	return list
}

// ========== 搜索 ==========

// gmailListResponse messages.list 响应
type gmailListResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SearchMessages 以 Gmail 查询语法执行服务商侧搜索
func (c *GoogleClient) SearchMessages(ctx context.Context, account *domain.MailAccount, query domain.ProviderSearchQuery) ([]domain.ProviderSearchHit, error) {
	maxResults := query.MaxResults
	if maxResults <= 0 || maxResults > 100 {
		maxResults = 100
	}

	endpoint := fmt.Sprintf("%s/gmail/v1/users/me/messages?q=%s&maxResults=%d",
		c.baseURL, url.QueryEscape(buildGmailQuery(query)), maxResults)

	resp, err := c.caller.do(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, account, endpoint)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gmail search failed: status %d", resp.StatusCode)
	}

	var listed gmailListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		return nil, fmt.Errorf("failed to decode gmail search result: %w", err)
	}

	hits := make([]domain.ProviderSearchHit, 0, len(listed.Messages))
	for _, ref := range listed.Messages {
		hit, err := c.fetchHitMetadata(ctx, account, ref.ID)
		if err != nil {
			c.logger.Warn("failed to fetch message metadata",
				zap.String("message_id", ref.ID),
				zap.Error(err))
			continue
		}
		hits = append(hits, *hit)
	}
	return hits, nil
}

// fetchHitMetadata 拉取命中消息的头部信息
func (c *GoogleClient) fetchHitMetadata(ctx context.Context, account *domain.MailAccount, id string) (*domain.ProviderSearchHit, error) {
	endpoint := fmt.Sprintf("%s/gmail/v1/users/me/messages/%s?format=metadata&metadataHeaders=Subject&metadataHeaders=From",
		c.baseURL, url.PathEscape(id))

	resp, err := c.caller.do(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, account, endpoint)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gmail metadata get failed: status %d", resp.StatusCode)
	}

	var msg gmailMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, err
	}

	hit := &domain.ProviderSearchHit{
		AccountEmail: account.Email,
		Provider:     domain.ProviderGoogle,
		ProviderID:   msg.ID,
	}
	if msg.Payload != nil {
		part := convertGmailPart(msg.Payload)
		hit.Subject = part.Header("Subject")
		hit.From = part.Header("From")
	}
	return hit, nil
}

// buildGmailQuery 将结构化查询拼为 Gmail 查询语法
func buildGmailQuery(query domain.ProviderSearchQuery) string {
	var parts []string
	if len(query.Keywords) > 0 {
		parts = append(parts, strings.Join(query.Keywords, " "))
	}
	if len(query.From) > 0 {
		froms := make([]string, 0, len(query.From))
		for _, from := range query.From {
			froms = append(froms, "from:"+from)
		}
		parts = append(parts, "("+strings.Join(froms, " OR ")+")")
	}
	if query.Subject != "" {
		parts = append(parts, fmt.Sprintf("subject:%q", query.Subject))
	}
	return strings.Join(parts, " ")
}
