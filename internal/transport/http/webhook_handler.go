package httptransport

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/provider"
	"aomail/backend/internal/service"
	"aomail/backend/internal/storage"
)

// maxNotificationBody webhook 载荷大小上限
const maxNotificationBody = 256 * 1024

// Ingestor 摄取服务抽象，便于测试替换。
type Ingestor interface {
	Ingest(ctx context.Context, req service.IngestRequest) error
}

// GmailHistoryLister 按 history 位点列出新增消息。
type GmailHistoryLister interface {
	ListNewMessageIDs(ctx context.Context, account *domain.MailAccount, historyID uint64) ([]string, error)
}

// TaskPool 异步任务提交抽象。
type TaskPool interface {
	TrySubmit(task func(ctx context.Context)) bool
}

// WebhookHandler 处理服务商的新邮件推送。
// 推送必须立刻应答，摄取工作转入任务池异步执行；
// 处理失败依靠服务商重投与去重锁兜底。
type WebhookHandler struct {
	ingest   Ingestor
	gmail    GmailHistoryLister
	accounts storage.AccountRepository
	pool     TaskPool
	logger   *zap.Logger
}

// NewWebhookHandler 创建 webhook 处理器
func NewWebhookHandler(
	ingest Ingestor,
	gmail GmailHistoryLister,
	accounts storage.AccountRepository,
	pool TaskPool,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		ingest:   ingest,
		gmail:    gmail,
		accounts: accounts,
		pool:     pool,
		logger:   logger,
	}
}

// HandleGoogle 处理 Gmail watch 的 Pub/Sub 推送。
// 载荷畸形或账户未知时也返回 200，避免 Pub/Sub 无限重投坏消息。
func (wh *WebhookHandler) HandleGoogle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotificationBody))
	if err != nil {
		BadRequest(c, MsgInvalidNotification)
		return
	}

	notification, err := provider.ParsePubSubNotification(body)
	if err != nil {
		wh.logger.Warn("invalid pubsub notification", zap.Error(err))
		Success(c, nil)
		return
	}

	account, err := wh.accounts.GetAccountByEmail(notification.EmailAddress)
	if err != nil {
		wh.logger.Warn("pubsub notification for unknown account",
			zap.String("email", notification.EmailAddress),
			zap.Error(err))
		Success(c, nil)
		return
	}

	historyID := notification.HistoryID
	submitted := wh.pool.TrySubmit(func(ctx context.Context) {
		wh.ingestGmailHistory(ctx, account, historyID)
	})
	if !submitted {
		// 队列满时不应答成功，等待 Pub/Sub 重投
		wh.logger.Warn("ingest queue full, rejecting gmail notification",
			zap.String("email", account.Email))
		c.Status(http.StatusServiceUnavailable)
		return
	}

	Success(c, nil)
}

// ingestGmailHistory 列出新增消息并逐条摄取
func (wh *WebhookHandler) ingestGmailHistory(ctx context.Context, account *domain.MailAccount, historyID uint64) {
	ids, err := wh.gmail.ListNewMessageIDs(ctx, account, historyID)
	if err != nil {
		wh.logger.Error("failed to list gmail history",
			zap.String("email", account.Email),
			zap.Uint64("history_id", historyID),
			zap.Error(err))
		return
	}

	for _, id := range ids {
		if err := wh.ingest.Ingest(ctx, service.IngestRequest{
			AccountEmail: account.Email,
			ProviderID:   id,
			Provider:     domain.ProviderGoogle,
		}); err != nil {
			wh.logger.Error("gmail ingestion failed",
				zap.String("provider_id", id),
				zap.Error(err))
		}
	}
}

// HandleMicrosoft 处理 Microsoft Graph 的变更通知。
// 订阅握手时 Graph 要求原样回显 validationToken。
func (wh *WebhookHandler) HandleMicrosoft(c *gin.Context) {
	if token := c.Query("validationToken"); token != "" {
		c.String(http.StatusOK, token)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotificationBody))
	if err != nil {
		BadRequest(c, MsgInvalidNotification)
		return
	}

	changes, err := provider.ParseGraphNotifications(body)
	if err != nil {
		wh.logger.Warn("invalid graph notification", zap.Error(err))
		Success(c, nil)
		return
	}

	for _, change := range changes {
		account, err := wh.accounts.GetAccountBySubscriptionID(change.SubscriptionID)
		if err != nil {
			wh.logger.Warn("graph notification for unknown subscription",
				zap.String("subscription_id", change.SubscriptionID),
				zap.Error(err))
			continue
		}

		email := account.Email
		messageID := change.MessageID
		submitted := wh.pool.TrySubmit(func(ctx context.Context) {
			if err := wh.ingest.Ingest(ctx, service.IngestRequest{
				AccountEmail: email,
				ProviderID:   messageID,
				Provider:     domain.ProviderMicrosoft,
			}); err != nil {
				wh.logger.Error("graph ingestion failed",
					zap.String("provider_id", messageID),
					zap.Error(err))
			}
		})
		if !submitted {
			wh.logger.Warn("ingest queue full, rejecting graph notification",
				zap.String("subscription_id", change.SubscriptionID))
			c.Status(http.StatusServiceUnavailable)
			return
		}
	}

	Success(c, nil)
}
