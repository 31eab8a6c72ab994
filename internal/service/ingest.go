package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/llm"
	"aomail/backend/internal/mail"
	"aomail/backend/internal/monitoring"
	"aomail/backend/internal/storage"
)

// maxIngestAttempts 整条摄取链路的最大尝试次数
const maxIngestAttempts = 3

var (
	ErrUnknownProvider = errors.New("unknown email provider")
)

// MessageFetcher 按服务商消息标识拉取完整报文。
type MessageFetcher interface {
	FetchMessage(ctx context.Context, account *domain.MailAccount, providerID string) (*domain.RawMessage, error)
}

// Classifier LLM 分类调用抽象，便于测试替换。
type Classifier interface {
	Classify(ctx context.Context, req llm.ClassifyRequest) (*domain.ClassificationResult, error)
}

// Deduper webhook 重复投递的去重锁抽象。
type Deduper interface {
	AcquireOnce(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// AlertSink 告警投递抽象。
type AlertSink interface {
	TriggerAlert(alert *monitoring.Alert)
}

// IngestRequest 一次摄取任务的输入，由 webhook 解析产生。
type IngestRequest struct {
	AccountEmail string               // 收件账户地址
	ProviderID   string               // 服务商消息标识
	Provider     domain.EmailProvider // 服务商类型
}

// IngestService 邮件摄取编排：去重、拉取、清洗、分类、落库、统计。
type IngestService struct {
	store      storage.Store
	categories *CategoryService
	classifier Classifier
	extractor  *mail.Extractor
	fetchers   map[domain.EmailProvider]MessageFetcher
	deduper    Deduper
	alerts     AlertSink
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// NewIngestService 创建摄取服务。
func NewIngestService(
	store storage.Store,
	categories *CategoryService,
	classifier Classifier,
	extractor *mail.Extractor,
	fetchers map[domain.EmailProvider]MessageFetcher,
	deduper Deduper,
	alerts AlertSink,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		store:      store,
		categories: categories,
		classifier: classifier,
		extractor:  extractor,
		fetchers:   fetchers,
		deduper:    deduper,
		alerts:     alerts,
		logger:     logger,
	}
}

// SetMetrics 注入监控指标，未注入时不产生指标
func (s *IngestService) SetMetrics(metrics *monitoring.Metrics) {
	s.metrics = metrics
}

// Ingest 处理一条新邮件通知。
//
// 重复投递、已入库、被规则拦截均为成功空操作。
// 其余失败重试整条链路，连续失败告警后返回错误并释放去重锁，
// 允许服务商的下一次投递重新触发处理。
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) error {
	if req.ProviderID == "" {
		return fmt.Errorf("provider message id is required")
	}
	start := time.Now()

	// 去重锁：窗口内只放行第一次投递
	if s.deduper != nil {
		first, err := s.deduper.AcquireOnce(ctx, req.ProviderID)
		if err != nil {
			s.logger.Warn("dedup check failed, continuing without lock",
				zap.String("provider_id", req.ProviderID),
				zap.Error(err))
		} else if !first {
			s.logger.Debug("duplicate delivery ignored",
				zap.String("provider_id", req.ProviderID))
			if s.metrics != nil {
				s.metrics.IngestDedup.Inc()
			}
			return nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxIngestAttempts; attempt++ {
		if attempt > 1 && s.metrics != nil {
			s.metrics.IngestRetries.Inc()
		}
		lastErr = s.processOnce(ctx, req)
		if lastErr == nil {
			if s.metrics != nil {
				s.metrics.RecordIngest(string(req.Provider), "success", time.Since(start))
			}
			return nil
		}

		s.logger.Error("failed to process email",
			zap.String("provider_id", req.ProviderID),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}

	// 连续失败：告警并释放去重锁，等待下一次投递重试
	s.alertIngestFailure(req, lastErr)
	if s.deduper != nil {
		if err := s.deduper.Release(ctx, req.ProviderID); err != nil {
			s.logger.Warn("failed to release dedup lock",
				zap.String("provider_id", req.ProviderID),
				zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.RecordIngest(string(req.Provider), "failure", time.Since(start))
	}
	return lastErr
}

// processOnce 执行一次完整的摄取链路
func (s *IngestService) processOnce(ctx context.Context, req IngestRequest) error {
	// 幂等检查：同一条服务商消息只入库一次
	exists, err := s.store.EmailExistsByProviderID(req.ProviderID)
	if err != nil {
		return fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		s.logger.Debug("email already ingested",
			zap.String("provider_id", req.ProviderID))
		return nil
	}

	account, err := s.store.GetAccountByEmail(req.AccountEmail)
	if err != nil {
		return fmt.Errorf("failed to resolve account %s: %w", req.AccountEmail, err)
	}

	fetcher, ok := s.fetchers[account.Provider]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, account.Provider)
	}

	msg, err := fetcher.FetchMessage(ctx, account, req.ProviderID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ProviderFetchTotal.WithLabelValues(string(account.Provider), "error").Inc()
		}
		return fmt.Errorf("failed to fetch message: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ProviderFetchTotal.WithLabelValues(string(account.Provider), "success").Inc()
	}

	// 发件人规则：拦截规则命中时静默丢弃，不调用 LLM
	sender, rule, err := s.resolveSenderRule(account.UserID, msg.From)
	if err != nil {
		return err
	}
	if rule != nil && rule.Block {
		s.logger.Info("email blocked by sender rule",
			zap.String("provider_id", req.ProviderID),
			zap.String("sender", msg.From.Email))
		if s.metrics != nil {
			s.metrics.IngestBlocked.Inc()
		}
		return nil
	}

	// 提取正文、图片与附件
	extracted := s.extractor.Extract(msg)
	content := mail.Preprocess(extracted.PlainText)

	// 规则指定类别时仍调用 LLM，摘要与重要性不可省
	categories, err := s.categories.ResolveCategories(account.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve categories: %w", err)
	}

	classifyStart := time.Now()
	result, err := s.classifier.Classify(ctx, llm.ClassifyRequest{
		From:            msg.From,
		Subject:         msg.Subject,
		Body:            content,
		UserDescription: account.UserDescription,
		Categories:      categories,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordClassifyFailure(classifyFailureKind(err))
		}
		return fmt.Errorf("classification failed: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordClassify(string(DeterminePriority(result.Importance)), time.Since(classifyStart))
	}

	categoryID := s.resolveCategoryID(result.Topic, categories)
	if rule != nil && rule.CategoryID != nil {
		// 规则覆盖 LLM 的主题判定
		categoryID = *rule.CategoryID
	}

	if sender == nil {
		sender, err = s.createSender(msg.From)
		if err != nil {
			return err
		}
	}

	email := s.buildEmail(account, msg, extracted, content, result, categoryID, sender)

	if err := s.store.CreateEmail(email); err != nil {
		if errors.Is(err, storage.ErrEmailExists) {
			// 并发投递竞争落败，等价成功
			return nil
		}
		return fmt.Errorf("failed to persist email: %w", err)
	}

	// 统计为尽力而为，失败不回滚邮件
	delta := domain.StatisticsFromEmail(email)
	delta.ID = uuid.New().String()
	if err := s.store.ApplyStatisticsDelta(account.UserID, &delta); err != nil {
		s.logger.Warn("failed to update statistics",
			zap.String("user_id", account.UserID),
			zap.Error(err))
	}

	s.logger.Info("email ingested",
		zap.String("provider_id", req.ProviderID),
		zap.String("user_id", account.UserID),
		zap.String("priority", string(email.Priority)),
		zap.String("topic", result.Topic))
	return nil
}

// resolveSenderRule 查找已知发件人及其规则，二者都可能不存在
func (s *IngestService) resolveSenderRule(userID string, from domain.NameEmail) (*domain.Sender, *domain.Rule, error) {
	sender, err := s.store.GetSenderByEmail(from.Email)
	if err != nil {
		if errors.Is(err, storage.ErrSenderNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to look up sender: %w", err)
	}

	rule, err := s.store.GetRuleBySender(userID, sender.ID)
	if err != nil {
		if errors.Is(err, storage.ErrRuleNotFound) {
			return sender, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to look up sender rule: %w", err)
	}
	return sender, rule, nil
}

// createSender 惰性创建发件人，无名发件人以地址代名
func (s *IngestService) createSender(from domain.NameEmail) (*domain.Sender, error) {
	name := from.Name
	if name == "" {
		name = from.Email
	}

	sender := &domain.Sender{
		ID:    uuid.New().String(),
		Email: from.Email,
		Name:  name,
	}
	if err := s.store.SaveSender(sender); err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}
	return sender, nil
}

// resolveCategoryID 话题名到类别 ID 的映射，未命中时落到兜底类别
func (s *IngestService) resolveCategoryID(topic string, categories []domain.Category) string {
	fallbackID := ""
	for _, cat := range categories {
		if cat.Name == topic {
			return cat.ID
		}
		if cat.IsDefault() {
			fallbackID = cat.ID
		}
	}
	return fallbackID
}

// buildEmail 组装待落库的邮件聚合
func (s *IngestService) buildEmail(
	account *domain.MailAccount,
	msg *domain.RawMessage,
	extracted *mail.ExtractResult,
	content string,
	result *domain.ClassificationResult,
	categoryID string,
	sender *domain.Sender,
) *domain.Email {
	emailID := uuid.New().String()

	email := &domain.Email{
		ID:             emailID,
		UserID:         account.UserID,
		AccountID:      account.ID,
		ProviderID:     msg.ProviderID,
		Provider:       msg.Provider,
		Subject:        msg.Subject,
		OneLineSummary: result.Summary.OneLine,
		ShortSummary:   joinBullets(result.Summary.Bullets),
		Content:        content,
		HTMLContent:    extracted.SafeHTML,
		Priority:       DeterminePriority(result.Importance),
		SenderID:       sender.ID,
		CategoryID:     categoryID,
		SentDate:       msg.SentDate,
		WebLink:        msg.WebLink,
		HasAttachments: extracted.HasAttachments,
		Answer:         result.Response,
		Relevance:      result.Relevance,
		Spam:           result.Flags.Spam,
		Scam:           result.Flags.Scam,
		Newsletter:     result.Flags.Newsletter,
		Notification:   result.Flags.Notification,
		Meeting:        result.Flags.Meeting,
		CreatedAt:      time.Now().UTC(),
	}

	for i, bullet := range result.Summary.Bullets {
		email.BulletPoints = append(email.BulletPoints, domain.BulletPoint{
			ID:       uuid.New().String(),
			EmailID:  emailID,
			Position: i,
			Content:  bullet,
		})
	}

	for _, cc := range msg.CC {
		email.Recipients = append(email.Recipients, domain.Recipient{
			ID:      uuid.New().String(),
			EmailID: emailID,
			Kind:    domain.RecipientCC,
			Name:    cc.Name,
			Address: cc.Email,
		})
	}
	for _, bcc := range msg.BCC {
		email.Recipients = append(email.Recipients, domain.Recipient{
			ID:      uuid.New().String(),
			EmailID: emailID,
			Kind:    domain.RecipientBCC,
			Name:    bcc.Name,
			Address: bcc.Email,
		})
	}

	for _, att := range extracted.Attachments {
		email.Attachments = append(email.Attachments, domain.Attachment{
			ID:                   uuid.New().String(),
			EmailID:              emailID,
			Name:                 att.Name,
			ProviderAttachmentID: att.ProviderID,
		})
	}

	for _, path := range extracted.Pictures {
		email.Pictures = append(email.Pictures, domain.Picture{
			ID:      uuid.New().String(),
			EmailID: emailID,
			Path:    path,
		})
	}

	return email
}

// alertIngestFailure 摄取链路连续失败时触发告警
func (s *IngestService) alertIngestFailure(req IngestRequest, err error) {
	if s.alerts == nil {
		return
	}
	s.alerts.TriggerAlert(&monitoring.Alert{
		ID:        "ingest-failure-" + req.ProviderID,
		Title:     "Email ingestion failed",
		Message:   fmt.Sprintf("failed to ingest message %s after %d attempts: %v", req.ProviderID, maxIngestAttempts, err),
		Level:     monitoring.AlertLevelCritical,
		Component: "ingest",
		Timestamp: time.Now().UTC(),
		Metadata: map[string]interface{}{
			"provider_id": req.ProviderID,
			"account":     req.AccountEmail,
		},
	})
}

// classifyFailureKind 区分格式错误与传输错误，用于失败指标打标
func classifyFailureKind(err error) string {
	var malformedErr *llm.MalformedResponseError
	if errors.As(err, &malformedErr) {
		return "malformed"
	}
	return "transport"
}

// joinBullets 将要点列表拼接为短摘要文本
func joinBullets(bullets []string) string {
	joined := ""
	for i, bullet := range bullets {
		if i > 0 {
			joined += "\n"
		}
		joined += "- " + bullet
	}
	return joined
}
