package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/monitoring"
)

// 分类提示词模板。所有枚举值在模板内闭合列出，
// 模型只能从中选择，解析阶段会校验成员资格。
const classifyPromptTemplate = `You are a smart email assistant acting as if you were a secretary, summarizing an email for the recipient orally.

Given the following email:

Sender:
%s

Subject:
%s

Text:
%s

User description:
%s

Using the provided categories:

Topic Categories:
%s

Importance Categories:
- UrgentWorkInformation: Critical updates or information requiring immediate attention related to projects, deadlines, or time-sensitive matters.
- RoutineWorkUpdates: Regular updates or communications important for work but not requiring immediate action, such as team updates or general announcements.
- InternalCommunications: Internal company matters including policy updates, HR announcements, or events.
- Promotional: Messages that contain offers, deals, or advertisements from services, stores, or subscriptions the user has interacted with.
- News: Messages that contain information not related to work, insights, news, often with options to subscribe or unsubscribe.

Response Categories:
- Answer Required: Message requires an answer.
- Might Require Answer: Message might require an answer.
- No Answer Required: No answer is required.

Relevance Categories:
- Highly Relevant: Message is highly relevant to the recipient.
- Possibly Relevant: Message might be relevant to the recipient.
- Not Relevant: Message is not relevant to the recipient.

Complete the following tasks in the same language used in the email:
1. Categorize the email by topic according to the user description (if provided) and the given categories. You need to be sure of the choice made; if you hesitate put it in the Others category.
2. Estimate the importance distribution of the email as integer percentages over the five Importance Categories.
3. Pick exactly one Response Category and one Relevance Category from the lists above.
4. Summarize the email without adding any greetings. If the email appears to be a response or a conversation, summarize only the last email and IGNORE the previous ones.
5. Provide up to 5 short bullet points WITHOUT making any judgment or interpretation. They should be clear and as short as possible. Do NOT add any redundant information and SPEAK ONLY about the content, NOT about the name of the sender or greetings.
6. Provide a short sentence (up to 10 words) summarizing the core content of the email.
7. The summary should objectively reflect the most important information of the email without making subjective judgments.

---
Answer must ONLY be a JSON object matching this template WITHOUT giving any explanation:
{
    "topic": Selected Topic Category,
    "response": Selected Response Category,
    "relevance": Selected Relevance Category,
    "importance": {
        "UrgentWorkInformation": Percentage,
        "RoutineWorkUpdates": Percentage,
        "InternalCommunications": Percentage,
        "Promotional": Percentage,
        "News": Percentage
    },
    "flags": {
        "spam": bool,
        "scam": bool,
        "newsletter": bool,
        "notification": bool,
        "meeting": bool
    },
    "summary": {
        "one_line": One sentence summary,
        "short": [
            "Short Bullet Point 1",
            "Short Bullet Point 2"
        ]
    }
}`

// ClassifyRequest 单次分类调用的输入。
type ClassifyRequest struct {
	From            domain.NameEmail  // 发件人
	Subject         string            // 邮件主题
	Body            string            // 清洗后的纯文本正文
	UserDescription string            // 用户自述，可为空
	Categories      []domain.Category // 候选话题类别，必须含默认类别
}

// Classifier 负责构造提示词、调用 LLM 并解析分类结果。
type Classifier struct {
	client  ChatClient
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewClassifier 创建分类器
func NewClassifier(client ChatClient, logger *zap.Logger) *Classifier {
	return &Classifier{
		client: client,
		logger: logger,
	}
}

// SetMetrics 注入监控指标，未注入时不产生指标
func (c *Classifier) SetMetrics(metrics *monitoring.Metrics) {
	c.metrics = metrics
}

// BuildPrompt 渲染分类提示词
func (c *Classifier) BuildPrompt(req ClassifyRequest) string {
	sender := req.From.Email
	if req.From.Name != "" {
		sender = fmt.Sprintf("%s <%s>", req.From.Name, req.From.Email)
	}

	var categories strings.Builder
	for _, cat := range req.Categories {
		fmt.Fprintf(&categories, "- %s: %s\n", cat.Name, cat.Description)
	}

	userDescription := req.UserDescription
	if userDescription == "" {
		userDescription = "(not provided)"
	}

	return fmt.Sprintf(classifyPromptTemplate,
		sender,
		req.Subject,
		req.Body,
		userDescription,
		strings.TrimRight(categories.String(), "\n"),
	)
}

// Classify 执行一次分类调用。
//
// 模型输出格式非法时返回 ErrMalformedResponse（可重试），
// 话题不在候选类别内时回退到默认类别并记录日志。
func (c *Classifier) Classify(ctx context.Context, req ClassifyRequest) (*domain.ClassificationResult, error) {
	prompt := c.BuildPrompt(req)

	raw, err := c.client.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm call failed: %w", err)
	}

	result, err := parseClassification(raw)
	if err != nil {
		return nil, err
	}

	if !topicAllowed(result.Topic, req.Categories) {
		c.logger.Warn("llm returned unknown topic, falling back to default category",
			zap.String("topic", result.Topic))
		if c.metrics != nil {
			c.metrics.ClassifyFallbacks.Inc()
		}
		result.Topic = domain.DefaultCategoryName
	}
	return result, nil
}

// topicAllowed 判断话题是否在候选类别内
func topicAllowed(topic string, categories []domain.Category) bool {
	for _, cat := range categories {
		if cat.Name == topic {
			return true
		}
	}
	return false
}
