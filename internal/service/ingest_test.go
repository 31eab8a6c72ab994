package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/llm"
	"aomail/backend/internal/mail"
	"aomail/backend/internal/monitoring"
	"aomail/backend/internal/storage/memory"
)

// fakeFetcher 返回固定报文的 MessageFetcher 测试替身
type fakeFetcher struct {
	msg   *domain.RawMessage
	err   error
	calls int
}

func (f *fakeFetcher) FetchMessage(_ context.Context, _ *domain.MailAccount, _ string) (*domain.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.msg, nil
}

// fakeClassifier 可编程的 Classifier 测试替身
type fakeClassifier struct {
	result *domain.ClassificationResult
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(_ context.Context, _ llm.ClassifyRequest) (*domain.ClassificationResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	clone := *f.result
	return &clone, nil
}

// fakeDeduper 内存去重锁
type fakeDeduper struct {
	held     map[string]bool
	releases int
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{held: make(map[string]bool)}
}

func (f *fakeDeduper) AcquireOnce(_ context.Context, key string) (bool, error) {
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeDeduper) Release(_ context.Context, key string) error {
	delete(f.held, key)
	f.releases++
	return nil
}

// fakeAlertSink 记录触发的告警
type fakeAlertSink struct {
	alerts []*monitoring.Alert
}

func (f *fakeAlertSink) TriggerAlert(alert *monitoring.Alert) {
	f.alerts = append(f.alerts, alert)
}

// nopPictureStore 丢弃图片的 PictureStore
type nopPictureStore struct{}

func (nopPictureStore) SavePicture(filename string, _ []byte) (string, error) {
	return "pictures/" + filename, nil
}

func testRawMessage(providerID string) *domain.RawMessage {
	return &domain.RawMessage{
		ProviderID: providerID,
		Provider:   domain.ProviderGoogle,
		Subject:    "Weekly sync notes",
		From:       domain.NameEmail{Name: "Alice", Email: "alice@corp.test"},
		CC:         []domain.NameEmail{{Name: "Bob", Email: "bob@corp.test"}},
		SentDate:   time.Now().UTC().Add(-time.Hour),
		WebLink:    "https://mail.google.com/mail/u/0/#inbox/" + providerID,
		Payload: &domain.MailPart{
			MimeType: "text/plain",
			Body: domain.MailPartBody{
				Data: "V2VlZGx5IHN5bmMgbm90ZXMgYm9keQ",
			},
		},
	}
}

func testClassification() *domain.ClassificationResult {
	return &domain.ClassificationResult{
		Topic:     "Work",
		Response:  domain.AnswerRequired,
		Relevance: domain.HighlyRelevant,
		Importance: map[string]int{
			domain.BucketUrgentWork: 70,
		},
		Flags: domain.ClassificationFlags{Meeting: true},
		Summary: domain.ClassificationSummary{
			OneLine: "Weekly sync notes shared.",
			Bullets: []string{"Notes from weekly sync", "Action items assigned"},
		},
	}
}

type ingestFixture struct {
	store      *memory.Store
	ingest     *IngestService
	classifier *fakeClassifier
	fetcher    *fakeFetcher
	deduper    *fakeDeduper
	alerts     *fakeAlertSink
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()

	store := memory.NewStore()
	require.NoError(t, store.SaveAccount(&domain.MailAccount{
		ID:       "account-1",
		UserID:   "user-1",
		Provider: domain.ProviderGoogle,
		Email:    "user@corp.test",
	}))
	require.NoError(t, store.CreateCategory(&domain.Category{
		ID:        "cat-work",
		UserID:    "user-1",
		Name:      "Work",
		CreatedAt: time.Now().UTC(),
	}))

	classifier := &fakeClassifier{result: testClassification()}
	fetcher := &fakeFetcher{msg: testRawMessage("msg-1")}
	deduper := newFakeDeduper()
	alerts := &fakeAlertSink{}

	logger := zap.NewNop()
	ingest := NewIngestService(
		store,
		NewCategoryService(store),
		classifier,
		mail.NewExtractor(nopPictureStore{}, logger),
		map[domain.EmailProvider]MessageFetcher{domain.ProviderGoogle: fetcher},
		deduper,
		alerts,
		logger,
	)

	return &ingestFixture{
		store:      store,
		ingest:     ingest,
		classifier: classifier,
		fetcher:    fetcher,
		deduper:    deduper,
		alerts:     alerts,
	}
}

func (f *ingestFixture) request() IngestRequest {
	return IngestRequest{
		AccountEmail: "user@corp.test",
		ProviderID:   "msg-1",
		Provider:     domain.ProviderGoogle,
	}
}

func TestIngest_HappyPath(t *testing.T) {
	f := newIngestFixture(t)

	err := f.ingest.Ingest(context.Background(), f.request())
	require.NoError(t, err)

	result, err := f.store.ListEmails(domain.EmailSearchCriteria{UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)

	email := result.Emails[0]
	assert.Equal(t, "msg-1", email.ProviderID)
	assert.Equal(t, domain.PriorityImportant, email.Priority)
	assert.Equal(t, "cat-work", email.CategoryID)
	assert.Equal(t, domain.AnswerRequired, email.Answer)
	assert.True(t, email.Meeting)
	assert.Equal(t, "Weekly sync notes shared.", email.OneLineSummary)
	assert.NotEmpty(t, email.SenderID)

	// 发件人惰性创建
	sender, err := f.store.GetSenderByEmail("alice@corp.test")
	require.NoError(t, err)
	assert.Equal(t, "Alice", sender.Name)

	// 统计累加
	stats, err := f.store.GetStatistics("user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EmailsReceived)
	assert.Equal(t, 1, stats.EmailsImportant)
	assert.Equal(t, 1, stats.Meeting)
}

func TestIngest_DuplicateDeliveryIsNoOp(t *testing.T) {
	f := newIngestFixture(t)

	require.NoError(t, f.ingest.Ingest(context.Background(), f.request()))

	// 去重锁窗口内的第二次投递不触发任何处理
	require.NoError(t, f.ingest.Ingest(context.Background(), f.request()))
	assert.Equal(t, 1, f.fetcher.calls)
	assert.Equal(t, 1, f.classifier.calls)

	result, err := f.store.ListEmails(domain.EmailSearchCriteria{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
}

func TestIngest_AlreadyStoredIsNoOp(t *testing.T) {
	f := newIngestFixture(t)

	require.NoError(t, f.ingest.Ingest(context.Background(), f.request()))

	// 去重锁失效后的重复投递被存在性检查吸收
	f.deduper.held = map[string]bool{}
	require.NoError(t, f.ingest.Ingest(context.Background(), f.request()))
	assert.Equal(t, 1, f.fetcher.calls)

	result, err := f.store.ListEmails(domain.EmailSearchCriteria{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
}

func TestIngest_BlockedSenderSkipsClassification(t *testing.T) {
	f := newIngestFixture(t)

	require.NoError(t, f.store.SaveSender(&domain.Sender{
		ID:    "sender-1",
		Email: "alice@corp.test",
		Name:  "Alice",
	}))
	require.NoError(t, f.store.SaveRule(&domain.Rule{
		ID:       "rule-1",
		UserID:   "user-1",
		SenderID: "sender-1",
		Block:    true,
	}))

	err := f.ingest.Ingest(context.Background(), f.request())
	require.NoError(t, err)

	// 拦截是成功空操作，LLM 不被调用，不落库
	assert.Equal(t, 0, f.classifier.calls)
	result, err := f.store.ListEmails(domain.EmailSearchCriteria{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
}

func TestIngest_RuleCategoryOverride(t *testing.T) {
	f := newIngestFixture(t)

	require.NoError(t, f.store.CreateCategory(&domain.Category{
		ID:        "cat-forced",
		UserID:    "user-1",
		Name:      "Receipts",
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, f.store.SaveSender(&domain.Sender{
		ID:    "sender-1",
		Email: "alice@corp.test",
	}))
	forced := "cat-forced"
	require.NoError(t, f.store.SaveRule(&domain.Rule{
		ID:         "rule-1",
		UserID:     "user-1",
		SenderID:   "sender-1",
		CategoryID: &forced,
	}))

	require.NoError(t, f.ingest.Ingest(context.Background(), f.request()))

	// LLM 的主题判定被规则覆盖，摘要仍来自 LLM
	assert.Equal(t, 1, f.classifier.calls)
	result, err := f.store.ListEmails(domain.EmailSearchCriteria{UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "cat-forced", result.Emails[0].CategoryID)
}

func TestIngest_RetriesAndAlertsOnPersistentFailure(t *testing.T) {
	f := newIngestFixture(t)
	f.classifier.err = &llm.MalformedResponseError{Reason: "invalid json"}

	err := f.ingest.Ingest(context.Background(), f.request())
	require.Error(t, err)

	// 整条链路重试三次后告警并释放去重锁
	assert.Equal(t, maxIngestAttempts, f.classifier.calls)
	require.Len(t, f.alerts.alerts, 1)
	assert.Equal(t, monitoring.AlertLevelCritical, f.alerts.alerts[0].Level)
	assert.Equal(t, 1, f.deduper.releases)

	// 锁已释放，修复后的下一次投递可以成功
	f.classifier.err = nil
	require.NoError(t, f.ingest.Ingest(context.Background(), f.request()))
}

func TestIngest_UnknownTopicFallsBackToDefaultCategory(t *testing.T) {
	f := newIngestFixture(t)
	f.classifier.result.Topic = "Nonexistent"

	require.NoError(t, f.ingest.Ingest(context.Background(), f.request()))

	result, err := f.store.ListEmails(domain.EmailSearchCriteria{UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)

	// 未知主题落入兜底类别
	fallback, err := f.store.GetCategoryByName("user-1", domain.DefaultCategoryName)
	require.NoError(t, err)
	assert.Equal(t, fallback.ID, result.Emails[0].CategoryID)
}
