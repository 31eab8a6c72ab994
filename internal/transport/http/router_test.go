package httptransport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	jwtpkg "aomail/backend/internal/auth/jwt"
	"aomail/backend/internal/config"
	"aomail/backend/internal/domain"
	"aomail/backend/internal/service"
	"aomail/backend/internal/storage/memory"
)

const testUserID = "user-1"

// syncPool 同步执行提交的任务，便于断言副作用
type syncPool struct {
	mu   sync.Mutex
	full bool
	runs int
}

func (p *syncPool) TrySubmit(task func(ctx context.Context)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.full {
		return false
	}
	p.runs++
	task(context.Background())
	return true
}

// recordingIngestor 记录收到的摄取请求
type recordingIngestor struct {
	mu       sync.Mutex
	requests []service.IngestRequest
}

func (r *recordingIngestor) Ingest(ctx context.Context, req service.IngestRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return nil
}

// stubHistoryLister 返回固定的新消息列表
type stubHistoryLister struct {
	ids []string
}

func (s *stubHistoryLister) ListNewMessageIDs(ctx context.Context, account *domain.MailAccount, historyID uint64) ([]string, error) {
	return s.ids, nil
}

// stubSearcher 返回固定命中
type stubSearcher struct {
	hits []domain.ProviderSearchHit
}

func (s *stubSearcher) SearchMessages(ctx context.Context, account *domain.MailAccount, query domain.ProviderSearchQuery) ([]domain.ProviderSearchHit, error) {
	return s.hits, nil
}

type routerFixture struct {
	router   *gin.Engine
	store    *memory.Store
	token    string
	ingestor *recordingIngestor
	gmail    *stubHistoryLister
	pool     *syncPool
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	logger := zap.NewNop()

	require.NoError(t, store.CreateUser(&domain.User{ID: testUserID, Email: "user@corp.test"}))
	require.NoError(t, store.SaveAccount(&domain.MailAccount{
		ID:             "acct-1",
		UserID:         testUserID,
		Provider:       domain.ProviderGoogle,
		Email:          "user@corp.test",
		SubscriptionID: "sub-1",
	}))

	manager := jwtpkg.NewManager("test-secret-key-32-chars-long-minimum!!", "aomail")
	token, err := manager.Sign(testUserID, "user@corp.test", time.Hour)
	require.NoError(t, err)

	ingestor := &recordingIngestor{}
	gmail := &stubHistoryLister{ids: []string{"gm-1", "gm-2"}}
	taskPool := &syncPool{}

	webhooks := NewWebhookHandler(ingestor, gmail, store, taskPool, logger)

	router := NewRouter(RouterDependencies{
		Config: &config.Config{
			CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
			Log:  config.LogConfig{Development: true},
		},
		EmailService:    service.NewEmailService(store, logger),
		CategoryService: service.NewCategoryService(store),
		SenderService:   service.NewSenderService(store, store),
		SearchService: service.NewSearchService(store, map[domain.EmailProvider]service.ProviderSearcher{
			domain.ProviderGoogle: &stubSearcher{hits: []domain.ProviderSearchHit{{
				AccountEmail: "user@corp.test",
				Provider:     domain.ProviderGoogle,
				ProviderID:   "gm-1",
				Subject:      "Invoice overdue",
				From:         "billing@corp.test",
			}}},
		}, logger),
		StatisticsService: service.NewStatisticsService(store),
		Store:             store,
		JWTManager:        manager,
		Webhooks:          webhooks,
		Metrics:           nil,
		Logger:            logger,
	})

	return &routerFixture{
		router:   router,
		store:    store,
		token:    token,
		ingestor: ingestor,
		gmail:    gmail,
		pool:     taskPool,
	}
}

func (f *routerFixture) do(t *testing.T, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func (f *routerFixture) seedEmail(t *testing.T, subject string) *domain.Email {
	t.Helper()
	email := &domain.Email{
		ID:         uuid.New().String(),
		UserID:     testUserID,
		ProviderID: uuid.New().String(),
		Provider:   domain.ProviderGoogle,
		Subject:    subject,
		Priority:   domain.PriorityImportant,
		SentDate:   time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateEmail(email))
	return email
}

func TestRouterRequiresAuth(t *testing.T) {
	f := newRouterFixture(t)

	recorder := f.do(t, http.MethodGet, "/v1/emails", nil, false)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestListAndGetEmails(t *testing.T) {
	f := newRouterFixture(t)
	email := f.seedEmail(t, "Quarterly report")

	recorder := f.do(t, http.MethodGet, "/v1/emails?priority=important", nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)

	var listResp struct {
		Data domain.EmailSearchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listResp))
	require.Len(t, listResp.Data.Emails, 1)
	assert.Equal(t, "Quarterly report", listResp.Data.Emails[0].Subject)

	recorder = f.do(t, http.MethodGet, "/v1/emails/"+email.ID, nil, true)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = f.do(t, http.MethodGet, "/v1/emails/missing", nil, true)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = f.do(t, http.MethodGet, "/v1/emails?priority=bogus", nil, true)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestEmailLifecycleEndpoints(t *testing.T) {
	f := newRouterFixture(t)
	email := f.seedEmail(t, "Standup notes")

	recorder := f.do(t, http.MethodPost, "/v1/emails/"+email.ID+"/read", nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)

	stored, err := f.store.GetEmail(testUserID, email.ID)
	require.NoError(t, err)
	assert.True(t, stored.Read)
	require.NotNil(t, stored.ReadDate)

	recorder = f.do(t, http.MethodPost, "/v1/emails/"+email.ID+"/archive", archiveRequest{Archived: true}, true)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = f.do(t, http.MethodDelete, "/v1/emails/"+email.ID, nil, true)
	require.Equal(t, http.StatusNoContent, recorder.Code)

	_, err = f.store.GetEmail(testUserID, email.ID)
	assert.Error(t, err)
}

func TestCategoryEndpoints(t *testing.T) {
	f := newRouterFixture(t)

	recorder := f.do(t, http.MethodPost, "/v1/categories", categoryRequest{Name: "Work", Description: "Work related"}, true)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var created struct {
		Data domain.Category `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))

	// 列表保证兜底分类存在
	recorder = f.do(t, http.MethodGet, "/v1/categories", nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	var listed struct {
		Data []domain.Category `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listed))
	names := make([]string, 0, len(listed.Data))
	for _, cat := range listed.Data {
		names = append(names, cat.Name)
	}
	assert.Contains(t, names, domain.DefaultCategoryName)
	assert.Contains(t, names, "Work")

	// 同名冲突
	recorder = f.do(t, http.MethodPost, "/v1/categories", categoryRequest{Name: "Work"}, true)
	assert.Equal(t, http.StatusConflict, recorder.Code)

	// 默认分类不可删除
	var defaultID string
	for _, cat := range listed.Data {
		if cat.Name == domain.DefaultCategoryName {
			defaultID = cat.ID
		}
	}
	recorder = f.do(t, http.MethodDelete, "/v1/categories/"+defaultID, nil, true)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = f.do(t, http.MethodDelete, "/v1/categories/"+created.Data.ID, nil, true)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestRuleEndpoints(t *testing.T) {
	f := newRouterFixture(t)

	sender := &domain.Sender{ID: "sender-1", Email: "alice@corp.test", Name: "Alice"}
	require.NoError(t, f.store.SaveSender(sender))

	recorder := f.do(t, http.MethodPost, "/v1/rules", upsertRuleRequest{SenderID: "sender-1", Block: true}, true)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = f.do(t, http.MethodPost, "/v1/rules", upsertRuleRequest{SenderID: "missing"}, true)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = f.do(t, http.MethodGet, "/v1/rules", nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	var listed struct {
		Data []domain.Rule `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.True(t, listed.Data[0].Block)

	recorder = f.do(t, http.MethodDelete, "/v1/rules/"+listed.Data[0].ID, nil, true)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestGoogleWebhookSubmitsIngestion(t *testing.T) {
	f := newRouterFixture(t)

	payload := base64.StdEncoding.EncodeToString([]byte(`{"emailAddress":"user@corp.test","historyId":42}`))
	body := fmt.Sprintf(`{"message":{"data":%q,"messageId":"m-1"}}`, payload)

	req := httptest.NewRequest(http.MethodPost, "/webhook/google", bytes.NewReader([]byte(body)))
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, f.ingestor.requests, 2)
	assert.Equal(t, "gm-1", f.ingestor.requests[0].ProviderID)
	assert.Equal(t, domain.ProviderGoogle, f.ingestor.requests[0].Provider)
	assert.Equal(t, "user@corp.test", f.ingestor.requests[0].AccountEmail)
}

func TestGoogleWebhookUnknownAccountStillOK(t *testing.T) {
	f := newRouterFixture(t)

	payload := base64.StdEncoding.EncodeToString([]byte(`{"emailAddress":"stranger@corp.test","historyId":42}`))
	body := fmt.Sprintf(`{"message":{"data":%q}}`, payload)

	req := httptest.NewRequest(http.MethodPost, "/webhook/google", bytes.NewReader([]byte(body)))
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, f.ingestor.requests)
}

func TestGoogleWebhookQueueFull(t *testing.T) {
	f := newRouterFixture(t)
	f.pool.full = true

	payload := base64.StdEncoding.EncodeToString([]byte(`{"emailAddress":"user@corp.test","historyId":42}`))
	body := fmt.Sprintf(`{"message":{"data":%q}}`, payload)

	req := httptest.NewRequest(http.MethodPost, "/webhook/google", bytes.NewReader([]byte(body)))
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)

	// 队列满时交给 Pub/Sub 重投
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestMicrosoftWebhookValidationHandshake(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/microsoft?validationToken=token-123", nil)
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "token-123", recorder.Body.String())
}

func TestMicrosoftWebhookSubmitsIngestion(t *testing.T) {
	f := newRouterFixture(t)

	body := `{"value":[{"subscriptionId":"sub-1","changeType":"created","resourceData":{"id":"graph-9"}}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/microsoft", bytes.NewReader([]byte(body)))
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, f.ingestor.requests, 1)
	assert.Equal(t, "graph-9", f.ingestor.requests[0].ProviderID)
	assert.Equal(t, domain.ProviderMicrosoft, f.ingestor.requests[0].Provider)
}

func TestSearchEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	// 空条件拒绝
	recorder := f.do(t, http.MethodPost, "/v1/search", searchRequest{}, true)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = f.do(t, http.MethodPost, "/v1/search", searchRequest{Keywords: []string{"invoice"}}, true)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Data searchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Data.Count)
	assert.Equal(t, "Invoice overdue", resp.Data.Hits[0].Subject)
}

func TestListContactsEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	sender := &domain.Sender{ID: "sender-7", Email: "bob@corp.test", Name: "Bob"}
	require.NoError(t, f.store.SaveSender(sender))

	email := &domain.Email{
		ID:         uuid.New().String(),
		UserID:     testUserID,
		ProviderID: uuid.New().String(),
		Provider:   domain.ProviderGoogle,
		SenderID:   sender.ID,
		Subject:    "Hello",
		Priority:   domain.PriorityInformative,
		SentDate:   time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateEmail(email))

	recorder := f.do(t, http.MethodGet, "/v1/senders", nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Data []domain.Sender `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "bob@corp.test", resp.Data[0].Email)
}

func TestStatisticsEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	recorder := f.do(t, http.MethodGet, "/v1/statistics", nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Data domain.Statistics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, testUserID, resp.Data.UserID)
}

func TestListAccountsEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	recorder := f.do(t, http.MethodGet, "/v1/profile/accounts", nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Data []accountResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "user@corp.test", resp.Data[0].Email)
	assert.Empty(t, resp.Data[0].UserDescription)
}
