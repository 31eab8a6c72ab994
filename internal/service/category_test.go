package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/storage/memory"
)

func TestCategoryService_ResolveCategoriesCreatesFallback(t *testing.T) {
	store := memory.NewStore()
	svc := NewCategoryService(store)

	categories, err := svc.ResolveCategories("user-1")
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, domain.DefaultCategoryName, categories[0].Name)
	assert.Equal(t, domain.DefaultCategoryDescription, categories[0].Description)

	// 再次解析不重复创建
	categories, err = svc.ResolveCategories("user-1")
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestCategoryService_ResolveCategoriesFixesDefaultDescription(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.CreateCategory(&domain.Category{
		ID:          "cat-default",
		UserID:      "user-1",
		Name:        domain.DefaultCategoryName,
		Description: "tampered description",
		CreatedAt:   time.Now().UTC(),
	}))

	categories, err := NewCategoryService(store).ResolveCategories("user-1")
	require.NoError(t, err)
	require.Len(t, categories, 1)

	// 兜底类别描述被覆盖为固定值
	assert.Equal(t, domain.DefaultCategoryDescription, categories[0].Description)
}

func TestCategoryService_DefaultCategoryProtected(t *testing.T) {
	store := memory.NewStore()
	svc := NewCategoryService(store)

	categories, err := svc.ResolveCategories("user-1")
	require.NoError(t, err)
	defaultID := categories[0].ID

	err = svc.Delete("user-1", defaultID)
	assert.ErrorIs(t, err, ErrDefaultCategory)

	_, err = svc.Update("user-1", defaultID, "Renamed", "")
	assert.ErrorIs(t, err, ErrDefaultCategory)
}

func TestCategoryService_CreateValidatesName(t *testing.T) {
	svc := NewCategoryService(memory.NewStore())

	_, err := svc.Create("user-1", "", "empty name")
	assert.ErrorIs(t, err, ErrCategoryNameInvalid)

	category, err := svc.Create("user-1", "Work", "Work related emails")
	require.NoError(t, err)
	assert.NotEmpty(t, category.ID)
}

func TestSenderService_ListContactsSkipsNoReply(t *testing.T) {
	store := memory.NewStore()

	require.NoError(t, store.SaveSender(&domain.Sender{ID: "s1", Email: "alice@corp.test", Name: "Alice"}))
	require.NoError(t, store.SaveSender(&domain.Sender{ID: "s2", Email: "no-reply@vendor.test", Name: "Vendor"}))

	for i, senderID := range []string{"s1", "s2"} {
		email := newContactEmail(i, senderID)
		require.NoError(t, store.CreateEmail(email))
	}

	contacts, err := NewSenderService(store, store).ListContacts("user-1")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "alice@corp.test", contacts[0].Email)
}

func newContactEmail(n int, senderID string) *domain.Email {
	return &domain.Email{
		ID:         "email-" + senderID,
		UserID:     "user-1",
		ProviderID: "provider-" + senderID,
		SenderID:   senderID,
		SentDate:   time.Now().UTC().Add(-time.Duration(n) * time.Hour),
	}
}

func TestSenderService_UpsertRuleIsIdempotentPerSender(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.SaveSender(&domain.Sender{ID: "s1", Email: "alice@corp.test"}))

	svc := NewSenderService(store, store)

	rule, err := svc.UpsertRule(UpsertRuleInput{UserID: "user-1", SenderID: "s1", Block: true})
	require.NoError(t, err)

	categoryID := "cat-1"
	updated, err := svc.UpsertRule(UpsertRuleInput{
		UserID:     "user-1",
		SenderID:   "s1",
		Block:      false,
		CategoryID: &categoryID,
	})
	require.NoError(t, err)

	// 同一发件人只有一条规则，后写覆盖前写
	assert.Equal(t, rule.ID, updated.ID)
	rules, err := svc.ListRules("user-1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.False(t, rules[0].Block)
	require.NotNil(t, rules[0].CategoryID)
	assert.Equal(t, "cat-1", *rules[0].CategoryID)
}
