package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/storage/memory"
)

func TestEmailService_SweepReadEmails(t *testing.T) {
	store := memory.NewStore()
	svc := NewEmailService(store, zap.NewNop())

	// 一封读了很久的邮件
	old := &domain.Email{
		ID:         "email-old",
		UserID:     "user-1",
		ProviderID: "p-old",
		SentDate:   time.Now().UTC().Add(-30 * 24 * time.Hour),
	}
	require.NoError(t, store.CreateEmail(old))
	require.NoError(t, store.MarkEmailRead("user-1", "email-old", true))
	// 回拨阅读时间到保留窗口之外
	readLongAgo := time.Now().UTC().Add(-8 * 24 * time.Hour)
	require.NoError(t, backdateRead(store, "user-1", "email-old", readLongAgo))

	// 一封刚读的邮件
	recent := &domain.Email{
		ID:         "email-recent",
		UserID:     "user-1",
		ProviderID: "p-recent",
		SentDate:   time.Now().UTC(),
	}
	require.NoError(t, store.CreateEmail(recent))
	require.NoError(t, store.MarkEmailRead("user-1", "email-recent", true))

	count, err := svc.SweepReadEmails()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.GetEmail("user-1", "email-old")
	assert.Error(t, err)

	_, err = store.GetEmail("user-1", "email-recent")
	assert.NoError(t, err)
}

// backdateRead 将已读时间改写到过去，模拟历史已读邮件
func backdateRead(store *memory.Store, userID, emailID string, readAt time.Time) error {
	email, err := store.GetEmail(userID, emailID)
	if err != nil {
		return err
	}
	if !email.Read {
		return errors.New("email is not read")
	}
	// 内存存储没有直接的时间改写入口，重建记录
	if err := store.DeleteEmail(userID, emailID); err != nil {
		return err
	}
	email.ReadDate = &readAt
	return store.CreateEmail(email)
}

func TestSearchService_FanOutMergesHits(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.SaveAccount(&domain.MailAccount{
		ID: "acc-1", UserID: "user-1", Provider: domain.ProviderGoogle, Email: "a@corp.test",
	}))
	require.NoError(t, store.SaveAccount(&domain.MailAccount{
		ID: "acc-2", UserID: "user-1", Provider: domain.ProviderMicrosoft, Email: "b@corp.test",
	}))

	google := &stubSearcher{hits: []domain.ProviderSearchHit{
		{AccountEmail: "a@corp.test", Provider: domain.ProviderGoogle, ProviderID: "g-1"},
	}}
	microsoft := &stubSearcher{hits: []domain.ProviderSearchHit{
		{AccountEmail: "b@corp.test", Provider: domain.ProviderMicrosoft, ProviderID: "m-1"},
	}}

	svc := NewSearchService(store, map[domain.EmailProvider]ProviderSearcher{
		domain.ProviderGoogle:    google,
		domain.ProviderMicrosoft: microsoft,
	}, zap.NewNop())

	hits, err := svc.Search(context.Background(), "user-1", domain.ProviderSearchQuery{Keywords: []string{"report"}})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchService_PartialFailureTolerated(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.SaveAccount(&domain.MailAccount{
		ID: "acc-1", UserID: "user-1", Provider: domain.ProviderGoogle, Email: "a@corp.test",
	}))
	require.NoError(t, store.SaveAccount(&domain.MailAccount{
		ID: "acc-2", UserID: "user-1", Provider: domain.ProviderMicrosoft, Email: "b@corp.test",
	}))

	google := &stubSearcher{hits: []domain.ProviderSearchHit{
		{AccountEmail: "a@corp.test", Provider: domain.ProviderGoogle, ProviderID: "g-1"},
	}}
	microsoft := &stubSearcher{err: errors.New("graph unavailable")}

	svc := NewSearchService(store, map[domain.EmailProvider]ProviderSearcher{
		domain.ProviderGoogle:    google,
		domain.ProviderMicrosoft: microsoft,
	}, zap.NewNop())

	hits, err := svc.Search(context.Background(), "user-1", domain.ProviderSearchQuery{})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearchService_NoAccounts(t *testing.T) {
	svc := NewSearchService(memory.NewStore(), nil, zap.NewNop())

	_, err := svc.Search(context.Background(), "user-1", domain.ProviderSearchQuery{})
	assert.ErrorIs(t, err, ErrNoAccounts)
}

type stubSearcher struct {
	hits []domain.ProviderSearchHit
	err  error
}

func (s *stubSearcher) SearchMessages(_ context.Context, _ *domain.MailAccount, _ domain.ProviderSearchQuery) ([]domain.ProviderSearchHit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}
