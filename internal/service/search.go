package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/monitoring"
	"aomail/backend/internal/storage"
)

var ErrNoAccounts = errors.New("no linked mail accounts")

// ProviderSearcher 对单个邮箱账户执行服务商侧搜索。
type ProviderSearcher interface {
	SearchMessages(ctx context.Context, account *domain.MailAccount, query domain.ProviderSearchQuery) ([]domain.ProviderSearchHit, error)
}

// SearchService 跨账户扇出搜索服务商邮箱。
type SearchService struct {
	accounts  storage.AccountRepository
	searchers map[domain.EmailProvider]ProviderSearcher
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewSearchService 创建搜索服务。
func NewSearchService(
	accounts storage.AccountRepository,
	searchers map[domain.EmailProvider]ProviderSearcher,
	logger *zap.Logger,
) *SearchService {
	return &SearchService{
		accounts:  accounts,
		searchers: searchers,
		logger:    logger,
	}
}

// SetMetrics 注入监控指标，未注入时不产生指标
func (s *SearchService) SetMetrics(metrics *monitoring.Metrics) {
	s.metrics = metrics
}

// Search 并发查询用户的全部邮箱账户并合并命中。
// 等待全部账户返回；任一账户失败则整次搜索失败，传播首个错误。
func (s *SearchService) Search(ctx context.Context, userID string, query domain.ProviderSearchQuery) ([]domain.ProviderSearchHit, error) {
	accounts, err := s.accounts.ListAccountsByUserID(userID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	start := time.Now()
	var (
		mu   sync.Mutex
		hits []domain.ProviderSearchHit
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := range accounts {
		account := accounts[i]

		searcher, ok := s.searchers[account.Provider]
		if !ok {
			s.logger.Warn("no searcher for provider",
				zap.String("provider", string(account.Provider)))
			continue
		}

		g.Go(func() error {
			accountHits, err := searcher.SearchMessages(gctx, &account, query)
			if err != nil {
				s.logger.Warn("provider search failed",
					zap.String("account", account.Email),
					zap.Error(err))
				return fmt.Errorf("search account %s: %w", account.Email, err)
			}

			mu.Lock()
			hits = append(hits, accountHits...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SearchFanoutDuration.Observe(time.Since(start).Seconds())
	}
	return hits, nil
}
