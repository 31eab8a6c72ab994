package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/service"
)

type searchRequest struct {
	Keywords   []string `json:"keywords"`
	From       []string `json:"from"`
	Subject    string   `json:"subject"`
	MaxResults int      `json:"maxResults"`
}

type searchResponse struct {
	Hits  []domain.ProviderSearchHit `json:"hits"`
	Count int                        `json:"count"`
}

// searchProviders 在用户关联的所有邮箱账户上并发执行服务商侧搜索
func (h *Handler) searchProviders(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	if len(req.Keywords) == 0 && len(req.From) == 0 && req.Subject == "" {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	hits, err := h.search.Search(c.Request.Context(), userID(c), domain.ProviderSearchQuery{
		Keywords:   req.Keywords,
		From:       req.From,
		Subject:    req.Subject,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoAccounts) {
			BadRequest(c, GetErrorMessage(service.ErrNoAccounts))
			return
		}
		InternalError(c, MsgSearchFailed)
		return
	}

	Success(c, searchResponse{Hits: hits, Count: len(hits)})
}

// getStatistics 返回当前用户的摄取统计
func (h *Handler) getStatistics(c *gin.Context) {
	stats, err := h.stats.Get(userID(c))
	if err != nil {
		InternalError(c, MsgStatisticsFailed)
		return
	}

	Success(c, stats)
}

type accountResponse struct {
	ID              string               `json:"id"`
	Provider        domain.EmailProvider `json:"provider"`
	Email           string               `json:"email"`
	UserDescription string               `json:"userDescription"`
}

// listAccounts 列出当前用户关联的邮箱账户（含分类提示词用的用户自述）
func (h *Handler) listAccounts(c *gin.Context) {
	accounts, err := h.accounts.ListAccountsByUserID(userID(c))
	if err != nil {
		InternalError(c, MsgProfileGetFailed)
		return
	}

	responses := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, accountResponse{
			ID:              account.ID,
			Provider:        account.Provider,
			Email:           account.Email,
			UserDescription: account.UserDescription,
		})
	}

	Success(c, responses)
}
