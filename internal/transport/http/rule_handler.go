package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"aomail/backend/internal/service"
	"aomail/backend/internal/storage"
)

// listContacts 列出当前用户有来信的发件人（过滤 no-reply 地址）
func (h *Handler) listContacts(c *gin.Context) {
	contacts, err := h.senders.ListContacts(userID(c))
	if err != nil {
		InternalError(c, MsgContactListFailed)
		return
	}

	Success(c, contacts)
}

type upsertRuleRequest struct {
	SenderID   string  `json:"senderId"`
	Block      bool    `json:"block"`
	CategoryID *string `json:"categoryId"`
}

// upsertRule 创建或覆盖针对某发件人的规则
func (h *Handler) upsertRule(c *gin.Context) {
	var req upsertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	rule, err := h.senders.UpsertRule(service.UpsertRuleInput{
		UserID:     userID(c),
		SenderID:   req.SenderID,
		Block:      req.Block,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSenderRequired):
			BadRequest(c, GetErrorMessage(service.ErrSenderRequired))
		case errors.Is(err, storage.ErrSenderNotFound):
			NotFound(c, GetErrorMessage(storage.ErrSenderNotFound))
		default:
			InternalError(c, MsgRuleSaveFailed)
		}
		return
	}

	Success(c, rule)
}

// listRules 列出当前用户的全部规则
func (h *Handler) listRules(c *gin.Context) {
	rules, err := h.senders.ListRules(userID(c))
	if err != nil {
		InternalError(c, MsgRuleListFailed)
		return
	}

	Success(c, rules)
}

// deleteRule 删除规则
func (h *Handler) deleteRule(c *gin.Context) {
	if err := h.senders.DeleteRule(userID(c), c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrRuleNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrRuleNotFound))
			return
		}
		InternalError(c, MsgRuleDeleteFailed)
		return
	}

	NoContent(c)
}
