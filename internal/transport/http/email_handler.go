package httptransport

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/storage"
)

// listEmails 按条件分页列出当前用户的邮件
func (h *Handler) listEmails(c *gin.Context) {
	criteria := domain.EmailSearchCriteria{
		UserID:     userID(c),
		CategoryID: c.Query("categoryId"),
		Query:      c.Query("q"),
	}

	if priority := c.Query("priority"); priority != "" {
		switch domain.Priority(priority) {
		case domain.PriorityImportant, domain.PriorityInformative, domain.PriorityUseless:
			criteria.Priority = domain.Priority(priority)
		default:
			BadRequest(c, MsgInvalidRequest)
			return
		}
	}

	if read := c.Query("read"); read != "" {
		value, err := strconv.ParseBool(read)
		if err != nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		criteria.Read = &value
	}

	if archived := c.Query("archived"); archived != "" {
		value, err := strconv.ParseBool(archived)
		if err != nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		criteria.Archived = &value
	}

	criteria.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	criteria.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	result, err := h.emails.List(criteria)
	if err != nil {
		InternalError(c, MsgEmailListFailed)
		return
	}

	Success(c, result)
}

// getEmail 获取单封邮件详情
func (h *Handler) getEmail(c *gin.Context) {
	email, err := h.emails.Get(userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrEmailNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrEmailNotFound))
			return
		}
		InternalError(c, MsgEmailGetFailed)
		return
	}

	Success(c, email)
}

// markEmailRead 标记邮件为已读
func (h *Handler) markEmailRead(c *gin.Context) {
	h.setReadState(c, true)
}

// markEmailUnread 标记邮件为未读
func (h *Handler) markEmailUnread(c *gin.Context) {
	h.setReadState(c, false)
}

func (h *Handler) setReadState(c *gin.Context, read bool) {
	if err := h.emails.MarkRead(userID(c), c.Param("id"), read); err != nil {
		if errors.Is(err, storage.ErrEmailNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrEmailNotFound))
			return
		}
		InternalError(c, MsgEmailUpdateFailed)
		return
	}

	Success(c, gin.H{"read": read})
}

type answerLaterRequest struct {
	AnswerLater bool `json:"answerLater"`
}

// setAnswerLater 切换稍后回复标记
func (h *Handler) setAnswerLater(c *gin.Context) {
	var req answerLaterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.emails.SetAnswerLater(userID(c), c.Param("id"), req.AnswerLater); err != nil {
		if errors.Is(err, storage.ErrEmailNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrEmailNotFound))
			return
		}
		InternalError(c, MsgEmailUpdateFailed)
		return
	}

	Success(c, gin.H{"answerLater": req.AnswerLater})
}

type archiveRequest struct {
	Archived bool `json:"archived"`
}

// archiveEmail 归档或取消归档邮件
func (h *Handler) archiveEmail(c *gin.Context) {
	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.emails.Archive(userID(c), c.Param("id"), req.Archived); err != nil {
		if errors.Is(err, storage.ErrEmailNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrEmailNotFound))
			return
		}
		InternalError(c, MsgEmailUpdateFailed)
		return
	}

	Success(c, gin.H{"archived": req.Archived})
}

// deleteEmail 删除邮件
func (h *Handler) deleteEmail(c *gin.Context) {
	if err := h.emails.Delete(userID(c), c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrEmailNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrEmailNotFound))
			return
		}
		InternalError(c, MsgEmailDeleteFailed)
		return
	}

	NoContent(c)
}
