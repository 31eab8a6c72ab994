package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"aomail/backend/internal/service"
	"aomail/backend/internal/storage"
)

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// createCategory 创建分类
func (h *Handler) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	category, err := h.categories.Create(userID(c), req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNameInvalid):
			BadRequest(c, GetErrorMessage(service.ErrCategoryNameInvalid))
		case errors.Is(err, storage.ErrCategoryExists):
			Conflict(c, GetErrorMessage(storage.ErrCategoryExists))
		default:
			InternalError(c, MsgCategoryCreateFailed)
		}
		return
	}

	Created(c, category)
}

// listCategories 列出分类，保证兜底分类存在
func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.categories.ResolveCategories(userID(c))
	if err != nil {
		InternalError(c, MsgCategoryListFailed)
		return
	}

	Success(c, categories)
}

// updateCategory 更新分类名称与描述
func (h *Handler) updateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	category, err := h.categories.Update(userID(c), c.Param("id"), req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrCategoryNotFound):
			NotFound(c, GetErrorMessage(storage.ErrCategoryNotFound))
		case errors.Is(err, service.ErrDefaultCategory):
			Forbidden(c, GetErrorMessage(service.ErrDefaultCategory))
		case errors.Is(err, service.ErrCategoryNameInvalid):
			BadRequest(c, GetErrorMessage(service.ErrCategoryNameInvalid))
		case errors.Is(err, storage.ErrCategoryExists):
			Conflict(c, GetErrorMessage(storage.ErrCategoryExists))
		default:
			InternalError(c, MsgCategoryUpdateFailed)
		}
		return
	}

	Success(c, category)
}

// deleteCategory 删除分类
func (h *Handler) deleteCategory(c *gin.Context) {
	err := h.categories.Delete(userID(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrCategoryNotFound):
			NotFound(c, GetErrorMessage(storage.ErrCategoryNotFound))
		case errors.Is(err, service.ErrDefaultCategory):
			Forbidden(c, GetErrorMessage(service.ErrDefaultCategory))
		default:
			InternalError(c, MsgCategoryDeleteFailed)
		}
		return
	}

	NoContent(c)
}
