package httptransport

import (
	"aomail/backend/internal/service"
	"aomail/backend/internal/storage"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// Email 错误
	storage.ErrEmailNotFound: "邮件不存在",
	storage.ErrEmailExists:   "邮件已存在",

	// Category 错误
	storage.ErrCategoryNotFound:    "分类不存在",
	storage.ErrCategoryExists:      "同名分类已存在",
	service.ErrCategoryNameInvalid: "分类名称格式无效",
	service.ErrDefaultCategory:     "默认分类不允许修改或删除",

	// Sender / Rule 错误
	storage.ErrSenderNotFound: "发件人不存在",
	storage.ErrRuleNotFound:   "规则不存在",
	service.ErrSenderRequired: "必须指定发件人",

	// Account 错误
	storage.ErrAccountNotFound: "邮箱账户不存在",
	storage.ErrUserNotFound:    "用户不存在",
	service.ErrNoAccounts:      "尚未关联任何邮箱账户",
	service.ErrUnknownProvider: "不支持的邮箱服务商",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest = "请求参数格式错误"

	// 邮件相关
	MsgEmailListFailed   = "获取邮件列表失败"
	MsgEmailGetFailed    = "获取邮件详情失败"
	MsgEmailUpdateFailed = "更新邮件状态失败"
	MsgEmailDeleteFailed = "删除邮件失败"

	// 分类相关
	MsgCategoryCreateFailed = "创建分类失败"
	MsgCategoryListFailed   = "获取分类列表失败"
	MsgCategoryUpdateFailed = "更新分类失败"
	MsgCategoryDeleteFailed = "删除分类失败"

	// 联系人与规则相关
	MsgContactListFailed = "获取联系人列表失败"
	MsgRuleSaveFailed    = "保存规则失败"
	MsgRuleListFailed    = "获取规则列表失败"
	MsgRuleDeleteFailed  = "删除规则失败"

	// 搜索与统计相关
	MsgSearchFailed     = "搜索失败"
	MsgStatisticsFailed = "获取统计信息失败"
	MsgProfileGetFailed = "获取账户信息失败"

	// Webhook 相关
	MsgInvalidNotification = "通知载荷格式错误"
)
