package domain

import (
	"regexp"
	"strings"
)

// emailPattern 宽松的邮箱地址校验（RFC 5322 的实用子集）
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// noReplyPatterns 免回复地址的常见写法
var noReplyPatterns = []string{"no-reply", "donotreply", "noreply", "do-not-reply"}

// ValidateEmailAddress 校验邮箱地址格式是否合法。
func ValidateEmailAddress(address string) bool {
	if len(address) == 0 || len(address) > 320 {
		return false
	}
	return emailPattern.MatchString(address)
}

// IsNoReplyAddress 判断地址是否为免回复地址。
// 免回复地址的发件人不会被保存为联系人。
func IsNoReplyAddress(address string) bool {
	lower := strings.ToLower(address)
	for _, pattern := range noReplyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// ValidateCategoryName 校验分类名称：非空且不超过 50 字符。
func ValidateCategoryName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && len(trimmed) <= 50
}
