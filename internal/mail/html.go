package mail

import (
	"regexp"

	"github.com/jaytaylor/html2text"
)

// htmlMarkers 识别 HTML 内容的特征模式（防御误标的 text/plain 部件）
var htmlMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<[a-z]+[^>]*>`),
	regexp.MustCompile(`(?i)</[a-z]+>`),
	regexp.MustCompile(`(?i)&[a-z]+;`),
	regexp.MustCompile(`(?i)<!DOCTYPE html>`),
}

// ContainsHTML 判断文本是否含有 HTML 标签或实体。
func ContainsHTML(text string) bool {
	for _, pattern := range htmlMarkers {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// HTMLToText 将 HTML 转换为可读纯文本。
// 转换失败时原样返回输入，留给上层的正则清洗兜底。
func HTMLToText(html string) string {
	text, err := html2text.FromString(html, html2text.Options{
		PrettyTables: false,
		OmitLinks:    true,
	})
	if err != nil {
		return html
	}
	return text
}
