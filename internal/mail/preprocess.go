// Package mail 实现服务商报文的正文提取与清洗。
package mail

import (
	"regexp"
	"strings"
)

// 清洗用的正则，全部为纯文本替换，不做语义解析
var (
	angleURLPattern   = regexp.MustCompile(`<http[^>]*>`)
	bareURLPattern    = regexp.MustCompile(`http\S+`)
	mailtoPattern     = regexp.MustCompile(`<mailto:[^>]*>`)
	bareMailtoPattern = regexp.MustCompile(`mailto:\S+`)
	angleAddrPattern  = regexp.MustCompile(`<[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}>`)
	bareAddrPattern   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	imageTagPattern   = regexp.MustCompile(`\[image:[^\]]+\]`)
	spaceRunPattern   = regexp.MustCompile(` +`)
	newlineRunPattern = regexp.MustCompile(`\n{3,}`)
)

// 问候语与落款的多语言关键词，只锚定在文首/文末
var (
	greetingWords = []string{"Bonjour", "Hello", "Hi", "Dear", "Salut"}
	signOffWords  = []string{
		"Regards", "Sincerely", "Best regards", "Cordially",
		"Yours truly", "Cordialement", "Bien à vous",
	}

	greetingPattern = regexp.MustCompile(`(?im)^\s*(` + strings.Join(greetingWords, "|") + `).*\n`)
	signOffPattern  = regexp.MustCompile(`(?im)\n\s*(` + strings.Join(signOffWords, "|") + `).*$`)
)

// Preprocess 清洗提取后的正文，产出可供 LLM 消费和展示回退的纯文本。
//
// 依次移除链接、邮箱地址、[image: ...] 占位符，统一行尾，
// 去除每行首尾空白，压缩空格与连续空行。
// 该函数是幂等的：对自身输出再执行一次不会产生任何变化。
func Preprocess(content string) string {
	// 移除 <http...> 包裹的链接以及裸露的 http 链接
	content = angleURLPattern.ReplaceAllString(content, "")
	content = bareURLPattern.ReplaceAllString(content, "")

	// 移除 <mailto:...> 与裸露的邮箱地址
	content = mailtoPattern.ReplaceAllString(content, "")
	content = bareMailtoPattern.ReplaceAllString(content, "")
	content = angleAddrPattern.ReplaceAllString(content, "")
	content = bareAddrPattern.ReplaceAllString(content, "")

	// 移除 "[image: ...]" 占位符
	content = imageTagPattern.ReplaceAllString(content, "")

	// Windows 行尾转 Unix 行尾
	content = strings.ReplaceAll(content, "\r\n", "\n")

	// 去除每行首尾空白
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	content = strings.Join(lines, "\n")

	// 压缩连续空格，三个以上连续换行压缩为两个
	content = spaceRunPattern.ReplaceAllString(content, " ")
	content = newlineRunPattern.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}

// StripGreetings 去除文首的问候行与文末的落款行。
// 只用于回复辅助等展示路径，分类流水线不调用。
func StripGreetings(content string) string {
	content = greetingPattern.ReplaceAllString(content, "")
	content = signOffPattern.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}
