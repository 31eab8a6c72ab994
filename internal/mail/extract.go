package mail

import (
	"encoding/base64"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/security"
)

// PictureStore 内嵌图片的本地落盘接口。
// 返回值为可写入 Picture 记录、可拼入 HTML src 的相对路径。
type PictureStore interface {
	SavePicture(filename string, data []byte) (string, error)
}

// AttachmentRef 遍历中收集的附件描述符（内容不内联）。
type AttachmentRef struct {
	ProviderID string
	Name       string
}

// ExtractResult 一次正文提取的全部产物。
type ExtractResult struct {
	PlainText      string          // 解码后的正文（未经 Preprocess）
	SafeHTML       string          // 消毒后可直接渲染的 HTML
	Pictures       []string        // 已落盘的内嵌图片路径
	Attachments    []AttachmentRef // 附件描述符
	HasAttachments bool
}

// Extractor 从类型化的 MIME 部件树提取归一化正文。
type Extractor struct {
	pictures  PictureStore
	guard     *security.PictureGuard
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

// NewExtractor 创建正文提取器。
func NewExtractor(pictures PictureStore, logger *zap.Logger) *Extractor {
	policy := bluemonday.UGCPolicy()
	// 内嵌图片重写后是本地相对路径
	policy.AllowRelativeURLs(true)
	return &Extractor{
		pictures:  pictures,
		guard:     security.NewPictureGuard(),
		sanitizer: policy,
		logger:    logger,
	}
}

// savePicture 经安全检查后落盘图片，拒绝或失败返回空路径。
func (e *Extractor) savePicture(filename string, data []byte) string {
	if ok, reason := e.guard.CheckPicture(filename, data); !ok {
		e.logger.Warn("inline picture rejected",
			zap.String("filename", filename),
			zap.String("reason", reason),
		)
		return ""
	}
	path, err := e.pictures.SavePicture(filename, data)
	if err != nil {
		e.logger.Warn("failed to save inline picture",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return ""
	}
	return path
}

var (
	// dataImagePattern 匹配 HTML 中 base64 内嵌的 data: 图片
	dataImagePattern = regexp.MustCompile(`data:image/([a-zA-Z0-9.+\-]+);base64,([A-Za-z0-9+/=]+)`)
	// cidSrcPattern 匹配引用内嵌图片的 cid: 源
	cidSrcPattern = regexp.MustCompile(`(?i)src=["']cid:([^"']+)["']`)
)

// walkState 一次遍历的累积状态。
// plaintextFound 实现纯文本优先策略：一旦出现非空 text/plain，
// 其后遇到的 text/html 部件一律忽略（multipart/alternative 语义）。
type walkState struct {
	textBuf        strings.Builder
	htmlBuf        strings.Builder
	plaintextFound bool
	pictures       []string
	cids           map[string]string // 规范化 Content-ID → 本地路径
	attachments    []AttachmentRef
	hasAttachments bool
}

// Extract 深度优先遍历报文的部件树，产出归一化正文与附属产物。
//
// 空报文（既无 parts 也无顶层 body.data）返回空结果而非错误；
// 单个部件的解码失败只降级跳过，不中断整次提取。
func (e *Extractor) Extract(msg *domain.RawMessage) *ExtractResult {
	state := &walkState{cids: make(map[string]string)}

	if msg.Payload != nil {
		e.walk(msg.Payload, state)
	}

	htmlBody := state.htmlBuf.String()
	if strings.TrimSpace(htmlBody) == "" {
		// 没有任何 HTML 部件时，用纯文本构造展示用 HTML
		htmlBody = "<pre>" + html.EscapeString(state.textBuf.String()) + "</pre>"
	}

	// 遍历结束后统一解析残留的 cid: 引用
	htmlBody = e.resolveCIDs(htmlBody, state.cids)

	plain := state.textBuf.String()
	if !state.plaintextFound {
		plain = HTMLToText(htmlBody)
	}

	return &ExtractResult{
		PlainText:      plain,
		SafeHTML:       e.sanitizer.Sanitize(htmlBody),
		Pictures:       state.pictures,
		Attachments:    state.attachments,
		HasAttachments: state.hasAttachments,
	}
}

// walk 处理单个部件并递归其子部件。
func (e *Extractor) walk(part *domain.MailPart, state *walkState) {
	switch {
	case part.IsMultipart():
		for _, child := range part.Parts {
			e.walk(child, state)
		}

	case part.MimeType == "text/plain":
		data, ok := e.decodePartData(part)
		if !ok {
			return
		}
		text := string(decodeCharset(data, charsetOf(part.Header("Content-Type"))))
		if ContainsHTML(text) {
			// 误标为 text/plain 的 HTML 内容
			text = HTMLToText(text)
		}
		if strings.TrimSpace(text) != "" {
			state.plaintextFound = true
			state.textBuf.WriteString(text)
		}

	case part.MimeType == "text/html":
		if state.plaintextFound {
			// 已有纯文本表示，同内容的 HTML 替代表示不再参与
			return
		}
		data, ok := e.decodePartData(part)
		if !ok {
			return
		}
		html := string(decodeCharset(data, charsetOf(part.Header("Content-Type"))))
		state.htmlBuf.WriteString(e.externalizeDataImages(html, state))

	case strings.HasPrefix(part.MimeType, "image/"):
		e.handleImagePart(part, state)

	default:
		if part.Filename != "" {
			state.hasAttachments = true
			state.attachments = append(state.attachments, AttachmentRef{
				ProviderID: part.Body.AttachmentID,
				Name:       part.Filename,
			})
		}
		// 无 data、无子部件、无文件名的部件不贡献任何内容
	}
}

// handleImagePart 落盘内嵌图片并登记其 Content-ID。
// 只有 attachmentId 而无内联数据的图片按普通附件记录。
func (e *Extractor) handleImagePart(part *domain.MailPart, state *walkState) {
	if part.Body.Data == "" {
		if part.Body.AttachmentID != "" {
			state.hasAttachments = true
			state.attachments = append(state.attachments, AttachmentRef{
				ProviderID: part.Body.AttachmentID,
				Name:       part.Filename,
			})
		}
		return
	}

	data, ok := e.decodePartData(part)
	if !ok {
		return
	}

	filename := part.Filename
	if filename == "" {
		ext := strings.TrimPrefix(part.MimeType, "image/")
		filename = fmt.Sprintf("image_%s.%s", uuid.NewString(), ext)
	}

	path := e.savePicture(filename, data)
	if path == "" {
		return
	}
	state.pictures = append(state.pictures, path)

	if cid := normalizeCID(part.Header("Content-ID")); cid != "" {
		state.cids[cid] = path
	}
}

// externalizeDataImages 把 HTML 中 base64 内嵌的图片抽出落盘，
// 并把 src 重写为本地路径。
func (e *Extractor) externalizeDataImages(htmlBody string, state *walkState) string {
	return dataImagePattern.ReplaceAllStringFunc(htmlBody, func(match string) string {
		groups := dataImagePattern.FindStringSubmatch(match)
		imgType, encoded := groups[1], groups[2]

		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return match
		}

		filename := fmt.Sprintf("image_%s.%s", uuid.NewString(), imgType)
		path := e.savePicture(filename, data)
		if path == "" {
			return match
		}
		state.pictures = append(state.pictures, path)
		return path
	})
}

// resolveCIDs 把残留的 cid: 图片引用替换为遍历中登记的本地路径。
// Content-ID 比较不区分大小写且先做 URL 解码；未知引用保持原样。
func (e *Extractor) resolveCIDs(htmlBody string, cids map[string]string) string {
	if len(cids) == 0 {
		return htmlBody
	}
	return cidSrcPattern.ReplaceAllStringFunc(htmlBody, func(match string) string {
		groups := cidSrcPattern.FindStringSubmatch(match)
		if path, ok := cids[normalizeCID(groups[1])]; ok {
			return `src="` + path + `"`
		}
		return match
	})
}

// decodePartData 解码部件的 base64url 正文，失败降级为跳过。
func (e *Extractor) decodePartData(part *domain.MailPart) ([]byte, bool) {
	if part.Body.Data == "" {
		return nil, false
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(part.Body.Data, "="))
	if err != nil {
		e.logger.Warn("failed to decode mime part",
			zap.String("mime_type", part.MimeType),
			zap.Error(err),
		)
		return nil, false
	}
	return data, true
}

// normalizeCID 规范化 Content-ID：去尖括号、URL 解码、转小写。
func normalizeCID(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, "<>")
	if decoded, err := url.QueryUnescape(value); err == nil {
		value = decoded
	}
	return strings.ToLower(value)
}
