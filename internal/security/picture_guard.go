// Package security 提供入站内容的安全检查。
package security

import (
	"net/http"
	"path/filepath"
	"strings"
)

// PictureGuard 内嵌图片落盘前的安全检查器。
// 邮件正文里的 "图片" 部件内容完全由发件方控制，
// 落盘前核对真实内容类型，防止伪装成图片的可执行文件进入磁盘。
type PictureGuard struct {
	maxSize             int
	dangerousExtensions map[string]bool
}

// NewPictureGuard 创建图片检查器
func NewPictureGuard() *PictureGuard {
	return &PictureGuard{
		maxSize: 10 * 1024 * 1024,
		dangerousExtensions: map[string]bool{
			".exe": true,
			".bat": true,
			".cmd": true,
			".scr": true,
			".pif": true,
			".com": true,
			".vbs": true,
			".js":  true,
			".jar": true,
			".php": true,
			".asp": true,
			".jsp": true,
			".sh":  true,
			".dll": true,
		},
	}
}

// CheckPicture 判断图片是否允许落盘。
// 拒绝时返回 false 与原因说明。
func (g *PictureGuard) CheckPicture(filename string, data []byte) (bool, string) {
	if len(data) == 0 {
		return false, "empty content"
	}
	if len(data) > g.maxSize {
		return false, "content too large"
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if g.dangerousExtensions[ext] {
		return false, "dangerous file extension: " + ext
	}

	// 按真实字节嗅探，不信任声明的 MIME 类型
	detected := http.DetectContentType(data)
	if !strings.HasPrefix(detected, "image/") {
		return false, "content is not an image: " + detected
	}
	return true, ""
}
