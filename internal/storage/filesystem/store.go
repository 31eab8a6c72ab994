// Package filesystem 将邮件内嵌图片落盘到本地目录。
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Store 文件系统图片存储实现
type Store struct {
	basePath string // 图片存储根目录
}

// NewStore 创建文件系统存储实例
func NewStore(basePath string) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	normalized := filepath.Clean(basePath)

	// 确保基础目录存在
	if err := os.MkdirAll(normalized, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{basePath: normalized}, nil
}

// SavePicture 保存一张图片，返回相对于根目录的路径。
// 按日期分片目录，文件名前缀随机化避免同名覆盖。
func (s *Store) SavePicture(filename string, data []byte) (string, error) {
	dir := filepath.Join(s.basePath, time.Now().UTC().Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create picture directory: %w", err)
	}

	name := uuid.New().String() + "_" + sanitizeFilename(filename)
	fullPath := filepath.Join(dir, name)

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write picture: %w", err)
	}

	relPath, err := filepath.Rel(s.basePath, fullPath)
	if err != nil {
		return fullPath, nil
	}
	return relPath, nil
}

// LoadPicture 按相对路径读取图片内容
func (s *Store) LoadPicture(relPath string) ([]byte, error) {
	fullPath := filepath.Join(s.basePath, filepath.Clean(relPath))

	// 拒绝逃逸出根目录的路径
	if !strings.HasPrefix(fullPath, s.basePath+string(filepath.Separator)) {
		return nil, fmt.Errorf("invalid picture path: %s", relPath)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("picture not found: %s", relPath)
		}
		return nil, fmt.Errorf("failed to read picture: %w", err)
	}
	return data, nil
}

// DeletePicture 删除一张图片，文件不存在视为成功
func (s *Store) DeletePicture(relPath string) error {
	fullPath := filepath.Join(s.basePath, filepath.Clean(relPath))
	if !strings.HasPrefix(fullPath, s.basePath+string(filepath.Separator)) {
		return fmt.Errorf("invalid picture path: %s", relPath)
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete picture: %w", err)
	}
	return nil
}

// sanitizeFilename 清理文件名，确保跨平台兼容
func sanitizeFilename(filename string) string {
	// 移除路径分隔符
	filename = filepath.Base(filename)

	// 移除或替换不允许的字符
	for _, char := range invalidChars() {
		filename = strings.ReplaceAll(filename, char, "_")
	}

	// 移除控制字符
	filename = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)

	// 限制长度，保留扩展名
	if len(filename) > 200 {
		ext := filepath.Ext(filename)
		name := strings.TrimSuffix(filename, ext)
		available := 200 - len(ext)
		if available <= 0 {
			filename = ext
		} else {
			filename = name[:available] + ext
		}
	}

	filename = strings.Trim(filename, " .")
	if filename == "" {
		filename = "unnamed"
	}
	return filename
}

// invalidChars 当前平台不允许的文件名字符
func invalidChars() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"<", ">", ":", "\"", "|", "?", "*", "\\", "/", "\x00"}
	default:
		return []string{"/", "\x00"}
	}
}
