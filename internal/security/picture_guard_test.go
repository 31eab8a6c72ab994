package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// pngHeader 最小可嗅探的 PNG 前缀
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func TestCheckPicture(t *testing.T) {
	guard := NewPictureGuard()

	tests := []struct {
		name     string
		filename string
		data     []byte
		allowed  bool
	}{
		{"合法PNG", "logo.png", pngHeader, true},
		{"空内容", "logo.png", nil, false},
		{"危险扩展名", "payload.exe", pngHeader, false},
		{"伪装成图片的脚本", "logo.png", []byte("#!/bin/sh\nrm -rf /"), false},
		{"无扩展名但内容是图片", "inline_image", pngHeader, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, reason := guard.CheckPicture(tt.filename, tt.data)
			assert.Equal(t, tt.allowed, allowed, reason)
		})
	}
}

func TestCheckPictureSizeLimit(t *testing.T) {
	guard := NewPictureGuard()

	big := make([]byte, 10*1024*1024+1)
	copy(big, pngHeader)

	allowed, reason := guard.CheckPicture("huge.png", big)
	assert.False(t, allowed)
	assert.Contains(t, reason, "too large")
}
