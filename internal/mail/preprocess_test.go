package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"移除尖括号链接",
			"check <https://example.com/path?a=1> for details",
			"check for details",
		},
		{
			"移除裸链接",
			"see https://example.com/report now",
			"see now",
		},
		{
			"移除邮箱地址",
			"contact <mailto:sales@corp.test> or billing@corp.test today",
			"contact or today",
		},
		{
			"移除图片占位符",
			"header [image: company logo] footer",
			"header footer",
		},
		{
			"统一行尾并压缩空行",
			"line one\r\n\r\n\r\n\r\nline two",
			"line one\n\nline two",
		},
		{
			"压缩连续空格",
			"too    many     spaces",
			"too many spaces",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Preprocess(tt.input))
		})
	}
}

func TestPreprocessIdempotent(t *testing.T) {
	input := "Hello,\r\n\r\nvisit <https://example.com> or mail me@corp.test\r\n\r\n\r\nBye"
	once := Preprocess(input)
	assert.Equal(t, once, Preprocess(once))
}

func TestStripGreetings(t *testing.T) {
	input := "Hello John,\nthe deployment finished without errors\nBest regards,"
	result := StripGreetings(input)
	assert.Equal(t, "the deployment finished without errors", result)
}

func TestContainsHTML(t *testing.T) {
	assert.True(t, ContainsHTML("<p>hello</p>"))
	assert.True(t, ContainsHTML("tom &amp; jerry"))
	assert.False(t, ContainsHTML("plain text, no markup at all"))
}

func TestHTMLToText(t *testing.T) {
	text := HTMLToText("<p>first</p><p>second</p>")
	assert.Contains(t, text, "first")
	assert.Contains(t, text, "second")
	assert.NotContains(t, text, "<p>")
}

func TestDecodeCharset(t *testing.T) {
	// "café" 的 Windows-1252 编码
	latin1 := []byte{0x63, 0x61, 0x66, 0xE9}
	decoded := decodeCharset(latin1, "iso-8859-1")
	assert.Equal(t, "café", string(decoded))

	// UTF-8 原样返回
	utf8 := []byte("已经是 UTF-8")
	assert.Equal(t, utf8, decodeCharset(utf8, "utf-8"))

	// 未知字符集原样返回
	assert.Equal(t, latin1, decodeCharset(latin1, "x-unknown"))
}

func TestCharsetOf(t *testing.T) {
	assert.Equal(t, "gbk", charsetOf(`text/html; charset=GBK`))
	assert.Equal(t, "", charsetOf("text/plain"))
	assert.Equal(t, "", charsetOf(""))
}
