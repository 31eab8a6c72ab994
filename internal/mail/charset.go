package mail

import (
	"mime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// charsetOf 从部件的 Content-Type 头解析 charset 参数。
func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}

// decodeCharset 将遗留字符集的字节序列转换为 UTF-8。
// 未知字符集或转换失败时原样返回。
func decodeCharset(data []byte, charset string) []byte {
	if charset == "" || charset == "utf-8" || charset == "us-ascii" {
		return data
	}
	enc := charsetEncoding(charset)
	if enc == nil {
		return data
	}
	converted, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return data
	}
	return converted
}

// charsetEncoding 按字符集名称返回解码器。
func charsetEncoding(charset string) encoding.Encoding {
	switch charset {
	case "gb2312", "gbk", "gb18030":
		return simplifiedchinese.GBK
	case "big5":
		return traditionalchinese.Big5
	case "iso-2022-jp":
		return japanese.ISO2022JP
	case "shift_jis":
		return japanese.ShiftJIS
	case "euc-jp":
		return japanese.EUCJP
	case "euc-kr", "ks_c_5601-1987":
		return korean.EUCKR
	case "iso-8859-1", "latin1", "windows-1252":
		return charmap.Windows1252
	default:
		return nil
	}
}
