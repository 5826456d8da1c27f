// Package textenc 将任意编码的文件内容解码为 UTF-8 文本。
// GitHub contents API 返回原始字节，非 UTF-8 仓库（GBK、Shift-JIS 等）需要先探测再转码。
package textenc

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IsBinary 粗略判断内容是否为二进制：出现 NUL 字节即认为是
func IsBinary(data []byte) bool {
	n := len(data)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}

// Decode 将原始字节解码为 UTF-8 字符串。
// 已经是合法 UTF-8 的内容直接返回，否则用 chardet 探测编码后转码。
func Decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil {
		return "", fmt.Errorf("detect charset: %w", err)
	}

	enc, err := ianaindex.IANA.Encoding(result.Charset)
	if err != nil || enc == nil {
		return "", fmt.Errorf("unsupported charset %q", result.Charset)
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", result.Charset, err)
	}
	return string(decoded), nil
}
