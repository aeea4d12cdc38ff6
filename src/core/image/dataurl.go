package image

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

const (
	dataPrefix      = "data:"
	imageDataPrefix = "data:image"
	base64Marker    = ";base64,"
)

var dataURLPattern = regexp.MustCompile(`(?s)^data:([^;]+);base64,(.+)$`)

// HasDataPrefix 判断字符串是否为 data URI
func HasDataPrefix(s string) bool {
	return strings.HasPrefix(s, dataPrefix)
}

// LooksLikeImageDataURL 判断字符串是否像 base64 编码的图片 data URL
func LooksLikeImageDataURL(s string) bool {
	return strings.HasPrefix(s, imageDataPrefix) && strings.Contains(s, base64Marker)
}

// ParseDataURL 按 data:<mime>;base64,<payload> 解析，不匹配时返回 false
func ParseDataURL(s string) (DataURL, bool) {
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return DataURL{}, false
	}
	return DataURL{MIMEType: m[1], Payload: m[2]}, true
}

// BuildDataURL 将二进制数据编码为 data URL
func BuildDataURL(mimeType string, data []byte) string {
	return dataPrefix + mimeType + base64Marker + base64.StdEncoding.EncodeToString(data)
}

// Extension 返回 MIME 子类型作为扩展名提示，例如 image/png -> png
func (d DataURL) Extension() string {
	if i := strings.LastIndex(d.MIMEType, "/"); i >= 0 {
		return d.MIMEType[i+1:]
	}
	return d.MIMEType
}

// Decode 解码 base64 数据，兼容带换行和无填充的数据
func (d DataURL) Decode() ([]byte, error) {
	payload := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, d.Payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("base64解码失败: %w", err)
}

// String 还原为 data URL 字符串
func (d DataURL) String() string {
	return dataPrefix + d.MIMEType + base64Marker + d.Payload
}
