package chunk

import (
	"errors"
	"fmt"

	"morphik-gateway-go/src/core/image"
)

// Content 检索结果的内容，只能是 RawText、StructuredMedia、EncodedMedia 或 DataURLString
type Content interface {
	fmt.Stringer
	isContent()
}

// RawText 纯文本内容
type RawText struct {
	Text string
}

func (RawText) isContent() {}

func (t RawText) String() string { return t.Text }

// StructuredMedia 已知MIME类型的二进制媒体
type StructuredMedia struct {
	Data     []byte
	MIMEType string
}

func (StructuredMedia) isContent() {}

// Base64 将媒体渲染为 data URL
func (m StructuredMedia) Base64() (string, error) {
	if len(m.Data) == 0 {
		return "", errors.New("media has no data")
	}
	if m.MIMEType == "" {
		return "", errors.New("media has no mime type")
	}
	return image.BuildDataURL(m.MIMEType, m.Data), nil
}

func (m StructuredMedia) String() string {
	return fmt.Sprintf("<media %s, %d bytes>", m.MIMEType, len(m.Data))
}

// EncodedMedia 上游标记为图片、已经编码好的内容，Base64 原样返回
type EncodedMedia struct {
	Payload string
}

func (EncodedMedia) isContent() {}

// Base64 原样返回编码内容
func (m EncodedMedia) Base64() (string, error) {
	if m.Payload == "" {
		return "", errors.New("media has no payload")
	}
	return m.Payload, nil
}

func (m EncodedMedia) String() string { return m.Payload }

// DataURLString 已经是 data URL 格式的内容
type DataURLString struct {
	URL string
}

func (DataURLString) isContent() {}

func (d DataURLString) String() string { return d.URL }
