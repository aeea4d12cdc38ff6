package morphik

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"morphik-gateway-go/src/core/chunk"
	"morphik-gateway-go/src/core/image"
)

// 文档处理状态，由 /documents/{id}/status 返回
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document 导入后的文档记录
type Document struct {
	ExternalID     string                 `json:"external_id"`
	Filename       string                 `json:"filename,omitempty"`
	ContentType    string                 `json:"content_type,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	SystemMetadata map[string]interface{} `json:"system_metadata,omitempty"`
}

// DocumentStatus 状态查询响应
type DocumentStatus struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// ChunkResult 检索到的单个分块
type ChunkResult struct {
	RawContent  string                 `json:"content"`
	Score       float64                `json:"score"`
	DocumentID  string                 `json:"document_id"`
	ChunkNumber int                    `json:"chunk_number"`
	Metadata    map[string]interface{} `json:"metadata"`
	ContentType string                 `json:"content_type"`
	Filename    *string                `json:"filename"`
	DownloadURL *string                `json:"download_url"`
}

// Fields 按固定顺序列出所有非内容字段
func (r ChunkResult) Fields() []chunk.Field {
	return []chunk.Field{
		{Name: "score", Value: r.Score},
		{Name: "document_id", Value: r.DocumentID},
		{Name: "chunk_number", Value: r.ChunkNumber},
		{Name: "metadata", Value: r.Metadata},
		{Name: "content_type", Value: r.ContentType},
		{Name: "filename", Value: r.Filename},
		{Name: "download_url", Value: r.DownloadURL},
	}
}

// Content 将原始内容解析为对应的变体
// 图片分块带 metadata.is_image 标记，内容可能是 data URL 或裸 base64
func (r ChunkResult) Content() chunk.Content {
	if isImage, _ := r.Metadata["is_image"].(bool); isImage {
		if !image.HasDataPrefix(r.RawContent) {
			if data, err := base64.StdEncoding.DecodeString(r.RawContent); err == nil && len(data) > 0 {
				mimeType := r.ContentType
				if !strings.HasPrefix(mimeType, "image/") {
					mimeType = http.DetectContentType(data)
				}
				return chunk.StructuredMedia{Data: data, MIMEType: mimeType}
			}
		}
		return chunk.EncodedMedia{Payload: r.RawContent}
	}

	if image.HasDataPrefix(r.RawContent) {
		return chunk.DataURLString{URL: r.RawContent}
	}
	return chunk.RawText{Text: r.RawContent}
}

// Sources 转换为分块整理器的输入
func Sources(results []ChunkResult) []chunk.Source {
	out := make([]chunk.Source, len(results))
	for i := range results {
		out[i] = results[i]
	}
	return out
}

// APIError 服务返回的非2xx响应
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("morphik: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("morphik: HTTP %d: %s", e.StatusCode, body)
}
