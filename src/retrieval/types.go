package retrieval

import "morphik-gateway-go/src/core/chunk"

// RetrievalRequest 检索请求体
type RetrievalRequest struct {
	Query  string `json:"query" validate:"required"`
	UserID string `json:"user_id" validate:"required"`
}

// RetrievalResponse 检索结果，图片和文本分开返回
type RetrievalResponse struct {
	ImageContent []chunk.NormalizedChunk `json:"image_content"`
	TextContent  []chunk.NormalizedChunk `json:"text_content"`
}
