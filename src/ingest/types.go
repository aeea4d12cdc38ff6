package ingest

// IngestRequest 文档导入请求体
type IngestRequest struct {
	FileURL string `json:"file_url" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
}
