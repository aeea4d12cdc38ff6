// Package storage 将媒体内容转存到公网图床
package storage

import (
	"context"
	"errors"
)

// ErrNotConfigured 未提供图床凭证时上传返回该错误
var ErrNotConfigured = errors.New("object store is not configured")

// UploadRequest 一次上传的内容和目标位置
type UploadRequest struct {
	Data     []byte
	MIMEType string
	Folder   string
	PublicID string
}

// UploadedAsset 上传结果
type UploadedAsset struct {
	SecureURL string
	PublicID  string
}

// Uploader 上传内容并返回访问地址
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadedAsset, error)
}
