package storage

import (
	"bytes"
	"context"
	"fmt"

	"morphik-gateway-go/src/configs"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryUploader 上传到 Cloudinary，资源类型自动识别
type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryUploader 使用显式凭证创建上传器
// 凭证缺失时返回的上传器每次调用都返回 ErrNotConfigured
func NewCloudinaryUploader(cfg configs.CloudinaryConfig) (*CloudinaryUploader, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return &CloudinaryUploader{}, nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryUploader{cld: cld}, nil
}

// Configured 是否配置了凭证
func (u *CloudinaryUploader) Configured() bool {
	return u.cld != nil
}

// Upload 上传解码后的内容，返回 https 访问地址
func (u *CloudinaryUploader) Upload(ctx context.Context, req UploadRequest) (*UploadedAsset, error) {
	if u.cld == nil {
		return nil, ErrNotConfigured
	}

	result, err := u.cld.Upload.Upload(ctx, bytes.NewReader(req.Data), uploader.UploadParams{
		Folder:       req.Folder,
		PublicID:     req.PublicID,
		ResourceType: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload rejected: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary upload returned no secure url for %s", req.PublicID)
	}

	return &UploadedAsset{
		SecureURL: result.SecureURL,
		PublicID:  result.PublicID,
	}, nil
}
