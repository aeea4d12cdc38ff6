package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"sync/atomic"

	_ "image/gif"  // 注册GIF解码器
	_ "image/jpeg" // 注册JPEG解码器
	_ "image/png"  // 注册PNG解码器

	_ "golang.org/x/image/webp" // 注册WEBP解码器
)

// Inspector 图片检查器：识别格式和尺寸，只记录不拦截
type Inspector struct {
	allowedFormats []string
	metrics        ImageMetrics
}

// NewInspector 创建新的图片检查器
func NewInspector(allowedFormats []string) *Inspector {
	return &Inspector{allowedFormats: allowedFormats}
}

// 图片格式魔数签名
var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8}, // JPEG文件只需要前两个字节
	"jpg":  {0xFF, 0xD8}, // 与JPEG相同
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46}, // RIFF，需要进一步检查WEBP标识
	"bmp":  {0x42, 0x4D},
}

// Inspect 检查解码后的图片数据
func (v *Inspector) Inspect(data []byte, declaredFormat string) InspectionResult {
	atomic.AddInt64(&v.metrics.TotalInspected, 1)

	result := InspectionResult{
		Format:   strings.ToLower(declaredFormat),
		FileSize: int64(len(data)),
	}

	result.SignatureMatch = validateFileSignature(data, result.Format)
	if declaredFormat != "" && !result.SignatureMatch {
		atomic.AddInt64(&v.metrics.SignatureMismatch, 1)
	}

	config, actualFormat, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		atomic.AddInt64(&v.metrics.Undecodable, 1)
		result.Err = fmt.Errorf("图片解码失败: %w", err)
	} else {
		atomic.AddInt64(&v.metrics.Decoded, 1)
		result.Format = actualFormat
		result.Width = config.Width
		result.Height = config.Height
	}

	result.Allowed = v.isFormatAllowed(result.Format)
	if !result.Allowed {
		atomic.AddInt64(&v.metrics.DisallowedFormats, 1)
	}

	return result
}

// validateFileSignature 验证文件头签名
func validateFileSignature(data []byte, format string) bool {
	signature, exists := imageSignatures[format]
	if !exists || len(data) < len(signature) {
		return false
	}

	if !bytes.HasPrefix(data, signature) {
		return false
	}

	// WEBP需要额外验证
	if format == "webp" {
		return len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP"))
	}

	return true
}

// isFormatAllowed 检查格式是否被允许，未配置列表时全部允许
func (v *Inspector) isFormatAllowed(format string) bool {
	if len(v.allowedFormats) == 0 {
		return true
	}
	for _, allowed := range v.allowedFormats {
		if strings.EqualFold(allowed, format) {
			return true
		}
	}
	return false
}

// Metrics 获取检查统计信息
func (v *Inspector) Metrics() ImageMetrics {
	return ImageMetrics{
		TotalInspected:    atomic.LoadInt64(&v.metrics.TotalInspected),
		Decoded:           atomic.LoadInt64(&v.metrics.Decoded),
		Undecodable:       atomic.LoadInt64(&v.metrics.Undecodable),
		SignatureMismatch: atomic.LoadInt64(&v.metrics.SignatureMismatch),
		DisallowedFormats: atomic.LoadInt64(&v.metrics.DisallowedFormats),
	}
}
