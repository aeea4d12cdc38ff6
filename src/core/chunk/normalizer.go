// Package chunk 将检索结果整理为可直接序列化的分块，内联图片顺带转存到图床。
package chunk

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path"

	"morphik-gateway-go/src/core/image"
	"morphik-gateway-go/src/core/storage"
	"morphik-gateway-go/src/core/utils"

	"github.com/google/uuid"
)

// Normalizer 将检索结果分为图片分块和文本分块
type Normalizer struct {
	uploader   storage.Uploader
	inspector  *image.Inspector
	folderRoot string
	logger     *utils.Logger
	newID      func() string
}

// NewNormalizer 创建分块整理器，inspector 可以为 nil
func NewNormalizer(uploader storage.Uploader, inspector *image.Inspector, folderRoot string, logger *utils.Logger) *Normalizer {
	return &Normalizer{
		uploader:   uploader,
		inspector:  inspector,
		folderRoot: folderRoot,
		logger:     logger.WithTag("normalizer"),
		newID:      uuid.NewString,
	}
}

// Normalize 每个结果恰好进入一个分组，组内保持输入顺序。
// 字段或上传失败只记录日志，只影响对应分块。
func (n *Normalizer) Normalize(ctx context.Context, results []Source, userID string) (images, texts []NormalizedChunk) {
	images = make([]NormalizedChunk, 0, len(results))
	texts = make([]NormalizedChunk, 0, len(results))

	for i, res := range results {
		raw := n.extractFields(res, i)

		content, isImage := classify(res.Content())
		raw[KeyContent] = content

		if !isImage {
			raw[KeyContentType] = ContentTypeText
			texts = append(texts, raw)
			continue
		}

		raw[KeyContentType] = ContentTypeImage
		n.externalize(ctx, raw, content, userID)
		images = append(images, raw)
	}

	return images, texts
}

// extractFields 复制声明的非内容字段，非JSON标量转为字符串，转换失败的字段跳过
func (n *Normalizer) extractFields(res Source, index int) NormalizedChunk {
	raw := NormalizedChunk{}
	for _, f := range res.Fields() {
		if f.Name == KeyContent {
			continue
		}
		v, err := toScalar(f.Value)
		if err != nil {
			n.logger.Warn("Error serializing attribute", map[string]interface{}{
				"attribute": f.Name,
				"chunk":     index,
				"error":     err.Error(),
			})
			continue
		}
		raw[f.Name] = v
	}
	return raw
}

// classify 返回写入 content 的字符串以及是否为图片
func classify(c Content) (string, bool) {
	switch v := c.(type) {
	case nil:
		return "", false
	case StructuredMedia:
		return fromAccessor(v.Base64, v)
	case EncodedMedia:
		return fromAccessor(v.Base64, v)
	default:
		s := v.String()
		return s, image.LooksLikeImageDataURL(s)
	}
}

// fromAccessor 编码成功即视为图片，内容原样保留；失败时按字符串形式判断
func fromAccessor(encode func() (string, error), c Content) (string, bool) {
	if s, err := encode(); err == nil {
		return s, true
	}
	s := c.String()
	return s, image.LooksLikeImageDataURL(s)
}

// externalize 上传可解析的 data URL 并把内容替换为公网地址
// 无法解析、解码或上传的内容保持原样
func (n *Normalizer) externalize(ctx context.Context, raw NormalizedChunk, content, userID string) {
	if !image.HasDataPrefix(content) {
		return
	}

	dataURL, ok := image.ParseDataURL(content)
	if !ok {
		n.logger.Debug("image content is not a base64 data url, keeping as is")
		return
	}

	data, err := dataURL.Decode()
	if err != nil {
		n.logger.Warn("Error decoding image payload", map[string]interface{}{
			"mime_type": dataURL.MIMEType,
			"error":     err.Error(),
		})
		return
	}

	ext := dataURL.Extension()
	if n.inspector != nil {
		info := n.inspector.Inspect(data, ext)
		fields := map[string]interface{}{
			"declared":  ext,
			"format":    info.Format,
			"width":     info.Width,
			"height":    info.Height,
			"file_size": info.FileSize,
		}
		if info.Err != nil || !info.SignatureMatch || !info.Allowed {
			fields["signature_match"] = info.SignatureMatch
			fields["allowed"] = info.Allowed
			if info.Err != nil {
				fields["error"] = info.Err.Error()
			}
			n.logger.Warn("image payload looks unusual, uploading anyway", fields)
		} else {
			n.logger.Debug("image payload inspected", fields)
		}
	}

	req := storage.UploadRequest{
		Data:     data,
		MIMEType: dataURL.MIMEType,
		Folder:   path.Join(n.folderRoot, userID),
		PublicID: n.newID(),
	}
	asset, err := n.uploader.Upload(ctx, req)
	if err != nil {
		n.logger.Warn("Error uploading to object store", map[string]interface{}{
			"folder":    req.Folder,
			"public_id": req.PublicID,
			"error":     err.Error(),
		})
		return
	}

	raw[KeyContent] = asset.SecureURL
	raw[KeyImageURL] = asset.SecureURL
	raw[KeyContentType] = ContentTypeImage
}

// toScalar JSON标量原样返回，其余转为字符串
func toScalar(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val, nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Sprint(val), nil
		}
		return val, nil
	case float32:
		return toScalar(float64(val))
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		if f, err := val.Float64(); err == nil {
			return toScalar(f)
		}
		return val.String(), nil
	case *string:
		if val == nil {
			return nil, nil
		}
		return *val, nil
	case *int:
		if val == nil {
			return nil, nil
		}
		return *val, nil
	case *float64:
		if val == nil {
			return nil, nil
		}
		return toScalar(*val)
	case error:
		return val.Error(), nil
	case fmt.Stringer:
		return val.String(), nil
	case map[string]interface{}, []interface{}, []string:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encode %T: %w", val, err)
		}
		return string(b), nil
	default:
		return fmt.Sprint(val), nil
	}
}
