package chunk

// 每个 NormalizedChunk 都会写入的字段名和内容类型
const (
	KeyContent     = "content"
	KeyContentType = "content_type"
	KeyImageURL    = "image_url"

	ContentTypeImage = "image"
	ContentTypeText  = "text"
)

// Field 检索结果中一个非内容字段
type Field struct {
	Name  string
	Value interface{}
}

// Source 字段固定的检索结果
type Source interface {
	Content() Content
	Fields() []Field
}

// NormalizedChunk 字段名到JSON标量的映射
type NormalizedChunk map[string]interface{}

// ContentType 返回整理器写入的分类
func (c NormalizedChunk) ContentType() string {
	s, _ := c[KeyContentType].(string)
	return s
}
