package image

// DataURL 解析后的 data URL：data:<mime>;base64,<payload>
type DataURL struct {
	MIMEType string // 例如 image/png
	Payload  string // base64编码的数据（未解码）
}

// InspectionResult 图片检查结果，只用于记录，不拒绝任何数据
type InspectionResult struct {
	Format         string // 实际格式（解码成功时）或声明格式
	Width          int    // 图片宽度
	Height         int    // 图片高度
	FileSize       int64  // 文件大小
	SignatureMatch bool   // 文件头是否与声明格式一致
	Allowed        bool   // 格式是否在允许列表中
	Err            error  // 解码错误
}

// ImageMetrics 图片检查统计信息
type ImageMetrics struct {
	TotalInspected    int64 // 总检查数量
	Decoded           int64 // 解码成功次数
	Undecodable       int64 // 解码失败次数
	SignatureMismatch int64 // 文件头不匹配次数
	DisallowedFormats int64 // 不在允许列表中的格式次数
}
