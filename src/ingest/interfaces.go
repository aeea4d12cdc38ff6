package ingest

import (
	"context"

	"github.com/gin-gonic/gin"
)

// IngestService 定义文档导入服务接口
type IngestService interface {
	// 将导入路由注册到 engine 与 apiGroup
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}
