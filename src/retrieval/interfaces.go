package retrieval

import (
	"context"

	"github.com/gin-gonic/gin"
)

// RetrievalService 定义检索服务接口
type RetrievalService interface {
	// 将检索路由注册到 engine 与 apiGroup
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}
