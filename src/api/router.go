// Package api 组装 gin 路由：根路径、/api 分组和 404 兜底。
package api

import (
	"context"
	"fmt"
	"net/http"

	"morphik-gateway-go/src/core/utils"

	"github.com/gin-gonic/gin"
)

// Service 挂载到 /api 分组下的业务服务
type Service interface {
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}

// NewRouter 创建路由并注册所有服务
func NewRouter(ctx context.Context, logger *utils.Logger, services ...Service) (*gin.Engine, error) {
	router := gin.New()
	// 末尾带斜杠的路径直接返回404，不做重定向
	router.RedirectTrailingSlash = false
	router.Use(gin.LoggerWithWriter(logger.Output()), gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API server is running"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// API路由全部挂载到/api前缀下
	apiGroup := router.Group("/api")
	for _, svc := range services {
		if err := svc.Start(ctx, router, apiGroup); err != nil {
			return nil, fmt.Errorf("服务启动失败 %T: %w", svc, err)
		}
	}

	return router, nil
}

// SetMode 按日志级别切换gin运行模式
func SetMode(logger *utils.Logger) {
	if logger.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}
