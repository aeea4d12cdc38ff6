package retrieval

import (
	"context"
	"errors"
	"net/http"

	"morphik-gateway-go/src/configs"
	"morphik-gateway-go/src/core/chunk"
	"morphik-gateway-go/src/core/morphik"
	"morphik-gateway-go/src/core/utils"
	"morphik-gateway-go/src/core/validation"

	"github.com/gin-gonic/gin"
)

var _ RetrievalService = (*DefaultRetrievalService)(nil)

type DefaultRetrievalService struct {
	logger     *utils.Logger
	config     *configs.Config
	connector  morphik.Connector
	normalizer *chunk.Normalizer
}

// NewDefaultRetrievalService 构造函数
func NewDefaultRetrievalService(config *configs.Config, logger *utils.Logger, connector morphik.Connector, normalizer *chunk.Normalizer) *DefaultRetrievalService {
	return &DefaultRetrievalService{
		logger:     logger.WithTag("retrieval"),
		config:     config,
		connector:  connector,
		normalizer: normalizer,
	}
}

// Start 实现 RetrievalService 接口，注册检索相关路由
func (s *DefaultRetrievalService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	apiGroup.GET("/v1/retrieval", s.handleGet)
	apiGroup.POST("/v1/retrieval", s.handlePost)

	s.logger.Info("Retrieval HTTP服务路由注册完成")
	return nil
}

// handleGet 处理GET请求（状态检查）
func (s *DefaultRetrievalService) handleGet(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Retrieval API route active"})
}

// handlePost 检索相关分块并整理返回
func (s *DefaultRetrievalService) handlePost(c *gin.Context) {
	var req RetrievalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := validation.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.retrieve(c.Request.Context(), req)
	if err != nil {
		s.logger.Warn("检索失败", map[string]interface{}{
			"user_id": req.UserID,
			"query":   req.Query,
			"error":   err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve chunks", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *DefaultRetrievalService) retrieve(ctx context.Context, req RetrievalRequest) (*RetrievalResponse, error) {
	if s.connector == nil {
		return nil, errors.New("document service is not configured")
	}

	results, err := s.connector.Signin(req.UserID).RetrieveChunks(ctx, req.Query, morphik.RetrieveOptions{
		K:          s.config.Morphik.K,
		UseColpali: s.config.Morphik.UseColpali,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("检索到相关分块", map[string]interface{}{
		"count": len(results),
		"query": req.Query,
	})

	images, texts := s.normalizer.Normalize(ctx, morphik.Sources(results), req.UserID)
	s.logger.Info("分块整理完成", map[string]interface{}{
		"image_chunks": len(images),
		"text_chunks":  len(texts),
	})

	return &RetrievalResponse{ImageContent: images, TextContent: texts}, nil
}
