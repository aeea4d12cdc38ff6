package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"morphik-gateway-go/src/configs"
	"morphik-gateway-go/src/core/morphik"
	"morphik-gateway-go/src/core/utils"
	"morphik-gateway-go/src/core/validation"

	"github.com/gin-gonic/gin"
)

var _ IngestService = (*DefaultIngestService)(nil)

type DefaultIngestService struct {
	logger    *utils.Logger
	config    *configs.Config
	connector morphik.Connector
	fetcher   *Fetcher
}

// NewDefaultIngestService 构造函数
func NewDefaultIngestService(config *configs.Config, logger *utils.Logger, connector morphik.Connector) *DefaultIngestService {
	return &DefaultIngestService{
		logger:    logger.WithTag("ingest"),
		config:    config,
		connector: connector,
		fetcher:   NewFetcher(config.Ingest.DownloadTimeout, config.Ingest.MaxFileSize),
	}
}

// Start 实现 IngestService 接口，注册导入相关路由
func (s *DefaultIngestService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	apiGroup.GET("/v1/ingest", s.handleGet)
	apiGroup.POST("/v1/ingest", s.handlePost)

	s.logger.Info("Ingest HTTP服务路由注册完成")
	return nil
}

// handleGet 处理GET请求（状态检查）
func (s *DefaultIngestService) handleGet(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "API route active"})
}

// handlePost 下载文档并导入
func (s *DefaultIngestService) handlePost(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := validation.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := s.ingest(c.Request.Context(), req)
	if err != nil {
		s.logger.Warn("文档导入失败", map[string]interface{}{
			"user_id":  req.UserID,
			"file_url": req.FileURL,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"status": "Failed to ingest", "details": err.Error()})
		return
	}

	s.logger.Info("文档导入完成", map[string]interface{}{
		"user_id":     req.UserID,
		"document_id": doc.ExternalID,
	})
	c.JSON(http.StatusCreated, gin.H{"status": "success"})
}

func (s *DefaultIngestService) ingest(ctx context.Context, req IngestRequest) (*morphik.Document, error) {
	if s.connector == nil {
		return nil, errors.New("document service is not configured")
	}

	body, filename, err := s.fetcher.Fetch(ctx, req.FileURL)
	if err != nil {
		return nil, fmt.Errorf("下载文档失败: %w", err)
	}

	scope := s.connector.Signin(req.UserID)
	doc, err := scope.IngestFile(ctx, body, filename, morphik.IngestOptions{
		UseColpali: s.config.Morphik.UseColpali,
	})
	if err != nil {
		return nil, fmt.Errorf("提交文档失败: %w", err)
	}

	s.logger.Debug("文档已提交，等待处理完成", map[string]interface{}{
		"document_id": doc.ExternalID,
		"filename":    filename,
	})

	done, err := scope.WaitForCompletion(ctx, doc.ExternalID, morphik.WaitOptions{
		Timeout:  s.config.Morphik.WaitTimeout,
		Interval: s.config.Morphik.PollInterval,
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}
