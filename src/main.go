package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"morphik-gateway-go/src/api"
	"morphik-gateway-go/src/configs"
	"morphik-gateway-go/src/core/chunk"
	"morphik-gateway-go/src/core/image"
	"morphik-gateway-go/src/core/morphik"
	"morphik-gateway-go/src/core/storage"
	"morphik-gateway-go/src/core/utils"
	"morphik-gateway-go/src/ingest"
	"morphik-gateway-go/src/retrieval"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "morphik-gateway",
	Short: "HTTP gateway for Morphik document ingestion and retrieval",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(configPath)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "配置文件路径 (默认 .config.yaml 或 config.yaml)")
}

func LoadConfigAndLogger(path string) (*configs.Config, *utils.Logger, error) {
	// 加载配置,默认使用.config.yaml
	config, loadedPath, err := configs.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	// 初始化日志系统
	logger, err := utils.NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	if loadedPath == "" {
		loadedPath = "(默认配置)"
	}
	logger.Info(fmt.Sprintf("日志系统初始化成功, 配置文件路径: %s", loadedPath))

	return config, logger, nil
}

// buildServices 创建外部依赖和业务服务
func buildServices(config *configs.Config, logger *utils.Logger) ([]api.Service, error) {
	client, err := morphik.NewClient(config.Morphik.URI, config.Morphik.Timeout)
	if err != nil {
		return nil, fmt.Errorf("初始化 Morphik 客户端失败: %w", err)
	}
	logger.Info("Morphik 客户端已就绪", map[string]interface{}{"base_url": client.BaseURL()})

	uploader, err := storage.NewCloudinaryUploader(config.Cloudinary)
	if err != nil {
		return nil, fmt.Errorf("初始化 Cloudinary 失败: %w", err)
	}
	if !uploader.Configured() {
		logger.Warn("未配置 Cloudinary 凭证，图片分块将保留内联数据")
	}

	normalizer := chunk.NewNormalizer(uploader, image.NewInspector(config.Image.AllowedFormats), config.Cloudinary.FolderRoot, logger)

	return []api.Service{
		ingest.NewDefaultIngestService(config, logger, client),
		retrieval.NewDefaultRetrievalService(config, logger, client, normalizer),
	}, nil
}

func StartHttpServer(config *configs.Config, logger *utils.Logger, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	services, err := buildServices(config, logger)
	if err != nil {
		return nil, err
	}

	api.SetMode(logger)
	router, err := api.NewRouter(groupCtx, logger, services...)
	if err != nil {
		return nil, err
	}

	// HTTP Server（支持优雅关机）
	addr := net.JoinHostPort(config.Server.IP, strconv.Itoa(config.Server.Port))
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	g.Go(func() error {
		logger.Info(fmt.Sprintf("Gin 服务已启动，访问地址: http://%s", addr))

		// 在单独的 goroutine 中监听关闭信号
		go func() {
			<-groupCtx.Done()
			logger.Info("收到关闭信号，开始关闭HTTP服务...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP服务关闭失败", err)
			} else {
				logger.Info("HTTP服务已优雅关闭")
			}
		}()

		// ListenAndServe 返回 ErrServerClosed 时表示正常关闭
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP 服务启动失败", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func GracefulShutdown(cancel context.CancelFunc, logger *utils.Logger, g *errgroup.Group, groupCtx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info(fmt.Sprintf("接收到系统信号: %v，开始优雅关闭服务", sig))
	case <-groupCtx.Done():
		logger.Warn("服务异常退出，开始关闭")
	}

	// 取消上下文，通知所有服务开始关闭
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("服务关闭过程中出现错误", err)
			return err
		}
		logger.Info("所有服务已优雅关闭")
		return nil
	case <-time.After(15 * time.Second):
		logger.Error("服务关闭超时，强制退出")
		return fmt.Errorf("shutdown timed out")
	}
}

func run(path string) error {
	// .env 需要在读取环境变量之前加载
	envErr := godotenv.Load()

	config, logger, err := LoadConfigAndLogger(path)
	if err != nil {
		return fmt.Errorf("加载配置或初始化日志系统失败: %w", err)
	}
	defer logger.Close()

	if envErr != nil {
		logger.Warn("未找到 .env 文件，使用系统环境变量")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, groupCtx := errgroup.WithContext(ctx)

	if _, err := StartHttpServer(config, logger, g, groupCtx); err != nil {
		logger.Error("启动服务失败", err)
		return err
	}

	if err := GracefulShutdown(cancel, logger, g, groupCtx); err != nil {
		return err
	}

	logger.Info("程序已成功退出")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
