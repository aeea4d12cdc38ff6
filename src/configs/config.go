package configs

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config 主配置结构
type Config struct {
	Server struct {
		IP   string `yaml:"ip" env:"HOST"`
		Port int    `yaml:"port" env:"PORT"`
	} `yaml:"server"`

	Log struct {
		LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
		LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
		LogDir    string `yaml:"log_dir" env:"LOG_DIR"`
		LogFile   string `yaml:"log_file" env:"LOG_FILE"`
	} `yaml:"log"`

	Morphik    MorphikConfig    `yaml:"morphik"`
	Cloudinary CloudinaryConfig `yaml:"cloudinary"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Image      ImageConfig      `yaml:"image"`
}

// MorphikConfig 文档检索服务配置
type MorphikConfig struct {
	URI          string        `yaml:"uri" env:"URI"`
	Timeout      time.Duration `yaml:"timeout" env:"MORPHIK_TIMEOUT"`
	UseColpali   bool          `yaml:"use_colpali" env:"MORPHIK_USE_COLPALI"`
	K            int           `yaml:"k" env:"MORPHIK_K"`
	WaitTimeout  time.Duration `yaml:"wait_timeout" env:"MORPHIK_WAIT_TIMEOUT"`
	PollInterval time.Duration `yaml:"poll_interval" env:"MORPHIK_POLL_INTERVAL"`
}

// CloudinaryConfig 图床凭证
type CloudinaryConfig struct {
	CloudName  string `yaml:"cloud_name" env:"CLOUDINARY_CLOUD_NAME"`
	APIKey     string `yaml:"api_key" env:"CLOUDINARY_API_KEY"`
	APISecret  string `yaml:"api_secret" env:"CLOUDINARY_API_SECRET"`
	FolderRoot string `yaml:"folder_root" env:"CLOUDINARY_FOLDER_ROOT"`
}

// IngestConfig 文档下载限制
type IngestConfig struct {
	MaxFileSize     int64         `yaml:"max_file_size" env:"INGEST_MAX_FILE_SIZE"`
	DownloadTimeout time.Duration `yaml:"download_timeout" env:"INGEST_DOWNLOAD_TIMEOUT"`
}

// ImageConfig 图片检查配置
type ImageConfig struct {
	AllowedFormats []string `yaml:"allowed_formats" env:"IMAGE_ALLOWED_FORMATS" envSeparator:","`
}

// DefaultConfig 没有配置文件时使用的默认值
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.IP = "0.0.0.0"
	cfg.Server.Port = 5000
	cfg.Log.LogFormat = "text"
	cfg.Log.LogLevel = "info"
	cfg.Morphik = MorphikConfig{
		Timeout:      60 * time.Second,
		UseColpali:   true,
		K:            3,
		WaitTimeout:  300 * time.Second,
		PollInterval: 2 * time.Second,
	}
	cfg.Cloudinary.FolderRoot = "morphik"
	cfg.Ingest = IngestConfig{
		MaxFileSize:     50 * 1024 * 1024,
		DownloadTimeout: 60 * time.Second,
	}
	cfg.Image.AllowedFormats = []string{"jpeg", "jpg", "png", "gif", "webp", "bmp"}
	return cfg
}

// LoadConfig 从文件加载配置，再用环境变量覆盖
// path 为空时依次尝试 .config.yaml 和 config.yaml，文件都不存在时只使用默认值
func LoadConfig(path string) (*Config, string, error) {
	config := DefaultConfig()

	if path == "" {
		path = ".config.yaml"
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = "config.yaml"
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, path, err
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, path, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	if err := env.Parse(config); err != nil {
		return nil, path, fmt.Errorf("读取环境变量失败: %w", err)
	}

	return config, path, nil
}
