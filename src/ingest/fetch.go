package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const defaultFilename = "document"

// Fetcher 下载待导入的文档
type Fetcher struct {
	httpClient  *http.Client
	maxFileSize int64
}

// NewFetcher 创建文档下载器
func NewFetcher(timeout time.Duration, maxFileSize int64) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// 限制重定向次数为3次
				if len(via) >= 3 {
					return fmt.Errorf("停止重定向：超过最大重定向次数")
				}
				return nil
			},
		},
		maxFileSize: maxFileSize,
	}
}

// Fetch 下载文档到内存，返回内容和文件名
func (f *Fetcher) Fetch(ctx context.Context, fileURL string) (*bytes.Reader, string, error) {
	u, err := url.Parse(fileURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", fmt.Errorf("无效的文件地址: %s", fileURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", "Morphik-Gateway/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP响应错误: %d %s", resp.StatusCode, resp.Status)
	}

	if f.maxFileSize > 0 && resp.ContentLength > f.maxFileSize {
		return nil, "", fmt.Errorf("文件过大: %d bytes，最大允许: %d bytes", resp.ContentLength, f.maxFileSize)
	}

	// 使用LimitReader限制下载大小，多读一个字节用于判断是否超限
	reader := io.Reader(resp.Body)
	if f.maxFileSize > 0 {
		reader = io.LimitReader(resp.Body, f.maxFileSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("下载文件失败: %w", err)
	}
	if f.maxFileSize > 0 && int64(len(data)) > f.maxFileSize {
		return nil, "", fmt.Errorf("文件过大，最大允许: %d bytes", f.maxFileSize)
	}

	return bytes.NewReader(data), filenameFromURL(u), nil
}

// filenameFromURL 取URL路径最后一段作为文件名
func filenameFromURL(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" || !strings.Contains(name, ".") {
		return defaultFilename
	}
	return name
}
