// Package morphik Morphik 文档导入与检索服务的 REST 客户端
package morphik

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8000"

// Connector 按用户签发调用句柄
type Connector interface {
	Signin(userID string) Scope
}

// Scope 单个终端用户可用的调用
type Scope interface {
	IngestFile(ctx context.Context, r io.Reader, filename string, opts IngestOptions) (*Document, error)
	WaitForCompletion(ctx context.Context, documentID string, opts WaitOptions) (*Document, error)
	RetrieveChunks(ctx context.Context, query string, opts RetrieveOptions) ([]ChunkResult, error)
}

// Client 对应一个 Morphik 部署
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ParseURI 将 morphik://<owner>:<token>@<host> 拆分为服务地址和 Bearer token
// URI 为空时使用本地开发服务，不带认证
func ParseURI(uri string) (baseURL, token string, err error) {
	if uri == "" {
		return defaultBaseURL, "", nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid morphik uri: %w", err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("invalid morphik uri: missing host")
	}
	if u.User == nil {
		return "", "", fmt.Errorf("invalid morphik uri: missing credentials")
	}
	token, ok := u.User.Password()
	if !ok || token == "" {
		return "", "", fmt.Errorf("invalid morphik uri: missing token")
	}

	scheme := "https"
	if strings.Contains(u.Host, "localhost") {
		scheme = "http"
	}
	return scheme + "://" + u.Host, token, nil
}

// NewClient 根据 morphik:// URI 创建客户端
func NewClient(uri string, timeout time.Duration) (*Client, error) {
	baseURL, token, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return NewClientWithBaseURL(baseURL, token, &http.Client{Timeout: timeout}), nil
}

// NewClientWithBaseURL 使用指定服务地址创建客户端
func NewClientWithBaseURL(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// BaseURL 解析后的服务地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Signin 返回归属于 userID 的调用句柄
func (c *Client) Signin(userID string) Scope {
	return &UserScope{client: c, endUserID: userID}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do 发送请求，2xx 时将JSON响应解码到 out
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("morphik request %s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode morphik response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}
