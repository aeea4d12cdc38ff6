package morphik

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrWaitTimeout 文档未在超时前处理完成
var ErrWaitTimeout = errors.New("timed out waiting for document processing")

// DefaultK 未指定时返回的分块数量
const DefaultK = 3

// IngestOptions 导入选项
type IngestOptions struct {
	UseColpali bool
	Metadata   map[string]interface{}
}

// WaitOptions 状态轮询选项
type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

// RetrieveOptions 检索选项，K 为0时使用 DefaultK
type RetrieveOptions struct {
	K          int
	UseColpali bool
	MinScore   float64
	Filters    map[string]interface{}
}

// UserScope 所有调用都归属于同一个终端用户
type UserScope struct {
	client    *Client
	endUserID string
}

// EndUserID 当前句柄对应的用户
func (s *UserScope) EndUserID() string {
	return s.endUserID
}

// IngestFile 将 r 的内容作为新文档上传
func (s *UserScope) IngestFile(ctx context.Context, r io.Reader, filename string, opts IngestOptions) (*Document, error) {
	metadata := opts.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	fields := map[string]string{
		"metadata":    string(metaJSON),
		"rules":       "[]",
		"use_colpali": strconv.FormatBool(opts.UseColpali),
		"end_user_id": s.endUserID,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := s.client.newRequest(ctx, http.MethodPost, "/ingest/file", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var doc Document
	if err := s.client.do(req, &doc); err != nil {
		return nil, err
	}
	if doc.ExternalID == "" {
		return nil, errors.New("morphik returned a document without an id")
	}
	return &doc, nil
}

// Status 查询文档处理状态
func (s *UserScope) Status(ctx context.Context, documentID string) (*DocumentStatus, error) {
	req, err := s.client.newRequest(ctx, http.MethodGet, "/documents/"+url.PathEscape(documentID)+"/status", nil)
	if err != nil {
		return nil, err
	}
	var status DocumentStatus
	if err := s.client.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// WaitForCompletion 轮询直到文档完成、失败或超时
func (s *UserScope) WaitForCompletion(ctx context.Context, documentID string, opts WaitOptions) (*Document, error) {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		status, err := s.Status(ctx, documentID)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", ErrWaitTimeout, documentID)
			}
			return nil, fmt.Errorf("failed to poll document %s: %w", documentID, err)
		}

		switch status.Status {
		case StatusCompleted:
			return &Document{
				ExternalID:     documentID,
				SystemMetadata: map[string]interface{}{"status": status.Status},
			}, nil
		case StatusFailed:
			msg := status.Error
			if msg == "" {
				msg = "unknown error"
			}
			return nil, fmt.Errorf("document %s processing failed: %s", documentID, msg)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", ErrWaitTimeout, documentID)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

type retrieveRequest struct {
	Query      string                 `json:"query"`
	K          int                    `json:"k"`
	MinScore   float64                `json:"min_score"`
	UseColpali bool                   `json:"use_colpali"`
	Filters    map[string]interface{} `json:"filters,omitempty"`
	EndUserID  string                 `json:"end_user_id"`
}

// RetrieveChunks 返回与 query 最相关的分块
func (s *UserScope) RetrieveChunks(ctx context.Context, query string, opts RetrieveOptions) ([]ChunkResult, error) {
	k := opts.K
	if k <= 0 {
		k = DefaultK
	}
	payload := retrieveRequest{
		Query:      query,
		K:          k,
		MinScore:   opts.MinScore,
		UseColpali: opts.UseColpali,
		Filters:    opts.Filters,
		EndUserID:  s.endUserID,
	}

	var results []ChunkResult
	if err := s.client.postJSON(ctx, "/retrieve/chunks", payload, &results); err != nil {
		return nil, err
	}
	return results, nil
}
