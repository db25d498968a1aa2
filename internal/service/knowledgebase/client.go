// Package knowledgebase 封装对话式语音代理服务的知识库 HTTP API。
// 客户端按请求级别的 API Key 构造，不做进程级单例。
package knowledgebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultBaseURL 知识库服务默认地址
const DefaultBaseURL = "https://api.elevenlabs.io"

// Client 知识库服务客户端
type Client struct {
	apiKey     string
	baseURL    string
	schema     SchemaType
	httpClient *http.Client
}

// Option 客户端选项
type Option func(*Client)

// WithBaseURL 覆盖服务地址
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithSchema 指定代理配置的知识库字段形态
func WithSchema(schema SchemaType) Option {
	return func(c *Client) {
		c.schema = schema
	}
}

// WithHTTPClient 覆盖 HTTP 客户端
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout 设置请求超时
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient 创建知识库客户端
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		schema:     SchemaPromptScoped,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError 远端服务返回的错误，携带 HTTP 状态码
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("knowledge base service returned %d: %s", e.StatusCode, e.Detail)
}

// createDocumentResponse 文档创建响应
type createDocumentResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateDocument 从文件内容创建知识库文档，返回服务端分配的文档ID
// 响应缺少ID视为失败而非空成功
func (c *Client) CreateDocument(ctx context.Context, content []byte, contentType, name string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := w.WriteField("name", name); err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/convai/knowledge-base/file", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	var resp createDocumentResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}

	if resp.ID == "" {
		return "", fmt.Errorf("create document response contains no id")
	}
	return resp.ID, nil
}

// GetAgentConfig 获取代理当前的知识库配置
// 每次写之前都重新读取，不跨调用缓存
func (c *Client) GetAgentConfig(ctx context.Context, agentID string) (*AgentKnowledgeConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/convai/agents/"+agentID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)

	var agent struct {
		ConversationConfig map[string]interface{} `json:"conversation_config"`
	}
	if err := c.do(req, &agent); err != nil {
		return nil, err
	}

	cfg := &AgentKnowledgeConfig{
		Schema: c.schema,
		raw:    agent.ConversationConfig,
	}
	if cfg.raw == nil {
		cfg.raw = map[string]interface{}{}
	}

	switch c.schema {
	case SchemaFlatIDs:
		if err := extractField(cfg.raw, []string{"agent", "knowledge_base"}, &cfg.IDs); err != nil {
			return nil, fmt.Errorf("failed to parse agent knowledge base ids: %w", err)
		}
	default:
		if err := extractField(cfg.raw, []string{"agent", "prompt", "knowledge_base"}, &cfg.Documents); err != nil {
			return nil, fmt.Errorf("failed to parse agent knowledge base entries: %w", err)
		}
	}
	return cfg, nil
}

// UpdateAgentConfig 将知识库配置写回代理，保留 conversation_config 的其余字段
func (c *Client) UpdateAgentConfig(ctx context.Context, agentID string, cfg *AgentKnowledgeConfig) error {
	raw := cfg.raw
	if raw == nil {
		raw = map[string]interface{}{}
	}

	switch cfg.Schema {
	case SchemaFlatIDs:
		setField(raw, []string{"agent", "knowledge_base"}, cfg.IDs)
	default:
		entries := cfg.Documents
		if entries == nil {
			entries = []DocumentRef{}
		}
		setField(raw, []string{"agent", "prompt", "knowledge_base"}, entries)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"conversation_config": raw,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal agent update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.baseURL+"/v1/convai/agents/"+agentID, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	return c.do(req, nil)
}

// DeleteDocument 删除知识库文档，补偿清理时以 best-effort 方式调用
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/v1/convai/knowledge-base/"+documentID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", c.apiKey)

	return c.do(req, nil)
}

// do 执行请求并解析响应；非 2xx 返回带状态码的 StatusError
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("knowledge base request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read knowledge base response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Detail:     parseErrorDetail(data),
		}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode knowledge base response: %w", err)
		}
	}
	return nil
}

// parseErrorDetail 解析错误响应中的 detail 字段
func parseErrorDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			return s
		}
		return string(body.Detail)
	}
	if len(data) > 0 {
		return string(data)
	}
	return "unknown error"
}

// extractField 从嵌套 map 中取出指定路径的字段
func extractField(raw map[string]interface{}, path []string, out interface{}) error {
	current := raw
	for i, key := range path {
		value, ok := current[key]
		if !ok || value == nil {
			return nil // 字段缺失等同于空列表
		}
		if i == len(path)-1 {
			data, err := json.Marshal(value)
			if err != nil {
				return err
			}
			return json.Unmarshal(data, out)
		}
		next, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("unexpected shape at %q", key)
		}
		current = next
	}
	return nil
}

// setField 设置嵌套 map 中指定路径的字段，缺失的中间层按需创建
func setField(raw map[string]interface{}, path []string, value interface{}) {
	current := raw
	for _, key := range path[:len(path)-1] {
		next, ok := current[key].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			current[key] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}
