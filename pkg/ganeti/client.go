package ganeti

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ApiError Ganeti RAPI 返回的错误（状态码 >= 400）
// 远端不可用、鉴权失败等都会以该类型返回，由调用方决定是否吸收
type ApiError struct {
	Code    int
	Message string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("ganeti RAPI error (status %d): %s", e.Code, e.Message)
}

// IsApiError 判断 err 是否为远端 API 错误
func IsApiError(err error) bool {
	_, ok := err.(*ApiError)
	return ok
}

type Client struct {
	baseUrl    *url.URL
	httpClient *http.Client
	username   string
	password   string
}

// NewClient 创建 Ganeti RAPI 客户端
// RAPI 默认使用自签名证书，这里跳过证书校验（与集群内网部署方式一致）
func NewClient(hostname string, port int, username, password string) (*Client, error) {
	baseUrl, err := url.Parse(fmt.Sprintf("https://%s:%d", hostname, port))
	if err != nil {
		return nil, err
	}
	return &Client{
		baseUrl: baseUrl,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		username: username,
		password: password,
	}, nil
}

// NewClientFromURL 从完整 URL 创建客户端（用于测试或非标准端口部署）
func NewClientFromURL(apiURL, username, password string) (*Client, error) {
	baseUrl, err := url.Parse(apiURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseUrl: baseUrl,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		username: username,
		password: password,
	}, nil
}

func (c *Client) Request(ctx context.Context, req *http.Request, result interface{}) error {
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		// RAPI 错误响应格式：{"code": ..., "message": ..., "explain": ...}
		var errResp struct {
			Message string `json:"message"`
			Explain string `json:"explain"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
			msg := errResp.Message
			if errResp.Explain != "" {
				msg = msg + ": " + errResp.Explain
			}
			return &ApiError{Code: resp.StatusCode, Message: msg}
		}
		return &ApiError{Code: resp.StatusCode, Message: string(body)}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	endpoint := c.baseUrl.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.Request(ctx, req, result)
}

func (c *Client) Put(ctx context.Context, path string, body, result interface{}) error {
	endpoint := c.baseUrl.JoinPath(path).String()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.Request(ctx, req, result)
}

// GetVersion 获取 RAPI 协议版本（用于验证连接）
// GET /version
func (c *Client) GetVersion(ctx context.Context) (int, error) {
	var version int
	if err := c.Get(ctx, "/version", &version); err != nil {
		return 0, err
	}
	return version, nil
}

// GetInfo 获取集群信息
// GET /2/info
// 返回字段至少包含 mtime；ctime 可能为 null
func (c *Client) GetInfo(ctx context.Context) (map[string]interface{}, error) {
	var info map[string]interface{}
	if err := c.Get(ctx, "/2/info", &info); err != nil {
		return nil, err
	}
	return info, nil
}

// GetInstances 获取集群下全部实例主机名
// GET /2/instances
func (c *Client) GetInstances(ctx context.Context) ([]string, error) {
	var items []struct {
		Id string `json:"id"`
	}
	if err := c.Get(ctx, "/2/instances", &items); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Id)
	}
	return names, nil
}

// GetInstancesBulk 获取集群下全部实例的完整信息
// GET /2/instances?bulk=1
func (c *Client) GetInstancesBulk(ctx context.Context) ([]map[string]interface{}, error) {
	var items []map[string]interface{}
	if err := c.Get(ctx, "/2/instances?bulk=1", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetInstance 获取单个实例信息
// GET /2/instances/{name}
// 返回字段：mtime, ctime, tags, beparams.memory, beparams.vcpus, disk.sizes, os 等
func (c *Client) GetInstance(ctx context.Context, name string) (map[string]interface{}, error) {
	var info map[string]interface{}
	if err := c.Get(ctx, "/2/instances/"+url.PathEscape(name), &info); err != nil {
		return nil, err
	}
	return info, nil
}

// GetNodes 获取集群节点列表
// GET /2/nodes[?bulk=1]
func (c *Client) GetNodes(ctx context.Context, bulk bool) ([]map[string]interface{}, error) {
	path := "/2/nodes"
	if bulk {
		path += "?bulk=1"
	}
	var nodes []map[string]interface{}
	if err := c.Get(ctx, path, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// GetNode 获取单个节点信息
// GET /2/nodes/{name}
func (c *Client) GetNode(ctx context.Context, name string) (map[string]interface{}, error) {
	var node map[string]interface{}
	if err := c.Get(ctx, "/2/nodes/"+url.PathEscape(name), &node); err != nil {
		return nil, err
	}
	return node, nil
}

// GetJobStatus 获取任务状态
// GET /2/jobs/{id}
// 返回字段：status (queued|waiting|running|canceling|canceled|success|error), mtime 等
func (c *Client) GetJobStatus(ctx context.Context, id int64) (map[string]interface{}, error) {
	var status map[string]interface{}
	if err := c.Get(ctx, fmt.Sprintf("/2/jobs/%d", id), &status); err != nil {
		return nil, err
	}
	return status, nil
}

// AddInstanceTags 为实例增加标签，返回任务 ID
// PUT /2/instances/{name}/tags?tag=a&tag=b
func (c *Client) AddInstanceTags(ctx context.Context, name string, tags []string) (int64, error) {
	return c.instanceTagRequest(ctx, http.MethodPut, name, tags)
}

// DeleteInstanceTags 批量删除实例标签，返回任务 ID
// DELETE /2/instances/{name}/tags?tag=a&tag=b
func (c *Client) DeleteInstanceTags(ctx context.Context, name string, tags []string) (int64, error) {
	return c.instanceTagRequest(ctx, http.MethodDelete, name, tags)
}

func (c *Client) instanceTagRequest(ctx context.Context, method, name string, tags []string) (int64, error) {
	params := url.Values{}
	for _, tag := range tags {
		params.Add("tag", tag)
	}
	endpoint := c.baseUrl.JoinPath("/2/instances", name, "tags").String() + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return 0, err
	}

	var jobID int64
	if err := c.Request(ctx, req, &jobID); err != nil {
		return 0, err
	}
	return jobID, nil
}

// ShutdownInstance 关闭实例，返回任务 ID
// PUT /2/instances/{name}/shutdown
func (c *Client) ShutdownInstance(ctx context.Context, name string) (int64, error) {
	return c.instanceStateRequest(ctx, name, "shutdown")
}

// StartupInstance 启动实例，返回任务 ID
// PUT /2/instances/{name}/startup
func (c *Client) StartupInstance(ctx context.Context, name string) (int64, error) {
	return c.instanceStateRequest(ctx, name, "startup")
}

// RebootInstance 重启实例，返回任务 ID
// POST /2/instances/{name}/reboot
func (c *Client) RebootInstance(ctx context.Context, name string) (int64, error) {
	endpoint := c.baseUrl.JoinPath("/2/instances", name, "reboot").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return 0, err
	}
	var jobID int64
	if err := c.Request(ctx, req, &jobID); err != nil {
		return 0, err
	}
	return jobID, nil
}

func (c *Client) instanceStateRequest(ctx context.Context, name, action string) (int64, error) {
	endpoint := c.baseUrl.JoinPath("/2/instances", name, action).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return 0, err
	}
	var jobID int64
	if err := c.Request(ctx, req, &jobID); err != nil {
		return 0, err
	}
	return jobID, nil
}
