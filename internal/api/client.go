package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"beehive/internal/models"
	"beehive/internal/store"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "BEEHIVE_HTTP_TIMEOUT"
	apiKeyEnvKey       = "BEEHIVE_API_KEY"
)

// Client is a simple HTTP client for the beehive API.
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string
}

// NewClient creates a new API client. The key argument wins over the
// BEEHIVE_API_KEY environment variable.
func NewClient(baseURL, key string) *Client {
	if strings.TrimSpace(key) == "" {
		key = strings.TrimSpace(os.Getenv(apiKeyEnvKey))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeoutFromEnv()},
		apiKey:  key,
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) CreateProject(ctx context.Context, req ProjectCreateRequest) (ProjectCreateResponse, error) {
	var resp ProjectCreateResponse
	err := c.do(ctx, http.MethodPost, "/v1/projects", nil, req, &resp)
	return resp, err
}

func (c *Client) ListProjects(ctx context.Context) ([]string, error) {
	var resp []string
	err := c.do(ctx, http.MethodGet, "/v1/projects", nil, nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, req TaskCreateRequest) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodPost, "/v1/tasks", nil, req, &resp)
	return resp, err
}

func (c *Client) GetTask(ctx context.Context, id string) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) ListTasks(ctx context.Context, query url.Values) ([]models.Task, error) {
	var resp []models.Task
	err := c.do(ctx, http.MethodGet, "/v1/tasks", query, nil, &resp)
	return resp, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, req TaskUpdateRequest) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodPatch, "/v1/tasks/"+url.PathEscape(id), nil, req, &resp)
	return resp, err
}

func (c *Client) UpdateStatus(ctx context.Context, id, status string) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodPatch, "/v1/tasks/"+url.PathEscape(id)+"/status", nil,
		StatusUpdateRequest{Status: status}, &resp)
	return resp, err
}

func (c *Client) ClaimTask(ctx context.Context, id, bee string) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/claim", nil,
		ClaimRequest{Bee: bee}, &resp)
	return resp, err
}

// ClaimNext asks the scheduler for the next eligible task. A nil task
// with nil error means nothing is eligible right now.
func (c *Client) ClaimNext(ctx context.Context, req ClaimNextRequest) (*models.Task, error) {
	resp, status, err := c.doStatus(ctx, http.MethodPost, "/v1/tasks/next", req)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	var task models.Task
	if err := json.Unmarshal(resp, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) ReleaseTask(ctx context.Context, id string) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/release", nil, struct{}{}, &resp)
	return resp, err
}

func (c *Client) ReopenTask(ctx context.Context, id string) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/reopen", nil, struct{}{}, &resp)
	return resp, err
}

func (c *Client) SubmitTask(ctx context.Context, id string, req SubmitRequest) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/submit", nil, req, &resp)
	return resp, err
}

func (c *Client) ApproveTask(ctx context.Context, id string) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/approve", nil, struct{}{}, &resp)
	return resp, err
}

func (c *Client) RejectTask(ctx context.Context, id, reason string) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/reject", nil,
		RejectRequest{Reason: reason}, &resp)
	return resp, err
}

func (c *Client) FailTask(ctx context.Context, id, errMsg, details string) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/fail", nil,
		FailRequest{Error: errMsg, Details: details}, &resp)
	return resp, err
}

func (c *Client) BlockTask(ctx context.Context, id, reason string) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/block", nil,
		BlockRequest{Reason: reason}, &resp)
	return resp, err
}

func (c *Client) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	resp, status, err := c.doStatus(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(id)+"/submission", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	var sub models.Submission
	if err := json.Unmarshal(resp, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) AppendLog(ctx context.Context, id, content string) error {
	return c.do(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/log", nil,
		LogAppendRequest{Content: content}, nil)
}

func (c *Client) GetLog(ctx context.Context, id string) (LogResponse, error) {
	var resp LogResponse
	err := c.do(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(id)+"/log", nil, nil, &resp)
	return resp, err
}

func (c *Client) CreateKey(ctx context.Context, req KeyCreateRequest) (KeyCreateResponse, error) {
	var resp KeyCreateResponse
	err := c.do(ctx, http.MethodPost, "/v1/keys", nil, req, &resp)
	return resp, err
}

func (c *Client) ListKeys(ctx context.Context) ([]models.APIKey, error) {
	var resp []models.APIKey
	err := c.do(ctx, http.MethodGet, "/v1/keys", nil, nil, &resp)
	return resp, err
}

func (c *Client) RevokeKey(ctx context.Context, hash string) error {
	return c.do(ctx, http.MethodDelete, "/v1/keys/"+url.PathEscape(hash), nil, nil, nil)
}

func (c *Client) DumpProject(ctx context.Context, name string) (store.ProjectDump, error) {
	var resp store.ProjectDump
	err := c.do(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(name)+"/dump", nil, nil, &resp)
	return resp, err
}

func (c *Client) LoadProject(ctx context.Context, name string, dump store.ProjectDump, replace bool) error {
	query := url.Values{}
	if replace {
		query.Set("replace", "true")
	}
	return c.do(ctx, http.MethodPost, "/v1/projects/"+url.PathEscape(name)+"/load", query, dump, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	payload, status, err := c.doStatus(ctx, method, endpointWithQuery(path, query), body)
	if err != nil {
		return err
	}
	if out == nil || status == http.StatusNoContent {
		return nil
	}
	return json.Unmarshal(payload, out)
}

func (c *Client) doStatus(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, decodeError(resp)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return payload, resp.StatusCode, nil
}

func endpointWithQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		if errResp.Code != "" {
			return fmt.Errorf("%s: %s", errResp.Code, errResp.Error)
		}
		return fmt.Errorf("%s", errResp.Error)
	}
	return fmt.Errorf("api error: %s", resp.Status)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
