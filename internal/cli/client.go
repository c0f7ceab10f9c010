package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// JobResponse — job из API.
type JobResponse struct {
	ID          string         `json:"id"`
	TaskType    string         `json:"task_type"`
	Status      string         `json:"status"`
	TargetID    string         `json:"target_id,omitempty"`
	TargetType  string         `json:"target_type,omitempty"`
	Input       map[string]any `json:"input,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   string         `json:"created_at"`
	StartedAt   string         `json:"started_at,omitempty"`
	CompletedAt string         `json:"completed_at,omitempty"`
	DurationMs  *int64         `json:"duration_ms,omitempty"`
}

// JobPage — страница списка jobs.
type JobPage struct {
	Items  []JobResponse `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// TaskOutcome — результат одной задачи.
type TaskOutcome struct {
	Status    string         `json:"status"`
	TaskType  string         `json:"task_type,omitempty"`
	JobID     string         `json:"job_id,omitempty"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty"`
}

// OK возвращает true, если задача выполнена успешно.
func (o TaskOutcome) OK() bool {
	return o.Status == "success"
}

// WorkflowResult — итог синхронного workflow.
type WorkflowResult struct {
	Status  string         `json:"status"`
	Results []TaskOutcome  `json:"results"`
	Context map[string]any `json:"context"`
}

// SubmitResponse — ответ на асинхронный запуск workflow.
type SubmitResponse struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

// --- Request types ---

// WorkflowStep — шаг workflow в запросе.
type WorkflowStep struct {
	TaskType string         `json:"task_type"`
	Input    map[string]any `json:"task_data,omitempty"`
}

// UnmarshalJSON принимает также поле agent_type.
func (s *WorkflowStep) UnmarshalJSON(data []byte) error {
	var raw struct {
		TaskType  string         `json:"task_type"`
		AgentType string         `json:"agent_type"`
		Input     map[string]any `json:"task_data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.TaskType = raw.TaskType
	if s.TaskType == "" {
		s.TaskType = raw.AgentType
	}
	s.Input = raw.Input
	return nil
}

// WorkflowRequest — запуск workflow.
type WorkflowRequest struct {
	Steps   []WorkflowStep `json:"steps"`
	Context map[string]any `json:"context,omitempty"`
}

// TaskRequest — запуск одной задачи.
type TaskRequest struct {
	TaskType string         `json:"task_type"`
	Input    map[string]any `json:"input,omitempty"`
}

// ListJobsOpts — параметры фильтрации jobs.
type ListJobsOpts struct {
	Status   string
	TaskType string
	Limit    int
	Offset   int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data   json.RawMessage `json:"data"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ошибка, возвращённая сервером.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для artwiki API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
//
// Синхронный workflow может идти долго (crawler + LLM), поэтому
// таймаут клиента больше, чем у обычного REST-клиента.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// --- Workflows ---

// RunWorkflow выполняет workflow синхронно.
func (c *Client) RunWorkflow(ctx context.Context, req WorkflowRequest) (*WorkflowResult, error) {
	var result WorkflowResult
	err := c.post(ctx, "/api/v1/workflows", req, &result)
	return &result, err
}

// SubmitWorkflow ставит workflow в очередь.
func (c *Client) SubmitWorkflow(ctx context.Context, req WorkflowRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	err := c.post(ctx, "/api/v1/workflows/async", req, &resp)
	return &resp, err
}

// --- Tasks ---

// RunTask выполняет одну задачу.
func (c *Client) RunTask(ctx context.Context, req TaskRequest) (*TaskOutcome, error) {
	var outcome TaskOutcome
	err := c.post(ctx, "/api/v1/tasks", req, &outcome)
	return &outcome, err
}

// ListAgents возвращает зарегистрированные типы задач.
func (c *Client) ListAgents(ctx context.Context) ([]string, error) {
	var resp struct {
		TaskTypes []string `json:"task_types"`
	}
	err := c.get(ctx, "/api/v1/agents", &resp)
	return resp.TaskTypes, err
}

// --- Jobs ---

// ListJobs возвращает страницу jobs с фильтрацией.
func (c *Client) ListJobs(ctx context.Context, opts ListJobsOpts) (*JobPage, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.TaskType != "" {
		params.Set("job_type", opts.TaskType)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	page := &JobPage{}
	lr, err := c.list(ctx, "/api/v1/jobs", params, &page.Items)
	if err != nil {
		return nil, err
	}
	page.Total, page.Limit, page.Offset = lr.Total, lr.Limit, lr.Offset
	return page, nil
}

// GetJob возвращает job по ID.
func (c *Client) GetJob(ctx context.Context, id string) (*JobResponse, error) {
	var job JobResponse
	err := c.get(ctx, "/api/v1/jobs/"+url.PathEscape(id), &job)
	return &job, err
}

// --- HTTP helpers ---

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.doData(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.doData(ctx, http.MethodPost, path, body, result)
}

func (c *Client) list(ctx context.Context, path string, params url.Values, result any) (*listResponse, error) {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if err := json.Unmarshal(lr.Data, result); err != nil {
		return nil, fmt.Errorf("failed to decode list data: %w", err)
	}
	return &lr, nil
}

func (c *Client) doData(ctx context.Context, method, path string, body any, result any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}
	return apiErr
}
