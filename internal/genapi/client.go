package genapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TaskState is the client's view of an external generation task.
type TaskState int

const (
	TaskRunning TaskState = iota
	TaskDone
	TaskErrored
)

func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskDone:
		return "done"
	case TaskErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// TaskStatus is the outcome of one poll call. ResultURL is populated
// only for TaskDone; Message carries the external error for
// TaskErrored.
type TaskStatus struct {
	State     TaskState
	ResultURL string
	Message   string
}

// The external service marks completion with this sub-status together
// with percent_completed == 100.
const subStatusDone = 2

const (
	defaultPollRetries    = 3
	defaultPollRetryDelay = 2 * time.Second
)

type Options struct {
	BaseURL        string
	APIKey         string
	HTTPClient     *http.Client
	Timeout        time.Duration
	PollRetries    int
	PollRetryDelay time.Duration
}

// Client talks to the third-party generation API: one call to submit a
// task, one call per poll. It holds no task state of its own.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	pollRetries    int
	pollRetryDelay time.Duration
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	retries := opts.PollRetries
	if retries <= 0 {
		retries = defaultPollRetries
	}
	delay := opts.PollRetryDelay
	if delay <= 0 {
		delay = defaultPollRetryDelay
	}
	return &Client{
		httpClient:     client,
		baseURL:        base,
		token:          strings.TrimSpace(opts.APIKey),
		pollRetries:    retries,
		pollRetryDelay: delay,
	}
}

type submitRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Size           string `json:"size,omitempty"`
}

type submitResponse struct {
	TaskID  string `json:"task_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Submit dispatches one generation task and returns the external task
// handle. A single attempt; the caller decides what a failure means.
func (c *Client) Submit(ctx context.Context, prompt, negativePrompt, size string) (string, error) {
	if c == nil {
		return "", errors.New("genapi: client not configured")
	}
	if c.token == "" {
		return "", errors.New("genapi: API key is missing")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("genapi: prompt required")
	}
	body, err := json.Marshal(submitRequest{Prompt: prompt, NegativePrompt: negativePrompt, Size: size})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tasks", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("genapi: submit http %d", resp.StatusCode)
		}
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Message != "" {
			return "", fmt.Errorf("genapi: submit rejected: %s (%s)", out.Message, out.Code)
		}
		return "", fmt.Errorf("genapi: submit http %d", resp.StatusCode)
	}
	if strings.TrimSpace(out.TaskID) == "" {
		return "", errors.New("genapi: submit response missing task id")
	}
	return out.TaskID, nil
}

type pollRequest struct {
	TaskID string `json:"task_id"`
}

// pollResponse is not assumed well-formed; every field is optional on
// the wire.
type pollResponse struct {
	SubStatus        *int   `json:"sub_status"`
	PercentCompleted *int   `json:"percent_completed"`
	ErrorMsg         string `json:"error_msg"`
	Images           []struct {
		PreviewPath string `json:"preview_path"`
	} `json:"images"`
}

// Poll fetches the current state of a task. Transport failures and 5xx
// responses are retried a bounded number of times with a fixed delay;
// 4xx and undecodable payloads propagate immediately. A returned error
// means "ask again next tick", never "the task failed".
func (c *Client) Poll(ctx context.Context, taskID string) (TaskStatus, error) {
	if c == nil {
		return TaskStatus{}, errors.New("genapi: client not configured")
	}
	if strings.TrimSpace(taskID) == "" {
		return TaskStatus{}, errors.New("genapi: task id required")
	}

	var lastErr error
	for attempt := 0; attempt < c.pollRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return TaskStatus{}, ctx.Err()
			case <-time.After(c.pollRetryDelay):
			}
		}
		status, retryable, err := c.pollOnce(ctx, taskID)
		if err == nil {
			return status, nil
		}
		if !retryable {
			return TaskStatus{}, err
		}
		lastErr = err
	}
	return TaskStatus{}, fmt.Errorf("genapi: poll retries exhausted: %w", lastErr)
}

func (c *Client) pollOnce(ctx context.Context, taskID string) (TaskStatus, bool, error) {
	body, err := json.Marshal(pollRequest{TaskID: taskID})
	if err != nil {
		return TaskStatus{}, false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tasks/poll", bytes.NewReader(body))
	if err != nil {
		return TaskStatus{}, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TaskStatus{}, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return TaskStatus{}, true, fmt.Errorf("genapi: poll http %d", resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return TaskStatus{}, false, fmt.Errorf("genapi: poll http %d", resp.StatusCode)
	}

	var out pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return TaskStatus{}, false, fmt.Errorf("genapi: poll payload: %w", err)
	}
	return mapPollResponse(out), false, nil
}

// mapPollResponse applies the completion policy: an explicit error
// message wins; a completion marker without an artifact is an error,
// not a success; only a completion marker with a preview path is done.
func mapPollResponse(out pollResponse) TaskStatus {
	if msg := strings.TrimSpace(out.ErrorMsg); msg != "" {
		return TaskStatus{State: TaskErrored, Message: msg}
	}
	completed := out.SubStatus != nil && *out.SubStatus == subStatusDone &&
		out.PercentCompleted != nil && *out.PercentCompleted == 100
	if !completed {
		return TaskStatus{State: TaskRunning}
	}
	if len(out.Images) == 0 || strings.TrimSpace(out.Images[0].PreviewPath) == "" {
		return TaskStatus{State: TaskErrored, Message: "completed without artifact"}
	}
	return TaskStatus{State: TaskDone, ResultURL: strings.TrimSpace(out.Images[0].PreviewPath)}
}
