package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wms-platform/outbound-service/internal/domain"
	apperrors "github.com/wms-platform/outbound-service/pkg/errors"
	"github.com/wms-platform/outbound-service/pkg/resilience"
)

// backendErrorBody is the error envelope the task backend returns
type backendErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// TaskServiceClient handles communication with the task backend.
// Implements domain.TaskBackend.
type TaskServiceClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
}

// NewTaskServiceClient creates a new TaskServiceClient
func NewTaskServiceClient(baseURL string, breaker *resilience.CircuitBreaker) *TaskServiceClient {
	return &TaskServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: breaker,
	}
}

// ListPickingTasks fetches the open picking tasks assigned to a user
func (c *TaskServiceClient) ListPickingTasks(ctx context.Context, userID int64) ([]domain.Task, error) {
	url := fmt.Sprintf("%s/api/tasks/picking/user/%d", c.baseURL, userID)
	return c.fetchTasks(ctx, url)
}

// ListDispatchedTasks fetches the user's already-dispatched tasks
func (c *TaskServiceClient) ListDispatchedTasks(ctx context.Context, userID int64) ([]domain.Task, error) {
	url := fmt.Sprintf("%s/api/tasks/dispatched/user/%d", c.baseURL, userID)
	return c.fetchTasks(ctx, url)
}

// GetPickingStatistics fetches the user's picking dashboard counters
func (c *TaskServiceClient) GetPickingStatistics(ctx context.Context, userID int64) (domain.PickingStatistics, error) {
	url := fmt.Sprintf("%s/api/tasks/statistics/user/%d", c.baseURL, userID)

	var stats domain.PickingStatistics
	err := c.execute(ctx, func() error {
		return c.getJSON(ctx, url, &stats)
	})
	return stats, err
}

// CompleteTask marks one task completed on behalf of a user. The backend is
// the source of truth; a failure here means the task was not completed.
func (c *TaskServiceClient) CompleteTask(ctx context.Context, taskID, userID int64) error {
	url := fmt.Sprintf("%s/api/tasks/%d/complete", c.baseURL, taskID)

	payload, err := json.Marshal(map[string]int64{"userId": userID})
	if err != nil {
		return fmt.Errorf("failed to encode complete request: %w", err)
	}

	return c.execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to complete task: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			return upstreamError("task-service", resp)
		}
		return nil
	})
}

func (c *TaskServiceClient) fetchTasks(ctx context.Context, url string) ([]domain.Task, error) {
	var tasks []domain.Task
	err := c.execute(ctx, func() error {
		return c.getJSON(ctx, url, &tasks)
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *TaskServiceClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return upstreamError("task-service", resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *TaskServiceClient) execute(ctx context.Context, fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	_, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return apperrors.ErrServiceUnavailable("task-service").Wrap(err)
	}
	return err
}

// upstreamError extracts the backend's error message from the response body,
// preserving it verbatim so per-task failure reasons survive to the caller
func upstreamError(service string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var envelope backendErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return apperrors.ErrUpstream(service, envelope.Message)
		}
		if envelope.Error != "" {
			return apperrors.ErrUpstream(service, envelope.Error)
		}
	}
	return apperrors.ErrUpstream(service, fmt.Sprintf("%s returned status %d", service, resp.StatusCode))
}
