// Package remote fetches the authoritative task set from the server's
// JSON endpoint.
//
// Wire contract: a GET returning either {"tasks": [...]} or a bare
// top-level array of task objects, with snake_case field keys
// (id, train_id, task_type, priority_level, location, due_date,
// description).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/railops/trainmaint/internal/model"
)

// defaultTimeout bounds each fetch round trip.
const defaultTimeout = 30 * time.Second

// taskDTO is the wire representation of a single task.
type taskDTO struct {
	ID            string `json:"id"`
	TrainID       string `json:"train_id"`
	TaskType      string `json:"task_type"`
	PriorityLevel string `json:"priority_level"`
	Location      string `json:"location"`
	DueDate       string `json:"due_date"`
	Description   string `json:"description"`
}

// tasksResponse is the object form of the payload.
type tasksResponse struct {
	Tasks []taskDTO `json:"tasks"`
}

// Client is a thin HTTP client for the task endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a task endpoint client. baseURL is the service root
// (e.g. https://api.example.com) and tasksPath the resource path. A
// non-positive timeout falls back to 30s.
func NewClient(baseURL, tasksPath string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if tasksPath != "" && !strings.HasPrefix(tasksPath, "/") {
		tasksPath = "/" + tasksPath
	}

	return &Client{
		url: strings.TrimRight(baseURL, "/") + tasksPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchAll performs a single round trip to retrieve the full task set.
// It returns a TransportError on network/HTTP failure and an
// EmptyPayloadError when the server answers with zero tasks.
func (c *Client) FetchAll(ctx context.Context) ([]model.Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("executing GET %s: %w", c.url, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("GET %s: %s", c.url, strings.TrimSpace(string(body))),
		}
	}

	dtos, err := decodeTasks(body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decoding response from %s: %w", c.url, err)}
	}

	if len(dtos) == 0 {
		return nil, &EmptyPayloadError{URL: c.url}
	}

	tasks := make([]model.Task, 0, len(dtos))
	for _, dto := range dtos {
		tasks = append(tasks, dto.toDomain())
	}
	return tasks, nil
}

// decodeTasks accepts both payload shapes: an object with a "tasks" key
// and a bare array of task objects.
func decodeTasks(body []byte) ([]taskDTO, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var dtos []taskDTO
		if err := json.Unmarshal(trimmed, &dtos); err != nil {
			return nil, fmt.Errorf("unmarshaling task array: %w", err)
		}
		return dtos, nil
	}

	var payload tasksResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling tasks object: %w", err)
	}
	return payload.Tasks, nil
}

// toDomain converts a wire task to its domain representation.
func (d taskDTO) toDomain() model.Task {
	return model.Task{
		ID:            d.ID,
		TrainID:       d.TrainID,
		TaskType:      d.TaskType,
		PriorityLevel: d.PriorityLevel,
		Location:      d.Location,
		DueDate:       d.DueDate,
		Description:   d.Description,
	}
}
