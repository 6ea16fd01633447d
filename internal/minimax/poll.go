package minimax

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// TaskKind selects which query endpoint a task handle belongs to.
type TaskKind string

const (
	TaskImage TaskKind = "image"
	TaskVideo TaskKind = "video"
)

type taskStatus int

const (
	statusUnknown taskStatus = iota
	statusQueued
	statusProcessing
	statusSucceeded
	statusFailed
)

// normalizeStatus folds the many observed status spellings into a small enum
// before any branching happens.
func normalizeStatus(raw string) taskStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "finished", "success", "completed", "done":
		return statusSucceeded
	case "failed", "error":
		return statusFailed
	case "queued", "pending":
		return statusQueued
	case "processing", "running", "preparing":
		return statusProcessing
	default:
		return statusUnknown
	}
}

// TaskResult is the payload of a successfully terminated task: an opaque file
// handle to exchange for a download URL, direct result URLs, or both,
// depending on which response variant the API chose.
type TaskResult struct {
	FileID string
	URLs   []string
}

func (k TaskKind) queryPath() string {
	if k == TaskVideo {
		return "/query/video_generation"
	}
	return "/query/image_generation"
}

// PollUntilTerminal queries task status at the client's poll interval until
// the task succeeds, fails, or the wait budget is exhausted. Transient errors
// during a status check are logged and retried; only an explicit envelope
// rejection or a failed status aborts early. Timeout surfaces as a
// *PollTimeoutError so callers can tell a broken API from a slow one.
func (c *Client) PollUntilTerminal(ctx context.Context, kind TaskKind, taskID string, maxWait time.Duration) (*TaskResult, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, errors.New("minimax: task id is required")
	}
	if maxWait <= 0 {
		maxWait = 5 * time.Minute
	}
	start := time.Now()
	deadline := start.Add(maxWait)
	query := url.Values{"task_id": []string{taskID}}

	for {
		body, err := c.getJSON(ctx, kind.queryPath(), query)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Rejected() {
				return nil, apiErr
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Transient: the polling loop outlives individual network blips.
			c.logger.Warn().Err(err).Str("task_id", taskID).Msg("minimax: status check failed, retrying")
		} else {
			raw := extractString(body, "status", "data.status", "task_status")
			switch normalizeStatus(raw) {
			case statusSucceeded:
				c.logger.Debug().
					Str("task_id", taskID).
					Dur("elapsed", time.Since(start)).
					Msg("minimax: task succeeded")
				return taskResultFrom(body), nil
			case statusFailed:
				msg := extractString(body, "message", "error_msg", "base_resp.status_msg")
				if msg == "" {
					msg = "generation failed"
				}
				return nil, &APIError{Message: fmt.Sprintf("task %s: %s", taskID, msg)}
			default:
				c.logger.Debug().
					Str("task_id", taskID).
					Str("status", raw).
					Dur("elapsed", time.Since(start)).
					Msg("minimax: task in progress")
			}
		}

		if time.Now().Add(c.pollInterval).After(deadline) {
			return nil, &PollTimeoutError{
				TaskID:  taskID,
				Kind:    kind,
				Elapsed: time.Since(start),
				Budget:  maxWait,
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// taskResultFrom collects the file handle and any direct URLs from the known
// success-response variants.
func taskResultFrom(body map[string]any) *TaskResult {
	result := &TaskResult{
		FileID: extractString(body,
			"file_id",
			"data.file_id",
			"data.video.file_id",
		),
		URLs: extractStringList(body,
			"data.image_urls",
			"data.images",
			"image_urls",
		),
	}
	if len(result.URLs) == 0 {
		if direct := extractString(body, "data.video.url", "data.url"); direct != "" {
			result.URLs = []string{direct}
		}
	}
	return result
}
