package minimax

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
)

// videoPromptMaxLen is the API's hard cap on video prompt length.
const videoPromptMaxLen = 200

// VideoRequest captures the inputs for one image-to-video submission.
type VideoRequest struct {
	// Prompt describes the desired camera motion and animation.
	Prompt string
	// FirstFrame is the raw image the clip animates from. The client handles
	// data-URL encoding before transmission.
	FirstFrame []byte
	// Model overrides the client's configured video model when set.
	Model string
}

type videoGenerationRequest struct {
	Model           string `json:"model"`
	Prompt          string `json:"prompt"`
	FirstFrameImage string `json:"first_frame_image"`
}

// defaultMotionPrompt is used when a scene has no dedicated motion prompt.
const defaultMotionPrompt = "Create smooth, natural camera movement and bring the scene to life with subtle animations, maintaining character consistency"

// SubmitVideo issues one video generation request and returns the task handle
// to poll. Video rendering takes minutes, so this call always follows the
// asynchronous path.
func (c *Client) SubmitVideo(ctx context.Context, req VideoRequest) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	if len(req.FirstFrame) == 0 {
		return "", errors.New("minimax: first frame image is required")
	}
	prompt := truncatePrompt(req.Prompt, videoPromptMaxLen)
	if prompt == "" {
		prompt = truncatePrompt(defaultMotionPrompt, videoPromptMaxLen)
	}
	model := req.Model
	if model == "" {
		model = c.videoModel
	}
	payload := videoGenerationRequest{
		Model:           model,
		Prompt:          prompt,
		FirstFrameImage: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(req.FirstFrame),
	}

	body, err := c.postJSON(ctx, "/video_generation", payload)
	if err != nil {
		return "", err
	}

	taskID := extractString(body, "task_id", "data.task_id")
	if taskID == "" {
		return "", fmt.Errorf("minimax: video submission returned no task id")
	}
	c.logger.Debug().Str("task_id", taskID).Str("model", model).Msg("minimax: video task created")
	return taskID, nil
}
