package minimax

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
)

// imagePromptMaxLen is the API's hard cap on image prompt length.
const imagePromptMaxLen = 1500

// ImageRequest captures the inputs for one image generation submission.
type ImageRequest struct {
	Prompt      string
	Count       int
	AspectRatio string
	// Reference optionally anchors every generated image to an uploaded
	// subject photo.
	Reference []byte
}

// ImageSubmission is the normalized outcome of a submission call. The same
// endpoint answers either synchronously with inline result URLs or
// asynchronously with a task handle to poll; exactly one of the fields is
// populated.
type ImageSubmission struct {
	TaskID string
	URLs   []string
}

type imageGenerationRequest struct {
	Model            string             `json:"model"`
	Prompt           string             `json:"prompt"`
	AspectRatio      string             `json:"aspect_ratio,omitempty"`
	ResponseFormat   string             `json:"response_format"`
	N                int                `json:"n"`
	PromptOptimizer  bool               `json:"prompt_optimizer"`
	SubjectReference []subjectReference `json:"subject_reference,omitempty"`
}

type subjectReference struct {
	Type  string `json:"type"`
	Image string `json:"image"`
}

// SubmitImage issues one image generation request. The prompt is truncated to
// the API's 1500-character cap before transmission.
func (c *Client) SubmitImage(ctx context.Context, req ImageRequest) (*ImageSubmission, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	prompt := truncatePrompt(req.Prompt, imagePromptMaxLen)
	if prompt == "" {
		return nil, errors.New("minimax: image prompt is required")
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}
	payload := imageGenerationRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		AspectRatio:    req.AspectRatio,
		ResponseFormat: "url",
		N:              count,
	}
	if len(req.Reference) > 0 {
		payload.SubjectReference = []subjectReference{{
			Type:  "character",
			Image: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(req.Reference),
		}}
	}

	body, err := c.postJSON(ctx, "/image_generation", payload)
	if err != nil {
		return nil, err
	}

	if urls := extractStringList(body, "data.image_urls", "data.images", "image_urls"); len(urls) > 0 {
		c.logger.Debug().Int("urls", len(urls)).Msg("minimax: image generated inline")
		return &ImageSubmission{URLs: urls}, nil
	}
	if taskID := extractString(body, "data.task_id", "task_id"); taskID != "" {
		c.logger.Debug().Str("task_id", taskID).Msg("minimax: image task created")
		return &ImageSubmission{TaskID: taskID}, nil
	}
	return nil, fmt.Errorf("minimax: image submission returned neither urls nor a task id")
}
