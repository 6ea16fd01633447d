package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"petreel/internal/checkpoint"
	"petreel/internal/config"
	"petreel/internal/infra"
	"petreel/internal/minimax"
	"petreel/internal/storage"
)

// ErrNoCheckpoint is returned by Status when a session has no stored record.
var ErrNoCheckpoint = errors.New("pipeline: no checkpoint for session")

// ImageStageRequest carries the inputs for the image stage of a session.
type ImageStageRequest struct {
	SessionID string
	Prompts   []string
	// Reference optionally anchors every generated image to an uploaded
	// subject photo (e.g. the customer's dog).
	Reference []byte
	// TolerateFailures switches the stage into the explicit
	// continue-past-failures mode: failed items produce empty placeholders
	// instead of aborting the session.
	TolerateFailures bool
}

// VideoStageRequest carries the inputs for the video stage of a session.
// ImagePaths and MotionPrompts pair 1:1 by index.
type VideoStageRequest struct {
	SessionID     string
	ImagePaths    []string
	MotionPrompts []string
}

// Coordinator sequences the image and video scheduler runs into one session
// and hands image-stage outputs to the video stage. It holds no hidden state:
// every collaborator is injected once at construction.
type Coordinator struct {
	client *minimax.Client
	store  *checkpoint.Store
	files  *storage.FileStore
	sched  *Scheduler
	cfg    config.Pipeline
	logger infra.Logger
}

// NewCoordinator wires the pipeline against its collaborators.
func NewCoordinator(client *minimax.Client, store *checkpoint.Store, files *storage.FileStore, cfg config.Pipeline, logger infra.Logger) *Coordinator {
	return &Coordinator{
		client: client,
		store:  store,
		files:  files,
		sched:  NewScheduler(store, cfg.BatchDelay, logger),
		cfg:    cfg,
		logger: infra.Component(logger, "pipeline"),
	}
}

// RunImageStage generates one image set per prompt and returns the ordered
// list of produced image paths. Entries are empty only in tolerant mode, for
// items whose generation failed gracefully.
func (c *Coordinator) RunImageStage(ctx context.Context, req ImageStageRequest) ([]string, error) {
	if len(req.Prompts) == 0 {
		return nil, errors.New("pipeline: at least one prompt is required")
	}
	if len(req.Reference) > 0 {
		if _, err := c.files.Write(ctx, storage.ReferenceKey(req.SessionID), req.Reference); err != nil {
			return nil, fmt.Errorf("pipeline: save reference image: %w", err)
		}
	}
	return c.sched.Execute(ctx, Run{
		SessionID:       req.SessionID,
		Phase:           checkpoint.PhaseImageGeneration,
		Items:           req.Prompts,
		BatchSize:       c.cfg.ImageBatchSize,
		ContinueOnError: req.TolerateFailures,
		Do: func(ctx context.Context, index int, prompt string) (string, error) {
			return c.generateImage(ctx, req.SessionID, index, prompt, req.Reference)
		},
	})
}

// RunVideoStage animates each image into a clip using its paired motion
// prompt. The returned list has the same length as ImagePaths, with empty
// entries where no source image was available.
func (c *Coordinator) RunVideoStage(ctx context.Context, req VideoStageRequest) ([]string, error) {
	if len(req.ImagePaths) == 0 {
		return nil, errors.New("pipeline: at least one image path is required")
	}
	if len(req.MotionPrompts) != len(req.ImagePaths) {
		return nil, fmt.Errorf("pipeline: %d motion prompts for %d images", len(req.MotionPrompts), len(req.ImagePaths))
	}
	return c.sched.Execute(ctx, Run{
		SessionID: req.SessionID,
		Phase:     checkpoint.PhaseVideoGeneration,
		Items:     req.ImagePaths,
		BatchSize: c.cfg.VideoBatchSize,
		Do: func(ctx context.Context, index int, imagePath string) (string, error) {
			if imagePath == "" {
				// The image stage tolerated this item's failure; carry the
				// placeholder through so index pairing stays intact.
				return "", nil
			}
			return c.generateVideo(ctx, req.SessionID, index, imagePath, req.MotionPrompts[index])
		},
	})
}

// Run executes a full session end to end: prompts through images through
// clips. Image-stage outputs feed the video stage 1:1 by index.
func (c *Coordinator) Run(ctx context.Context, req ImageStageRequest, motionPrompts []string) ([]string, error) {
	images, err := c.RunImageStage(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.RunVideoStage(ctx, VideoStageRequest{
		SessionID:     req.SessionID,
		ImagePaths:    images,
		MotionPrompts: motionPrompts,
	})
}

func (c *Coordinator) generateImage(ctx context.Context, sessionID string, index int, prompt string, reference []byte) (string, error) {
	submission, err := c.client.SubmitImage(ctx, minimax.ImageRequest{
		Prompt:      prompt,
		Count:       c.cfg.ImageCount,
		AspectRatio: c.cfg.AspectRatio,
		Reference:   reference,
	})
	if err != nil {
		return "", err
	}
	urls := submission.URLs
	if submission.TaskID != "" {
		result, err := c.client.PollUntilTerminal(ctx, minimax.TaskImage, submission.TaskID, c.cfg.ImageMaxWait)
		if err != nil {
			return "", err
		}
		urls = result.URLs
		if len(urls) == 0 && result.FileID != "" {
			resolved, err := c.client.ResolveFile(ctx, result.FileID)
			if err != nil {
				return "", err
			}
			urls = []string{resolved}
		}
	}
	if len(urls) == 0 {
		return "", fmt.Errorf("pipeline: no image urls for item %d", index+1)
	}

	// All candidates are kept on disk; the first becomes the canonical
	// artifact handed to the video stage.
	first := ""
	for j, u := range urls {
		dest, err := c.files.Path(storage.ImageKey(sessionID, index, j, len(urls)))
		if err != nil {
			return "", err
		}
		written, err := c.client.Download(ctx, u, dest)
		if err != nil {
			return "", err
		}
		if first == "" {
			first = written
		}
	}
	return first, nil
}

func (c *Coordinator) generateVideo(ctx context.Context, sessionID string, index int, imagePath, motionPrompt string) (string, error) {
	frame, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("pipeline: read first frame: %w", err)
	}
	taskID, err := c.client.SubmitVideo(ctx, minimax.VideoRequest{
		Prompt:     motionPrompt,
		FirstFrame: frame,
	})
	if err != nil {
		return "", err
	}
	result, err := c.client.PollUntilTerminal(ctx, minimax.TaskVideo, taskID, c.cfg.VideoMaxWait)
	if err != nil {
		return "", err
	}
	videoURL := ""
	if len(result.URLs) > 0 {
		videoURL = result.URLs[0]
	} else if result.FileID != "" {
		videoURL, err = c.client.ResolveFile(ctx, result.FileID)
		if err != nil {
			return "", err
		}
	}
	if videoURL == "" {
		return "", fmt.Errorf("pipeline: no video artifact for item %d", index+1)
	}
	dest, err := c.files.Path(storage.VideoKey(sessionID, index))
	if err != nil {
		return "", err
	}
	return c.client.Download(ctx, videoURL, dest)
}

// Status returns the progress summary for a session.
func (c *Coordinator) Status(sessionID string) (checkpoint.Summary, error) {
	cp, err := c.store.Load(sessionID)
	if err != nil {
		return checkpoint.Summary{}, err
	}
	if cp == nil {
		return checkpoint.Summary{}, ErrNoCheckpoint
	}
	return cp.Summarize(), nil
}

// List returns summaries for every stored session, newest-first.
func (c *Coordinator) List() ([]checkpoint.Summary, error) {
	return c.store.List()
}

// Clear removes a session's checkpoint. Checkpoints are never cleared
// automatically, even on success; this is the explicit operator action.
func (c *Coordinator) Clear(sessionID string) error {
	return c.store.Clear(sessionID)
}

// ClearAll removes every stored checkpoint.
func (c *Coordinator) ClearAll() (int, error) {
	return c.store.ClearAll()
}
