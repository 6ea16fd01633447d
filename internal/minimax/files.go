package minimax

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ResolveFile exchanges an opaque file handle for a byte-fetchable URL. The
// URL has been observed nested differently across endpoint versions, so the
// known variants are tried in order.
func (c *Client) ResolveFile(ctx context.Context, fileID string) (string, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return "", errors.New("minimax: file id is required")
	}
	query := url.Values{}
	if c.groupID != "" {
		query.Set("GroupId", c.groupID)
	}
	body, err := c.getJSON(ctx, "/files/"+fileID, query)
	if err != nil {
		return "", err
	}
	downloadURL := extractString(body,
		"file.download_url",
		"url",
		"download_url",
		"data.url",
	)
	if downloadURL == "" {
		return "", fmt.Errorf("minimax: no download url for file %s", fileID)
	}
	return downloadURL, nil
}

// Download streams the artifact at fileURL to dest, creating parent
// directories as needed, and returns the final path. When dest has no
// extension, one is appended from the response's content type. An empty body
// is an error.
func (c *Client) Download(ctx context.Context, fileURL, dest string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(fileURL))
	if err != nil || parsed.Scheme == "" {
		return "", fmt.Errorf("minimax: invalid download url: %s", fileURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", fmt.Errorf("minimax: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("minimax: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("minimax: download status %d", resp.StatusCode)
	}

	if filepath.Ext(dest) == "" {
		dest += extensionFor(resp.Header.Get("Content-Type"))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("minimax: ensure directory: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("minimax: create file: %w", err)
	}
	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("minimax: write file: %w", err)
	}
	if written == 0 {
		os.Remove(dest)
		return "", fmt.Errorf("minimax: empty download from %s", parsed.Host)
	}
	c.logger.Debug().Str("path", dest).Int64("bytes", written).Msg("minimax: downloaded artifact")
	return dest, nil
}

func extensionFor(contentType string) string {
	contentType = strings.ToLower(contentType)
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "mp4"), strings.Contains(contentType, "video"):
		return ".mp4"
	default:
		return ".jpg"
	}
}
