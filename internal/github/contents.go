package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// FileContent is the GitHub Contents API response for a file.
type FileContent struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	HTMLURL  string `json:"html_url"`
}

// GetFileContent fetches a file's content via the Contents API.
// Returns (content, blobSHA, error). blobSHA is needed for PUT updates.
// For files > 1 MB it falls back to the Git Blobs API.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, string, error) {
	u := c.url("repos", owner, repo, "contents", path)
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, "", err
	}

	var fc FileContent
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, "", err
	}

	if fc.Encoding == "none" && fc.Size > 1*1024*1024 {
		// File too large for the Contents API; use the Blobs API for raw bytes.
		data, err := c.getRawBlob(ctx, owner, repo, fc.SHA)
		return data, fc.SHA, err
	}

	// GitHub wraps base64 lines at 60 chars.
	cleaned := strings.ReplaceAll(fc.Content, "\n", "")
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, "", fmt.Errorf("decoding contents: %w", err)
	}
	return data, fc.SHA, nil
}

// PutFileContent creates or updates a file via the Contents API and
// returns the new blob SHA. sha must be the current blob SHA when updating
// and empty when creating; a stale sha yields ErrConflict.
func (c *Client) PutFileContent(ctx context.Context, owner, repo, path, branch string, content []byte, sha, message string) (string, error) {
	body := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	if sha != "" {
		body["sha"] = sha
	}
	if branch != "" {
		body["branch"] = branch
	}
	var out struct {
		Content FileContent `json:"content"`
	}
	if err := c.doJSON(ctx, http.MethodPut, c.url("repos", owner, repo, "contents", path), body, &out); err != nil {
		return "", fmt.Errorf("put %s: %w", path, err)
	}
	return out.Content.SHA, nil
}

// getRawBlob downloads a blob by its SHA using the raw accept header.
// This bypasses the 1 MB base64 limit of the Contents API.
func (c *Client) getRawBlob(ctx context.Context, owner, repo, sha string) ([]byte, error) {
	u := c.url("repos", owner, repo, "git", "blobs", sha)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.raw")
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}
