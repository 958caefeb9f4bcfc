package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Asset represents a GitHub Release asset.
type Asset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	URL                string `json:"url"`
	BrowserDownloadURL string `json:"browser_download_url"`
	ContentType        string `json:"content_type"`
}

// ListReleaseAssets returns all assets for the given release.
func (c *Client) ListReleaseAssets(ctx context.Context, owner, repo string, releaseID int64) ([]Asset, error) {
	u := c.url("repos", owner, repo, "releases", fmt.Sprintf("%d", releaseID), "assets") + "?per_page=100"
	var assets []Asset
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// FindAsset returns the first asset with the given name, or nil.
func (c *Client) FindAsset(ctx context.Context, owner, repo string, releaseID int64, name string) (*Asset, error) {
	assets, err := c.ListReleaseAssets(ctx, owner, repo, releaseID)
	if err != nil {
		return nil, err
	}
	for i := range assets {
		if assets[i].Name == name {
			return &assets[i], nil
		}
	}
	return nil, nil
}

// UploadAsset uploads a file as a release asset.
// The reader must yield exactly size bytes.
func (c *Client) UploadAsset(ctx context.Context, owner, repo string, releaseID int64, name string, r io.Reader, size int64, contentType string) (*Asset, error) {
	// Upload endpoint is on uploads.github.com, not api.github.com.
	// Enterprise or custom bases keep the same host.
	uploadBase := strings.Replace(c.apiBase, "api.github.com", "uploads.github.com", 1)
	uploadURL := fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets?name=%s",
		uploadBase, owner, repo, releaseID, url.QueryEscape(name))

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, r)
	if err != nil {
		return nil, err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("upload asset %q: %w", name, err)
	}

	var asset Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// DeleteAsset removes a release asset.
func (c *Client) DeleteAsset(ctx context.Context, owner, repo string, assetID int64) error {
	u := c.url("repos", owner, repo, "releases", "assets", fmt.Sprintf("%d", assetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return checkStatus(resp)
}
