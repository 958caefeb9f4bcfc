package github

import (
	"context"
	"errors"
	"net/http"
)

// Repo represents a GitHub repository.
type Repo struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
}

// GetRepo fetches repository metadata. Returns ErrNotFound if absent.
func (c *Client) GetRepo(ctx context.Context, owner, repo string) (*Repo, error) {
	u := c.url("repos", owner, repo)
	var r Repo
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// RepoExists returns true if the repo exists and is accessible.
func (c *Client) RepoExists(ctx context.Context, owner, repo string) (bool, error) {
	_, err := c.GetRepo(ctx, owner, repo)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
