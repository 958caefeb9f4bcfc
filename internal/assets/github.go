package assets

import (
	"bytes"
	"context"
	"strings"

	"github.com/sinhabinayak2207/extrawork/internal/github"
)

// GitHubReleaseOptions names the release that holds catalog images.
type GitHubReleaseOptions struct {
	Owner   string
	Repo    string
	Release string // tag; created on first upload
}

// GitHubReleases stores images as release assets. Asset names are flat, so
// the destination path is joined with "__".
type GitHubReleases struct {
	gh   *github.Client
	opts GitHubReleaseOptions
}

// NewGitHubReleases creates a release-asset host.
func NewGitHubReleases(gh *github.Client, opts GitHubReleaseOptions) *GitHubReleases {
	if opts.Release == "" {
		opts.Release = "catalog-images"
	}
	return &GitHubReleases{gh: gh, opts: opts}
}

// AssetName flattens a destination path into a release asset name.
func AssetName(destPath string) string {
	return strings.ReplaceAll(strings.Trim(destPath, "/"), "/", "__")
}

// Upload implements Host. An existing asset with the same name is replaced.
func (g *GitHubReleases) Upload(ctx context.Context, data []byte, destPath string) (string, error) {
	rel, err := g.gh.EnsureRelease(ctx, g.opts.Owner, g.opts.Repo, g.opts.Release)
	if err != nil {
		return "", uploadErr("github", err)
	}
	name := AssetName(destPath)

	existing, err := g.gh.FindAsset(ctx, g.opts.Owner, g.opts.Repo, rel.ID, name)
	if err != nil {
		return "", uploadErr("github", err)
	}
	if existing != nil {
		if err := g.gh.DeleteAsset(ctx, g.opts.Owner, g.opts.Repo, existing.ID); err != nil {
			return "", uploadErr("github", err)
		}
	}

	asset, err := g.gh.UploadAsset(ctx, g.opts.Owner, g.opts.Repo, rel.ID, name,
		bytes.NewReader(data), int64(len(data)), "image/jpeg")
	if err != nil {
		return "", uploadErr("github", err)
	}
	return asset.BrowserDownloadURL, nil
}
