// Package ingest resolves the image inputs accepted by the CLI into
// readable sources.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sinhabinayak2207/extrawork/internal/github"
)

// DefaultMaxBytes caps downloads when Options.MaxBytes is zero.
const DefaultMaxBytes = 20 << 20

// ErrTooLarge is returned when a source exceeds the size cap.
var ErrTooLarge = errors.New("image too large")

// Source holds a resolved input ready for reading.
type Source struct {
	// Name is the original filename (no directory), used for asset naming.
	Name string
	// Size is the byte count if known in advance (-1 if unknown).
	Size int64
	// Open returns a new ReadCloser.
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// Options configures Resolve.
type Options struct {
	// GitHub serves github: inputs; they are rejected when nil.
	GitHub   *github.Client
	HTTP     *http.Client
	MaxBytes int64
}

// githubPathRe matches "github:owner/repo@ref:path/to/file"
var githubPathRe = regexp.MustCompile(`^github:([^/]+)/([^@]+)@([^:]+):(.+)$`)

// Resolve determines the type of input and returns a Source.
// Supported formats:
//
//	/path/to/photo.jpg           local file
//	https://example.com/a.png    HTTP URL
//	github:owner/repo@ref:path   file in a GitHub repository
func Resolve(input string, opts Options) (*Source, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	switch {
	case strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://"):
		return resolveHTTP(input, opts)
	case strings.HasPrefix(input, "github:"):
		return resolveGitHub(input, opts)
	default:
		return resolveFile(input, opts.MaxBytes)
	}
}

func resolveFile(path string, max int64) (*Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%q is a directory", path)
	}
	if fi.Size() > max {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, fi.Size())
	}
	return &Source{
		Name: filepath.Base(path),
		Size: fi.Size(),
		Open: func(context.Context) (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

func resolveHTTP(url string, opts Options) (*Source, error) {
	client := opts.HTTP
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	return &Source{
		Name: guessFilenameFromURL(url),
		Size: -1,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
			}
			if resp.ContentLength > opts.MaxBytes {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, url, resp.ContentLength)
			}
			return limitReadCloser(resp.Body, opts.MaxBytes), nil
		},
	}, nil
}

func resolveGitHub(input string, opts Options) (*Source, error) {
	m := githubPathRe.FindStringSubmatch(input)
	if m == nil {
		return nil, fmt.Errorf("invalid github: path %q (expected github:owner/repo@ref:path/to/file)", input)
	}
	if opts.GitHub == nil {
		return nil, fmt.Errorf("github: inputs need a GitHub client")
	}
	owner, repo, ref, path := m[1], m[2], m[3], m[4]

	return &Source{
		Name: filepath.Base(path),
		Size: -1,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			data, _, err := opts.GitHub.GetFileContent(ctx, owner, repo, path, ref)
			if err != nil {
				return nil, fmt.Errorf("github %s/%s %s: %w", owner, repo, path, err)
			}
			if int64(len(data)) > opts.MaxBytes {
				return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, len(data))
			}
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}, nil
}

func guessFilenameFromURL(rawURL string) string {
	if idx := strings.IndexAny(rawURL, "?#"); idx >= 0 {
		rawURL = rawURL[:idx]
	}
	base := filepath.Base(rawURL)
	if base == "" || base == "." || base == "/" || strings.HasSuffix(rawURL, "/") || strings.Count(rawURL, "/") < 3 {
		return "download"
	}
	return base
}

type limitedBody struct {
	io.Reader
	io.Closer
}

// limitReadCloser fails the read that crosses max instead of truncating.
func limitReadCloser(rc io.ReadCloser, max int64) io.ReadCloser {
	return limitedBody{Reader: &capReader{r: rc, left: max}, Closer: rc}
}

type capReader struct {
	r    io.Reader
	left int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.left < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > c.left+1 {
		p = p[:c.left+1]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
