package assets

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sinhabinayak2207/extrawork/internal/util"
)

// Local writes images under a directory that the HTTP server exposes at
// BaseURL.
type Local struct {
	Dir     string
	BaseURL string // e.g. http://localhost:8080/assets
}

// NewLocal creates a local host.
func NewLocal(dir, baseURL string) *Local {
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Upload implements Host.
func (l *Local) Upload(ctx context.Context, data []byte, destPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", uploadErr("local", err)
	}
	rel := filepath.FromSlash(strings.TrimLeft(destPath, "/"))
	if rel == "" || strings.HasPrefix(filepath.Clean(rel), "..") {
		return "", uploadErr("local", fmt.Errorf("invalid destination %q", destPath))
	}
	full := filepath.Join(l.Dir, rel)
	if err := util.EnsureDir(filepath.Dir(full)); err != nil {
		return "", uploadErr("local", err)
	}
	if err := util.WriteFileAtomic(full, data, 0644); err != nil {
		return "", uploadErr("local", err)
	}
	return l.BaseURL + "/" + filepath.ToSlash(rel), nil
}
