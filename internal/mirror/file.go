package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/util"
)

const sumSuffix = ".sha256"

// File keeps each collection as <dir>/<collection>.yml with a sha256
// sidecar. Writes go to a temp file and are renamed into place.
type File struct {
	dir string

	mu   sync.Mutex
	seen map[catalog.Collection]string // checksum last written or read by this process
}

// NewFile creates a file mirror rooted at dir.
func NewFile(dir string) *File {
	return &File{dir: dir, seen: map[catalog.Collection]string{}}
}

// Dir returns the directory the mirror writes to.
func (f *File) Dir() string { return f.dir }

// Path returns the data file path for a collection.
// Layout: <dir>/<collection>.yml
func (f *File) Path(c catalog.Collection) string {
	return filepath.Join(f.dir, string(c)+".yml")
}

func (f *File) sumPath(c catalog.Collection) string {
	return f.Path(c) + sumSuffix
}

// Load implements Mirror.
func (f *File) Load(_ context.Context, c catalog.Collection) ([]catalog.Item, error) {
	data, err := os.ReadFile(f.Path(c))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("reading mirror: %w", err)
	}
	sum := util.SHA256Bytes(data)
	if err := verify(sum, f.expectedSum(c)); err != nil {
		return nil, err
	}
	items, err := decode(data)
	if err != nil {
		return nil, err
	}
	f.remember(c, sum)
	return items, nil
}

// Save implements Mirror.
func (f *File) Save(_ context.Context, c catalog.Collection, items []catalog.Item) error {
	data, err := catalog.Marshal(items)
	if err != nil {
		return err
	}
	if err := util.EnsureDir(f.dir); err != nil {
		return fmt.Errorf("create mirror dir: %w", err)
	}
	sum := util.SHA256Bytes(data)
	// Remember before the rename lands so a watcher never reports our own write.
	f.remember(c, sum)

	if err := util.WriteFileAtomic(f.Path(c), data, 0600); err != nil {
		return err
	}
	if err := util.WriteFileAtomic(f.sumPath(c), []byte(sum+"\n"), 0600); err != nil {
		return err
	}
	return nil
}

// Clear implements Mirror.
func (f *File) Clear(_ context.Context, c catalog.Collection) error {
	for _, p := range []string{f.Path(c), f.sumPath(c)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	f.mu.Lock()
	delete(f.seen, c)
	f.mu.Unlock()
	return nil
}

// Info implements Mirror.
func (f *File) Info(_ context.Context, c catalog.Collection) (Info, error) {
	info := Info{Collection: c, Location: f.Path(c)}
	st, err := os.Stat(f.Path(c))
	if err != nil {
		if os.IsNotExist(err) {
			return info, nil
		}
		return info, err
	}
	info.Exists = true
	info.Bytes = st.Size()
	info.SavedAt = st.ModTime().UTC()
	info.Checksum = f.expectedSum(c)
	if items, err := catalog.Load(f.Path(c)); err == nil {
		info.Items = len(items)
	}
	return info, nil
}

// Close implements Mirror.
func (f *File) Close() error { return nil }

// Changed reports whether the on-disk collection differs from what this
// process last wrote or read. A missing file counts as unchanged.
func (f *File) Changed(c catalog.Collection) bool {
	sum, err := util.SHA256File(f.Path(c))
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[c] != sum
}

func (f *File) remember(c catalog.Collection, sum string) {
	f.mu.Lock()
	f.seen[c] = sum
	f.mu.Unlock()
}

func (f *File) expectedSum(c catalog.Collection) string {
	data, err := os.ReadFile(f.sumPath(c))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// verify checks got against expected. An empty expected skips the check.
func verify(got, expected string) error {
	if expected == "" {
		return nil
	}
	if got != expected {
		return fmt.Errorf("%w: checksum mismatch: expected %s, got %s", ErrCorrupt, expected, got)
	}
	return nil
}
