// Package assets uploads prepared images to an asset host and returns the
// public URL readers should load.
package assets

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// ErrUpload wraps every failure to store bytes on the host.
var ErrUpload = errors.New("image upload failed")

// Host stores image bytes at a destination path and returns a public URL.
type Host interface {
	Upload(ctx context.Context, data []byte, destPath string) (string, error)
}

// DestPath builds the upload destination for an item image:
// <collection>/<id>/<unix-ms>_<name>.jpg
// The timestamp keeps every replacement at a fresh URL.
func DestPath(collection, id, filename string, now time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.Join(strings.Fields(name), "_")
	if name == "" || name == "." || name == "/" {
		name = "image"
	}
	return fmt.Sprintf("%s/%s/%d_%s.jpg", collection, id, now.UnixMilli(), name)
}

func uploadErr(host string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpload, host, err)
}
