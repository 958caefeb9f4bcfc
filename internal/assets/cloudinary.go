package assets

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const defaultUploadPreset = "ml_default"

// CloudinaryOptions configures unsigned uploads.
type CloudinaryOptions struct {
	CloudName    string
	UploadPreset string // unsigned preset; ml_default when empty
	BaseURL      string // upload API prefix; the public endpoint when empty
}

// Cloudinary uploads through an unsigned upload preset. The destination
// directory becomes the folder and the file name the public id.
type Cloudinary struct {
	preset string
	cld    *cloudinary.Cloudinary
}

// NewCloudinary creates a Cloudinary host. Unsigned uploads need no API
// key or secret.
func NewCloudinary(opts CloudinaryOptions) (*Cloudinary, error) {
	if opts.UploadPreset == "" {
		opts.UploadPreset = defaultUploadPreset
	}
	cld, err := cloudinary.NewFromParams(opts.CloudName, "", "")
	if err != nil {
		return nil, fmt.Errorf("configuring cloudinary: %w", err)
	}
	if opts.BaseURL != "" {
		cld.Upload.Config.API.UploadPrefix = strings.TrimRight(opts.BaseURL, "/")
	}
	return &Cloudinary{preset: opts.UploadPreset, cld: cld}, nil
}

// Upload implements Host.
func (c *Cloudinary) Upload(ctx context.Context, data []byte, destPath string) (string, error) {
	destPath = strings.Trim(destPath, "/")
	folder, file := path.Split(destPath)

	res, err := c.cld.Upload.UnsignedUpload(ctx, bytes.NewReader(data), c.preset, uploader.UploadParams{
		Folder:   strings.TrimSuffix(folder, "/"),
		PublicID: strings.TrimSuffix(file, path.Ext(file)),
	})
	if err != nil {
		return "", uploadErr("cloudinary", err)
	}
	if res.Error.Message != "" {
		return "", uploadErr("cloudinary", fmt.Errorf("%s", res.Error.Message))
	}
	if res.SecureURL == "" {
		return "", uploadErr("cloudinary", fmt.Errorf("response has no secure_url"))
	}
	return res.SecureURL, nil
}
