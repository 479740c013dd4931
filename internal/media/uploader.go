package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ErrUploaderNotConfigured is returned when no image host credentials exist.
var ErrUploaderNotConfigured = errors.New("image uploader not configured")

// Uploader stores an encoded image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// CloudinaryUploader uploads into one Cloudinary folder.
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryUploader builds an uploader from account credentials.
func NewCloudinaryUploader(cloudName, apiKey, apiSecret, folder string) (*CloudinaryUploader, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, ErrUploaderNotConfigured
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	res, err := u.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder: u.folder,
		Tags:   []string{"snapgram", "post"},
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload %q: %w", filename, err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload %q: %s", filename, res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload %q: empty url", filename)
	}
	return res.SecureURL, nil
}

// unconfigured rejects every upload.
type unconfigured struct{}

func (unconfigured) Upload(context.Context, string, []byte) (string, error) {
	return "", ErrUploaderNotConfigured
}

// Unconfigured is used when the image host has no credentials; post
// creation then fails with an internal error rather than at boot.
var Unconfigured Uploader = unconfigured{}
