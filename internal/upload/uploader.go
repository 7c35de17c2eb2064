package upload

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ErrUploadFailed means the media host rejected or failed the upload.
var ErrUploadFailed = errors.New("upload failed")

// Uploader sends a file to an external media host and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader) (string, error)
}

type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryUploader(cloudName, apiKey, apiSecret, folder string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, r io.Reader) (string, error) {
	res, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{Folder: u.folder})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if res == nil {
		return "", fmt.Errorf("%w: empty response", ErrUploadFailed)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("%w: no secure url in response", ErrUploadFailed)
	}
	return res.SecureURL, nil
}
