package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/plantnet/plantnet-server/pkg/storage"
)

// MaxImageSize bounds a plant image upload.
const MaxImageSize = 5 << 20

var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageService stores plant photos on the configured disk.
type ImageService struct {
	disk storage.Disk
}

func NewImageService(disk storage.Disk) *ImageService {
	return &ImageService{disk: disk}
}

// Upload stores r under a fresh name and returns its public URL.
func (s *ImageService) Upload(ctx context.Context, contentType string, r io.Reader) (string, error) {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := imageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type %q", ErrInvalidInput, contentType)
	}

	name := path.Join("plants", uuid.NewString()+ext)
	if err := s.disk.Put(ctx, name, io.LimitReader(r, MaxImageSize), contentType); err != nil {
		return "", fmt.Errorf("images: store %s: %w", name, err)
	}
	return s.disk.URL(name), nil
}
