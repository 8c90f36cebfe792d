package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

var allowedMediaTypes = map[string]struct{}{
	"jpg": {}, "png": {}, "gif": {}, "webp": {}, "mp4": {}, "mov": {}, "webm": {},
}

// MediaService is step one of publishing: it moves the post's stored
// image or video onto the platform and returns the platform's media URL.
type MediaService interface {
	UploadMedia(ctx context.Context, imageRef string) (string, error)
}

type mediaService struct {
	objects  ObjectStore
	platform PlatformService
}

func NewMediaService(objects ObjectStore, platform PlatformService) MediaService {
	return &mediaService{objects: objects, platform: platform}
}

func (s *mediaService) UploadMedia(ctx context.Context, imageRef string) (string, error) {
	if imageRef == "" {
		return "", errors.New("post has no media")
	}

	payload, err := s.objects.GetObject(ctx, imageRef)
	if err != nil {
		return "", fmt.Errorf("error fetching media %s: %w", imageRef, err)
	}

	fileType, err := filetype.Match(payload)
	if err != nil || fileType == types.Unknown {
		return "", fmt.Errorf("unsupported file type for %s", imageRef)
	}
	if _, ok := allowedMediaTypes[fileType.Extension]; !ok {
		return "", fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	url, err := s.platform.UploadMedia(ctx, path.Base(imageRef), fileType.MIME.Value, payload)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return url, nil
}
