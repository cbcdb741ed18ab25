package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jcastano/atelier/internal/models"
)

// StorageService stores uploaded product images and returns their public
// URLs.
type StorageService interface {
	Upload(ctx context.Context, userID, filename, contentType string, body io.Reader, size int64) (string, error)
}

// allowedImageTypes is the accept-list for product image uploads.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// MaxUploadSize caps product images at 5 MiB.
const MaxUploadSize = 5 << 20

// S3StorageService uploads to an S3 bucket fronted by a public CDN base
// URL.
type S3StorageService struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
	logger        *slog.Logger
}

func NewS3StorageService(region, bucket, publicBaseURL string, logger *slog.Logger) (*S3StorageService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3StorageService{
		client:        s3.NewFromConfig(cfg),
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

// Upload stores the image under <userID>/<unix-nano><ext> and returns its
// public URL. Keys are namespaced per uploader so concurrent admins never
// collide.
func (s *S3StorageService) Upload(ctx context.Context, userID, filename, contentType string, body io.Reader, size int64) (string, error) {
	if !allowedImageTypes[contentType] {
		s.logger.Info("upload rejected: unsupported content type", slog.String("content_type", contentType))
		return "", models.ErrBadRequest
	}
	if size <= 0 || size > MaxUploadSize {
		return "", models.ErrBadRequest
	}

	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("%s/%d%s", userID, time.Now().UnixNano(), ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		s.logger.Error("failed to upload image",
			slog.String("bucket", s.bucket),
			slog.String("key", key),
			slog.Any("error", err))
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	url := s.publicBaseURL + "/" + key
	s.logger.Info("image uploaded", slog.String("key", key))
	return url, nil
}
