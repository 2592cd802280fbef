package storage

import (
	"context"
	"fmt"
	"io/fs"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/vladyslav-onipko/space-server/internal/config"
	"github.com/vladyslav-onipko/space-server/internal/httperr"
)

// MaxImageSize caps uploaded images at roughly 500KB.
const MaxImageSize = 500 * 1024

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
}

// ImageStore keeps uploaded images in a MinIO bucket, namespaced by listing
// category ("places/<uuid>.png", "users/<uuid>.jpeg", ...).
type ImageStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *zap.Logger
}

func NewImageStore(cfg *config.Config, logger *zap.Logger) (*ImageStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, cfg.MinioEndpoint)
	}

	return &ImageStore{
		client:  client,
		bucket:  cfg.MinioBucket,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// CheckImage enforces the upload constraints: the image must be present, a
// png/jpeg/jpg and no larger than MaxImageSize.
func CheckImage(file *multipart.FileHeader) *httperr.Error {
	if file == nil {
		return httperr.Validation("Please check the entered data",
			httperr.FieldError{Field: "image", Message: "Image must not be empty"})
	}
	if _, ok := imageExtensions[file.Header.Get("Content-Type")]; !ok {
		return httperr.Validation("Please check the entered data",
			httperr.FieldError{Field: "image", Message: "Only png, jpeg and jpg images are allowed"})
	}
	if file.Size > MaxImageSize {
		return httperr.Validation("Please check the entered data",
			httperr.FieldError{Field: "image", Message: "Image must be smaller than 500KB"})
	}
	return nil
}

// Upload stores the image under the given folder and returns its public URL.
func (s *ImageStore) Upload(ctx context.Context, file *multipart.FileHeader, folder string) (string, error) {
	if err := CheckImage(file); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	objectName := fmt.Sprintf("%s/%s.%s", folder, uuid.NewString(), imageExtensions[contentType])

	_, err = s.client.PutObject(ctx, s.bucket, objectName, src, file.Size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, objectName), nil
}

// Remove releases a previously stored image. Best-effort: the caller never
// fails because an orphaned object could not be removed.
func (s *ImageStore) Remove(imageURL string) {
	objectName := s.objectFromURL(imageURL)
	if objectName == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
		if err != nil {
			s.logger.Warn("failed to remove image", zap.String("object", objectName), zap.Error(err))
		}
	}()
}

func (s *ImageStore) objectFromURL(imageURL string) string {
	prefix := fmt.Sprintf("%s/%s/", s.baseURL, s.bucket)
	if len(imageURL) <= len(prefix) || imageURL[:len(prefix)] != prefix {
		return ""
	}
	object := imageURL[len(prefix):]
	if !fs.ValidPath(object) {
		return ""
	}
	return object
}
