package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	appErrors "github.com/johnquangdev/meeting-recorder/errors"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
	"github.com/johnquangdev/meeting-recorder/pkg/config"
)

// MinIOClient keeps a remote copy of saved meetings in a bucket
type MinIOClient struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ repositories.ArtifactStore = (*MinIOClient)(nil)

// NewMinIOClient creates a new MinIO client
func NewMinIOClient(ctx context.Context, cfg *config.StorageConfig) (*MinIOClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	client := &MinIOClient{
		client: minioClient,
		bucket: cfg.BucketName,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}

	if err := client.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return client, nil
}

// ensureBucket creates the bucket when it doesn't exist
func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ObjectKey returns <prefix>/<meetingID>/<file name>
func ObjectKey(prefix, meetingID, file string) string {
	return path.Join(strings.Trim(prefix, "/"), meetingID, filepath.Base(file))
}

// ContentType guesses the content type of a meeting artifact
func ContentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".mp4", ".m4a":
		return "audio/mp4"
	case ".wav":
		return "audio/wav"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// UploadArtifacts uploads every file under the meeting's key prefix
func (m *MinIOClient) UploadArtifacts(ctx context.Context, meetingID string, files []string) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, file := range files {
		key := ObjectKey(m.prefix, meetingID, file)
		_, err := m.client.FPutObject(ctx, m.bucket, key, file, minio.PutObjectOptions{
			ContentType: ContentType(file),
		})
		if err != nil {
			return keys, appErrors.ErrStorageFailed("upload "+filepath.Base(file), err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// GetFileURL gets a presigned URL for accessing an uploaded artifact
func (m *MinIOClient) GetFileURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}

// ListFiles lists the uploaded artifacts of a meeting
func (m *MinIOClient) ListFiles(ctx context.Context, meetingID string) ([]string, error) {
	var files []string

	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    path.Join(m.prefix, meetingID) + "/",
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", object.Err)
		}
		files = append(files, object.Key)
	}

	return files, nil
}
