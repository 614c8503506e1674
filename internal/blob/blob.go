// Package blob resolves a job's upload_ref into the uploaded file's raw
// bytes. It wraps github.com/minio/minio-go/v7, generalizing
// go-inference-service/minio_integration.go's MinIOService from a
// standalone upload+fetch HTTP handler into the narrow Get-only interface
// the orchestrator needs when it resolves upload_ref before handing bytes
// to extract.Extractor.
package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/autollama/ingestor/internal/ingesterr"
)

// Store resolves upload refs to bytes.
type Store interface {
	Get(ctx context.Context, ref string) (data []byte, contentType string, err error)
}

// MinIOStore implements Store over a MinIO/S3-compatible bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOStore dials endpoint with static credentials and ensures bucket
// exists, matching go-inference-service/minio_integration.go's
// initializeBucket behavior.
func NewMinIOStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinIOStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("blob: create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("blob: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("blob: create bucket: %w", err)
		}
	}

	return &MinIOStore{client: client, bucket: bucket}, nil
}

// Get fetches the object named by ref and returns its bytes and declared
// content type.
func (s *MinIOStore) Get(ctx context.Context, ref string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", ingesterr.New("blob.Get", ingesterr.NetworkTransient, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", ingesterr.New("blob.Get", ingesterr.NetworkTransient, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", ingesterr.New("blob.Get", ingesterr.NetworkTransient, err)
	}
	return data, info.ContentType, nil
}
