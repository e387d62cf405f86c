package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/brainhub/brain-ingest/pkg/types"
)

type Minio struct {
	Bucket string
	Region string
	cli    *minio.Client
}

func NewMinioClient(endpoint, region, bucket, ak, sk string, useSSL bool) (*Minio, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(ak, sk, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}
	return &Minio{Bucket: bucket, Region: region, cli: cli}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (m *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := m.cli.BucketExists(ctx, m.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.cli.MakeBucket(ctx, m.Bucket, minio.MakeBucketOptions{Region: m.Region})
}

func normalizeKey(key string) string {
	return strings.TrimPrefix(key, "/")
}

func (m *Minio) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.cli.StatObject(ctx, m.Bucket, normalizeKey(key), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

// SaveFile writes content to fullPath and refuses to overwrite an existing object.
func (m *Minio) SaveFile(ctx context.Context, fullPath string, content []byte) error {
	exists, err := m.Exists(ctx, fullPath)
	if err != nil {
		return fmt.Errorf("failed to stat object: %w", err)
	}
	if exists {
		return types.ErrObjectAlreadyExists
	}

	_, err = m.cli.PutObject(ctx, m.Bucket, normalizeKey(fullPath), bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: http.DetectContentType(content),
	})
	return err
}

func (m *Minio) DownloadFile(ctx context.Context, key string) (*types.GetObjectResult, error) {
	obj, err := m.cli.GetObject(ctx, m.Bucket, normalizeKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}
	return &types.GetObjectResult{
		File:     content,
		FileType: http.DetectContentType(content),
	}, nil
}

func (m *Minio) DeleteFile(ctx context.Context, fullPath string) error {
	return m.cli.RemoveObject(ctx, m.Bucket, normalizeKey(fullPath), minio.RemoveObjectOptions{})
}

func (m *Minio) ListFiles(ctx context.Context, prefix string) ([]types.ObjectInfo, error) {
	var result []types.ObjectInfo
	for obj := range m.cli.ListObjects(ctx, m.Bucket, minio.ListObjectsOptions{
		Prefix:    normalizeKey(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		result = append(result, types.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified.Unix(),
		})
	}
	return result, nil
}
