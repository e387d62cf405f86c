package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/brainhub/brain-ingest/pkg/types"
)

type S3 struct {
	Endpoint  string
	Region    string
	Bucket    string
	ak        string
	sk        string
	pathStyle bool
	cli       *s3.Client
}

type Option func(*S3)

// WithPathStyle forces endpoint/bucket urls, required by MinIO style gateways.
func WithPathStyle(enabled bool) Option {
	return func(s *S3) {
		s.pathStyle = enabled
	}
}

func NewS3Client(endpoint, region, bucket, ak, sk string, opts ...Option) *S3 {
	cli := &S3{
		Endpoint: endpoint,
		Region:   region,
		Bucket:   bucket,
		ak:       ak,
		sk:       sk,
	}
	for _, opt := range opts {
		opt(cli)
	}

	if _, err := cli.DefaultConfig(context.Background()); err != nil {
		panic(err)
	}

	return cli
}

func (s *S3) DefaultConfig(ctx context.Context) (aws.Config, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID: s.ak, SecretAccessKey: s.sk,
			},
		}),
		config.WithRegion(s.Region),
	}
	if s.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           s.Endpoint,
				SigningRegion: s.Region,
			}, nil
		})))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, err
	}

	s.cli = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = s.pathStyle
	})
	return cfg, nil
}

func normalizeKey(key string) string {
	return strings.TrimPrefix(key, "/")
}

func isNotFound(err error) bool {
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

// Exists reports whether key is present in the bucket.
func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.cli.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(normalizeKey(key)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// SaveFile writes content to fullPath. An existing object is never
// overwritten, types.ErrObjectAlreadyExists is returned instead.
func (s *S3) SaveFile(ctx context.Context, fullPath string, content []byte) error {
	exists, err := s.Exists(ctx, fullPath)
	if err != nil {
		return fmt.Errorf("failed to stat object: %w", err)
	}
	if exists {
		return types.ErrObjectAlreadyExists
	}
	return s.Upload(ctx, fullPath, bytes.NewReader(content), int64(len(content)))
}

func (s *S3) Upload(ctx context.Context, fullPath string, body io.Reader, size int64) error {
	_, err := s.cli.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(normalizeKey(fullPath)),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	return err
}

func (s *S3) DownloadFile(ctx context.Context, key string) (*types.GetObjectResult, error) {
	resp, err := s.cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(normalizeKey(key)),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	fileContent, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Error reading file: %w", err)
	}

	return &types.GetObjectResult{
		File:     fileContent,
		FileType: http.DetectContentType(fileContent),
	}, nil
}

func (s *S3) DeleteFile(ctx context.Context, fullPath string) error {
	_, err := s.cli.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(normalizeKey(fullPath)),
	})
	return err
}

// ListFiles returns every object under prefix.
func (s *S3) ListFiles(ctx context.Context, prefix string) ([]types.ObjectInfo, error) {
	var (
		result    []types.ObjectInfo
		paginator = s3.NewListObjectsV2Paginator(s.cli, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.Bucket),
			Prefix: aws.String(normalizeKey(prefix)),
		})
	)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			info := types.ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.LastModified = obj.LastModified.Unix()
			}
			result = append(result, info)
		}
	}
	return result, nil
}
