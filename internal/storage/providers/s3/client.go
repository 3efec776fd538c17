// Package s3 stores objects in an S3 bucket or an S3-compatible service
// such as MinIO.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/mrlokans/lingua/internal/config"
	"github.com/mrlokans/lingua/internal/storage"
)

// Client implements storage.Client against a single bucket.
type Client struct {
	api       *s3.Client
	bucket    string
	keyPrefix string
}

var _ storage.Client = (*Client)(nil)

// New wraps an existing S3 client.
func New(api *s3.Client, bucket, keyPrefix string) *Client {
	if keyPrefix != "" && !strings.HasSuffix(keyPrefix, "/") {
		keyPrefix += "/"
	}
	return &Client{api: api, bucket: bucket, keyPrefix: keyPrefix}
}

// NewFromConfig builds the S3 client from storage settings and the default
// AWS configuration chain.
func NewFromConfig(ctx context.Context, cfg config.Storage) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
		// S3-compatible services often reject the newer default checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return New(api, cfg.Bucket, cfg.KeyPrefix), nil
}

func (c *Client) fullKey(p string) string {
	return c.keyPrefix + strings.TrimPrefix(p, "/")
}

func (c *Client) relKey(key string) string {
	return strings.TrimPrefix(key, c.keyPrefix)
}

// List returns objects and common prefixes directly under dir.
func (c *Client) List(ctx context.Context, dir string) ([]storage.FileInfo, error) {
	prefix := c.fullKey(strings.Trim(dir, "/"))
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(c.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var files []storage.FileInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, cp := range page.CommonPrefixes {
			rel := strings.TrimSuffix(c.relKey(aws.ToString(cp.Prefix)), "/")
			files = append(files, storage.FileInfo{
				Name:  path.Base(rel),
				Path:  rel,
				IsDir: true,
			})
		}
		for _, obj := range page.Contents {
			rel := c.relKey(aws.ToString(obj.Key))
			files = append(files, storage.FileInfo{
				Name:        path.Base(rel),
				Path:        rel,
				Size:        aws.ToInt64(obj.Size),
				ModifiedAt:  aws.ToTime(obj.LastModified),
				ContentHash: strings.Trim(aws.ToString(obj.ETag), `"`),
			})
		}
	}
	return files, nil
}

// Download streams the object at p. The caller closes it.
func (c *Client) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	resp, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.fullKey(p)),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, p)
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	return resp.Body, nil
}

// Upload buffers content so the request body is seekable and can be signed
// and retried.
func (c *Client) Upload(ctx context.Context, p string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("read upload content: %w", err)
	}

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.fullKey(p)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, p string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.fullKey(p)),
	})
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

// Exists reports whether an object is stored at p.
func (c *Client) Exists(ctx context.Context, p string) (bool, error) {
	_, err := c.GetMetadata(ctx, p)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c *Client) GetMetadata(ctx context.Context, p string) (*storage.FileInfo, error) {
	resp, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.fullKey(p)),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, p)
		}
		return nil, fmt.Errorf("s3 head object: %w", err)
	}

	rel := strings.TrimPrefix(p, "/")
	return &storage.FileInfo{
		Name:        path.Base(rel),
		Path:        rel,
		Size:        aws.ToInt64(resp.ContentLength),
		ModifiedAt:  aws.ToTime(resp.LastModified),
		ContentHash: strings.Trim(aws.ToString(resp.ETag), `"`),
	}, nil
}

// HealthCheck verifies the bucket is reachable with the configured credentials.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}

	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}
