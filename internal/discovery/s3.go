package discovery

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"marketpulse/internal/ingest"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3Source lists and reads exports from an S3-compatible bucket. The
// object layout mirrors the local convention: <prefix>/<platform>/<file>.
type S3Source struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ Source = (*S3Source)(nil)

func NewS3Source(cfg S3Config) (*S3Source, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Source{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *S3Source) Discover(ctx context.Context) (ingest.FileSet, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("source is nil")
	}
	out := ingest.FileSet{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", s.bucket, obj.Err)
		}
		key := obj.Key
		if key == "" || strings.HasSuffix(key, "/") {
			continue
		}
		name := path.Base(key)
		family, ok := familyFor(name)
		if !ok {
			continue
		}
		data, err := s.read(ctx, key)
		if err != nil {
			continue
		}
		rel := strings.TrimPrefix(key, s.prefix)
		out[family] = append(out[family], ingest.File{
			Name:     name,
			Path:     key,
			ModTime:  obj.LastModified,
			Platform: platformForDir(topDir(rel)),
			Data:     data,
		})
	}
	return out, nil
}

func (s *S3Source) read(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}
