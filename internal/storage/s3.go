package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	cacheForever = "public, max-age=31536000, immutable"
	cacheShort   = "public, max-age=3600"
)

// Object is the result of a successful upload.
type Object struct {
	Key string
	URL string
}

// Gateway is the sole writer and deleter of binary assets and the sole
// authority on how a storage key maps to a public URL.
type Gateway interface {
	UploadPublic(ctx context.Context, data []byte, contentType, prefix, filename string, immutable bool) (*Object, error)
	UploadPublicKey(ctx context.Context, key string, data []byte, contentType string, immutable bool) (*Object, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// Config configures the S3 gateway. Endpoint is set for minio-style
// deployments; PublicBaseURL overrides URL derivation, with PathStyle
// selecting bucket-in-path addressing.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	PathStyle       bool
}

// s3API is the slice of the S3 client the gateway uses; tests fake it.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ Gateway = (*S3Gateway)(nil)

type S3Gateway struct {
	client s3API
	config Config
}

func NewS3Gateway(ctx context.Context, cfg Config) (*S3Gateway, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Gateway{client: client, config: cfg}, nil
}

// UploadPublic writes a publicly readable object and returns its key and URL.
func (g *S3Gateway) UploadPublic(ctx context.Context, data []byte, contentType, prefix, filename string, immutable bool) (*Object, error) {
	key := BuildKey(prefix, filename, data)
	if err := g.put(ctx, key, data, contentType, immutable); err != nil {
		return nil, err
	}
	return &Object{Key: key, URL: g.PublicURL(key)}, nil
}

// UploadPublicKey writes a publicly readable object under a caller-chosen key,
// overwriting any previous content. Used for deterministic derived keys.
func (g *S3Gateway) UploadPublicKey(ctx context.Context, key string, data []byte, contentType string, immutable bool) (*Object, error) {
	if err := g.put(ctx, key, data, contentType, immutable); err != nil {
		return nil, err
	}
	return &Object{Key: key, URL: g.PublicURL(key)}, nil
}

func (g *S3Gateway) put(ctx context.Context, key string, data []byte, contentType string, immutable bool) error {
	cacheControl := cacheShort
	if immutable {
		cacheControl = cacheForever
	}

	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(g.config.Bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return &WriteError{Key: key, Err: err}
	}
	return nil
}

func (g *S3Gateway) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &ReadError{Key: key, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &ReadError{Key: key, Err: err}
	}
	return data, nil
}

// Delete removes an object. Absence of the object is not an error.
func (g *S3Gateway) Delete(ctx context.Context, key string) error {
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.config.Bucket),
		Key:    aws.String(key),
	})
	return err
}

// PublicURL derives the public URL for a key without a round trip. With a
// configured public base the key resolves against it (bucket-in-path when
// PathStyle is set); otherwise the default virtual-hosted-style S3 URL.
func (g *S3Gateway) PublicURL(key string) string {
	if base := strings.TrimRight(g.config.PublicBaseURL, "/"); base != "" {
		if g.config.PathStyle {
			return fmt.Sprintf("%s/%s/%s", base, g.config.Bucket, key)
		}
		return fmt.Sprintf("%s/%s", base, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", g.config.Bucket, g.config.Region, key)
}
