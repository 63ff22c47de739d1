package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Options struct {
	URL       string `yaml:"url"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"pathStyle"`
}

func NewDefaultS3Options() *S3Options {
	return &S3Options{
		Bucket:    "deepbark",
		Prefix:    "uploads",
		PathStyle: true,
	}
}

var _ Store = &S3Store{}

type S3Store struct {
	Bucket   string
	Prefix   string
	Uploader *manager.Uploader
}

func NewS3Store(ctx context.Context, options *S3Options) (*S3Store, error) {
	if options.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOptions := []func(*config.LoadOptions) error{
		config.WithRegion(options.Region),
	}
	if options.AccessKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(options.AccessKey, options.SecretKey, ""),
		))
	}
	if options.URL != "" {
		loadOptions = append(loadOptions, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: options.URL}, nil
				},
			),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, err
	}
	s3cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = options.PathStyle
	})
	return &S3Store{
		Bucket:   options.Bucket,
		Prefix:   options.Prefix,
		Uploader: manager.NewUploader(s3cli),
	}, nil
}

func (m *S3Store) Save(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}
	key := m.key(name)
	uploadobj := &s3.PutObjectInput{
		Bucket:        aws.String(m.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: int64(len(content)),
		ContentType:   aws.String(contentType),
	}
	if _, err := m.Uploader.Upload(ctx, uploadobj); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return m.location(key), nil
}

func (m *S3Store) key(name string) string {
	return path.Join(m.Prefix, name)
}

func (m *S3Store) location(key string) string {
	return "s3://" + m.Bucket + "/" + key
}
