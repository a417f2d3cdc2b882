// Copyright 2018 Fabian Wenzelmann
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
)

// S3Config describes an S3 (or S3 compatible, for example MinIO) bucket.
type S3Config struct {
	// Endpoint is the URL of an S3 compatible service, empty for AWS.
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	// Prefix is prepended to all object keys.
	Prefix string
}

// S3API is the part of the S3 client used by S3Store.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads images to a bucket.
type S3Store struct {
	Client S3API
	Bucket string
	Prefix string
	// Metadata is attached to each uploaded object.
	Metadata map[string]string
}

// NewS3Client creates a client from cfg. Static credentials are used if an
// access key is given, otherwise the default credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...any) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				SigningRegion:     cfg.Region,
				HostnameImmutable: true,
			}, nil
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(customResolver))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO and friends don't support virtual host style buckets
		o.UsePathStyle = cfg.Endpoint != ""
	})
	return client, nil
}

// NewS3Store returns a store for the bucket in cfg.
func NewS3Store(client S3API, cfg S3Config) *S3Store {
	return &S3Store{
		Client:   client,
		Bucket:   cfg.Bucket,
		Prefix:   cfg.Prefix,
		Metadata: make(map[string]string),
	}
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.Bucket),
	})
	if err == nil {
		return nil
	}
	_, err = s.Client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.Bucket),
	})
	if err != nil {
		return fmt.Errorf("Failed to create bucket %s: %w", s.Bucket, err)
	}
	log.WithField("bucket", s.Bucket).Info("Created bucket")
	return nil
}

// Key returns the object key for name.
func (s *S3Store) Key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

// Save encodes img and uploads it as object Key(name).
func (s *S3Store) Save(ctx context.Context, name string, img image.Image) error {
	buf, encodeErr := encodeBuffer(img)
	if encodeErr != nil {
		return fmt.Errorf("Can't encode %s: %w", name, encodeErr)
	}
	key := s.Key(name)
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String("image/tiff"),
		Metadata:      s.Metadata,
	})
	if err != nil {
		return fmt.Errorf("Failed to upload %s: %w", key, err)
	}
	log.WithFields(log.Fields{
		"bucket": s.Bucket,
		"key":    key,
	}).Debug("Uploaded mosaic")
	return nil
}
