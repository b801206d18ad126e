// Package profileimg signs time-bound GET URLs for profile images stored
// under opaque keys in an S3-compatible bucket.
package profileimg

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

const urlExpiry = 15 * time.Minute

type Config struct {
	Region       string
	BaseEndpoint string // set for MinIO-style deployments
	Bucket       string
	AccessKey    string
	SecretKey    string
}

type Signer struct {
	presign *s3.PresignClient
	bucket  string
}

func NewSigner(ctx context.Context, cfg Config) (*Signer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)))
	if err != nil {
		return nil, errors.Wrap(err, "[NewSigner] load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
	})

	return &Signer{presign: s3.NewPresignClient(client), bucket: cfg.Bucket}, nil
}

// SignedURL returns a presigned GET URL for the object key.
func (s *Signer) SignedURL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(urlExpiry))
	if err != nil {
		return "", errors.Wrap(err, "[Signer.SignedURL] presign get object")
	}
	return req.URL, nil
}
