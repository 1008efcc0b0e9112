package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
	"github.com/satriahrh/learnvoice/internal/cachekey"
)

// MaxPresignExpiry is the longest lifetime SigV4 accepts for a presigned URL
const MaxPresignExpiry = 7 * 24 * time.Hour

// S3Config holds configuration for the S3 blob store
// Required fields:
// - Bucket: bucket name
// Optional fields:
// - Region: bucket region (default: "us-east-1")
// - Endpoint: custom endpoint, e.g. a Supabase Storage S3 endpoint
// - AccessKeyID / SecretAccessKey: static credentials (default: the AWS credential chain)
// - UsePathStyle: address the bucket in the path instead of the host
// - PublicBaseURL: when set, URLs are built on it instead of being presigned
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PublicBaseURL   string
}

// ValidateS3Config validates the S3 configuration
func ValidateS3Config(config S3Config) error {
	if config.Bucket == "" {
		return errors.New("bucket is required")
	}
	if (config.AccessKeyID == "") != (config.SecretAccessKey == "") {
		return errors.New("access key ID and secret access key must be set together")
	}
	return nil
}

// S3Store keeps blobs in an S3 compatible bucket
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
	logger    *zap.Logger
}

var _ repositories.BlobStore = (*S3Store)(nil)

// NewS3Store creates an S3 backed store
func NewS3Store(ctx context.Context, config S3Config, logger *zap.Logger) (*S3Store, error) {
	if err := ValidateS3Config(config); err != nil {
		return nil, fmt.Errorf("invalid S3 config: %w", err)
	}
	if config.Region == "" {
		config.Region = "us-east-1"
		logger.Info("Using default S3 region", zap.String("region", config.Region))
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
	if config.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.UsePathStyle
		// S3 compatible services reject the default trailing checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	logger.Info("Created S3 blob store",
		zap.String("bucket", config.Bucket),
		zap.String("region", config.Region),
		zap.String("endpoint", config.Endpoint))

	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    config.Bucket,
		publicURL: strings.TrimRight(config.PublicBaseURL, "/"),
		logger:    logger,
	}, nil
}

func (s *S3Store) Exists(ctx context.Context, key cachekey.Key) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key.Filename()),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to head object: %w", err)
}

func (s *S3Store) Get(ctx context.Context, key cachekey.Key) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key.Filename()),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, entities.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (s *S3Store) Put(ctx context.Context, key cachekey.Key, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key.Filename()),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// SignedURL presigns a GetObject request. Lifetimes above MaxPresignExpiry are clamped.
func (s *S3Store) SignedURL(ctx context.Context, key cachekey.Key, ttl time.Duration) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + key.Filename(), nil
	}

	if ttl > MaxPresignExpiry {
		ttl = MaxPresignExpiry
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key.Filename()),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return req.URL, nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
