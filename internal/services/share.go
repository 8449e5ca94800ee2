package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appconfig "deo-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrShareUnavailable is returned when no share storage is configured
var ErrShareUnavailable = errors.New("sharing is not available")

// ShareStatus is the outcome reported to the share sheet
type ShareStatus string

const (
	ShareShared    ShareStatus = "shared"
	ShareCancelled ShareStatus = "cancelled"
	ShareError     ShareStatus = "error"
)

// ShareRequest is the content to share
type ShareRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ShareResult carries a link the platform share sheet can hand out
type ShareResult struct {
	Status    ShareStatus `json:"status"`
	URL       string      `json:"url,omitempty"`
	ExpiresIn int         `json:"expires_in,omitempty"`
}

// ObjectPublisher stores share payloads and signs read links to them
type ObjectPublisher interface {
	PutText(ctx context.Context, key, body string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ShareService turns prayers into shareable links
type ShareService struct {
	publisher ObjectPublisher
	ttl       time.Duration
}

// NewShareService creates a share service whose links expire after ttl
func NewShareService(publisher ObjectPublisher, ttl time.Duration) *ShareService {
	return &ShareService{publisher: publisher, ttl: ttl}
}

// Share stores the message and returns a pre-signed link to it.
// A cancelled context reports ShareCancelled rather than an error.
func (s *ShareService) Share(ctx context.Context, userID string, req ShareRequest) (*ShareResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}

	body := message
	if title := strings.TrimSpace(req.Title); title != "" {
		body = title + "\n\n" + message
	}
	key := fmt.Sprintf("shares/%s/%s.txt", userID, uuid.New().String())

	if err := s.publisher.PutText(ctx, key, body); err != nil {
		return s.failed(ctx, userID, err)
	}
	url, err := s.publisher.PresignGet(ctx, key, s.ttl)
	if err != nil {
		return s.failed(ctx, userID, err)
	}

	log.Info().Str("user_id", userID).Str("key", key).Msg("Share link created")
	return &ShareResult{
		Status:    ShareShared,
		URL:       url,
		ExpiresIn: int(s.ttl.Seconds()),
	}, nil
}

func (s *ShareService) failed(ctx context.Context, userID string, err error) (*ShareResult, error) {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return &ShareResult{Status: ShareCancelled}, nil
	}
	log.Error().Err(err).Str("user_id", userID).Msg("Failed to share")
	return &ShareResult{Status: ShareError}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
}

// S3Publisher stores share payloads in an S3-compatible bucket
type S3Publisher struct {
	client *s3.Client
	bucket string
}

// NewS3Publisher builds an S3 client from the AWS settings. Static keys and
// a custom endpoint are used when present.
func NewS3Publisher(ctx context.Context, cfg appconfig.AWSConfig) (*S3Publisher, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Publisher{client: client, bucket: cfg.S3Bucket}, nil
}

// PutText uploads body as a UTF-8 text object
func (p *S3Publisher) PutText(ctx context.Context, key, body string) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(body),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload share payload: %w", err)
	}
	return nil
}

// PresignGet returns a time-limited GET URL for key
func (p *S3Publisher) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(p.client)
	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}
	return request.URL, nil
}
