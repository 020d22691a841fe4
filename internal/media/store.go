// Package media copies externally hosted images into the platform's own
// S3-compatible bucket so profile photos survive provider-side URL expiry.
package media

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
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxImageBytes = 10 << 20

var (
	errMissingBucket  = errors.New("media: bucket name required")
	errMissingBaseURL = errors.New("media: public base url required")
	errEmptySource    = errors.New("media: source url required")
)

// objectPutter is the slice of the S3 client the store uses, extracted so
// tests can substitute a fake.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// StoreConfig bundles bucket coordinates and credentials.
type StoreConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	PublicBaseURL string
	HTTPClient    *http.Client
	Logger        *zap.Logger

	// Client overrides the constructed S3 client; used by tests.
	Client objectPutter
}

// Store uploads images to an S3-compatible bucket and returns stable URLs.
type Store struct {
	client        objectPutter
	bucket        string
	publicBaseURL string
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewStore constructs a media store with validated configuration.
func NewStore(cfg StoreConfig) (*Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errMissingBucket
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := cfg.Client
	if client == nil {
		awsConfig := aws.Config{
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
			Region:      cfg.Region,
		}
		client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = true
		})
	}

	return &Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: baseURL,
		httpClient:    httpClient,
		logger:        logger,
	}, nil
}

// CopyFromURL downloads the source image and re-uploads it under a fresh key,
// returning the platform-hosted URL. Callers treat any error as a signal to
// keep the original URL; this method never needs to succeed for an overall
// operation to proceed.
func (s *Store) CopyFromURL(ctx context.Context, sourceURL string) (string, error) {
	source := strings.TrimSpace(sourceURL)
	if source == "" {
		return "", errEmptySource
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", err
	}
	response, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media: source fetch returned status %d", response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxImageBytes))
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", errors.New("media: source image was empty")
	}

	contentType := response.Header.Get("Content-Type")
	key := "profiles/" + uuid.NewString() + extensionFor(contentType)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}

	hosted := s.publicBaseURL + "/" + key
	s.logger.Debug("image re-hosted", zap.String("key", key), zap.Int("bytes", len(body)))
	return hosted, nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
