package storage

import (
	"context"
	"fmt"
	neturl "net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/imagecodec"
)

// S3Config holds configuration for S3Store.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // custom endpoint for MinIO or LocalStack
	AccessKey string
	SecretKey string
	// PublicURL is prepended to object keys. Defaults to the upload location.
	PublicURL string
}

// S3Store uploads images to an S3 bucket.
type S3Store struct {
	client    *s3.Client
	uploader  *manager.Uploader
	bucket    string
	publicURL string
	logger    *zap.Logger
	now       func() time.Time
}

// NewS3Store creates an S3-backed store.
func NewS3Store(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    logger.Named("storage"),
		now:       time.Now,
	}, nil
}

// Put uploads the image under prefix and returns its URL.
func (s *S3Store) Put(ctx context.Context, prefix string, img *imagecodec.Image) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", fmt.Errorf("storage: empty image")
	}
	key := ObjectKey(prefix, img.MIMEType, s.now())

	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        img.Reader(),
		ContentType: aws.String(img.MIMEType),
	})
	if err != nil {
		s.logger.Error("upload failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("s3 upload failed for %s: %w", key, err)
	}

	s.logger.Debug("uploaded image", zap.String("key", key), zap.Int("bytes", len(img.Data)))
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	return out.Location, nil
}

// Get downloads the object behind a URL returned by Put. Data URIs left
// over from inline storage are decoded directly.
func (s *S3Store) Get(ctx context.Context, url string) (*imagecodec.Image, error) {
	if strings.HasPrefix(url, "data:") {
		return imagecodec.DecodeDataURI(url)
	}
	key, err := s.keyFor(url)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("download failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("s3 download failed for %s: %w", key, err)
	}
	defer out.Body.Close()

	img, err := imagecodec.Read(out.Body, MaxObjectSize)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return img, nil
}

// keyFor maps a public, path-style or virtual-hosted URL back to its key.
func (s *S3Store) keyFor(url string) (string, error) {
	if s.publicURL != "" && strings.HasPrefix(url, s.publicURL+"/") {
		return strings.TrimPrefix(url, s.publicURL+"/"), nil
	}
	u, err := neturl.Parse(url)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %.64s", ErrForeignURL, url)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if !strings.HasPrefix(u.Host, s.bucket+".") {
		var ok bool
		if key, ok = strings.CutPrefix(key, s.bucket+"/"); !ok {
			return "", fmt.Errorf("%w: %.64s", ErrForeignURL, url)
		}
	}
	if key == "" {
		return "", fmt.Errorf("%w: %.64s", ErrForeignURL, url)
	}
	return key, nil
}
