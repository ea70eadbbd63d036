package mediahost

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"multipost/domain/repository"
	"multipost/infrastructure/configuration"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Host puts media into a bucket. The public URL is PublicBaseURL/key when a
// CDN fronts the bucket, else a presigned GET valid for PresignTTL.
type S3Host struct {
	cfg     configuration.S3
	bucket  *string
	client  *s3.Client
	presign *s3.PresignClient
}

func NewS3Host(ctx context.Context, cfg configuration.S3) (*S3Host, error) {
	h := &S3Host{cfg: cfg}
	if !cfg.Configured() {
		return h, nil
	}

	awsConf, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	// If creds are provided in the configuration, they are directly forwarded to the client as static credentials.
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsConf.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}
	awsConf.Region = cfg.Region
	h.init(awsConf)
	return h, nil
}

// NewS3HostFromConfig builds the host from an explicit aws.Config.
func NewS3HostFromConfig(awsConf aws.Config, cfg configuration.S3) *S3Host {
	h := &S3Host{cfg: cfg}
	h.init(awsConf)
	return h
}

func (h *S3Host) init(awsConf aws.Config) {
	h.bucket = aws.String(h.cfg.Bucket)
	h.client = s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if h.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(h.cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	h.presign = s3.NewPresignClient(h.client)
}

func (h *S3Host) Name() string { return ProviderS3 }

func (h *S3Host) Configured() bool { return h.client != nil }

func (h *S3Host) Upload(ctx context.Context, filePath string) (*repository.HostedMedia, error) {
	if h.client == nil {
		return nil, errors.New("s3 is not configured")
	}
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	contentType, err := sniffContentType(file, filePath)
	if err != nil {
		return nil, err
	}
	ext := filepath.Ext(filePath)
	key := path.Join(h.cfg.Prefix, uuid.NewString()+ext)

	_, err = h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        h.bucket,
		Key:           aws.String(key),
		Body:          file,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return nil, err
	}

	publicURL, err := h.publicURL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &repository.HostedMedia{
		URL:          publicURL,
		PublicID:     key,
		Size:         info.Size(),
		ResourceType: resourceType(contentType),
		Provider:     ProviderS3,
	}, nil
}

func (h *S3Host) publicURL(ctx context.Context, key string) (string, error) {
	if h.cfg.PublicBaseURL != "" {
		return strings.TrimRight(h.cfg.PublicBaseURL, "/") + "/" + key, nil
	}
	ttl := h.cfg.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	req, err := h.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: h.bucket,
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// sniffContentType prefers the extension and falls back to content sniffing.
// The file offset is restored.
func sniffContentType(file *os.File, name string) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct, nil
	}
	head := make([]byte, 512)
	n, _ := file.Read(head)
	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func resourceType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	default:
		return "raw"
	}
}
