package mediahost

import (
	"context"
	"fmt"

	"multipost/domain/repository"
	"multipost/infrastructure/configuration"
)

const (
	ProviderCloudinary = "cloudinary"
	ProviderS3         = "s3"
)

// New returns the public media host selected by IG_MEDIA_HOST.
func New(ctx context.Context, c *configuration.Config) (repository.IMediaHost, error) {
	switch c.Instagram.MediaHost {
	case "", ProviderCloudinary:
		host, err := NewCloudinaryHost(c.Cloudinary)
		if err != nil {
			return nil, err
		}
		return host, nil
	case ProviderS3:
		host, err := NewS3Host(ctx, c.S3)
		if err != nil {
			return nil, err
		}
		return host, nil
	default:
		return nil, fmt.Errorf("unknown media host %q", c.Instagram.MediaHost)
	}
}
