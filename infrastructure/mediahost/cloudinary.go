package mediahost

import (
	"context"
	"errors"
	"fmt"

	"multipost/domain/repository"
	"multipost/infrastructure/configuration"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryHost uploads media to Cloudinary and returns the secure URL.
type CloudinaryHost struct {
	cfg configuration.Cloudinary
	cld *cloudinary.Cloudinary
}

// NewCloudinaryHost builds the host. Missing credentials are not an error; the
// host reports itself unconfigured instead.
func NewCloudinaryHost(cfg configuration.Cloudinary) (*CloudinaryHost, error) {
	h := &CloudinaryHost{cfg: cfg}
	if !cfg.Configured() {
		return h, nil
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	if cfg.UploadPrefix != "" {
		cld.Config.API.UploadPrefix = cfg.UploadPrefix
	}
	h.cld = cld
	return h, nil
}

func (h *CloudinaryHost) Name() string { return ProviderCloudinary }

func (h *CloudinaryHost) Configured() bool { return h.cld != nil }

func (h *CloudinaryHost) Upload(ctx context.Context, filePath string) (*repository.HostedMedia, error) {
	if h.cld == nil {
		return nil, errors.New("cloudinary is not configured")
	}
	resp, err := h.cld.Upload.Upload(ctx, filePath, uploader.UploadParams{
		ResourceType:   "auto",
		Folder:         h.cfg.UploadFolder,
		Overwrite:      api.Bool(true),
		UseFilename:    api.Bool(true),
		UniqueFilename: api.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	if resp.Error.Message != "" {
		return nil, errors.New(resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return nil, errors.New("cloudinary returned no secure_url")
	}
	return &repository.HostedMedia{
		URL:          resp.SecureURL,
		PublicID:     resp.PublicID,
		Size:         int64(resp.Bytes),
		ResourceType: resp.ResourceType,
		Provider:     ProviderCloudinary,
	}, nil
}
