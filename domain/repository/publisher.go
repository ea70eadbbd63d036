package repository

import (
	"context"

	"multipost/domain/dto"
	"multipost/domain/model"
)

// IPublisher wraps one platform's authorization, upload and publish sequence.
// Publish never returns an error: every failure is carried by the outcome.
type IPublisher interface {
	Platform() model.Platform
	Publish(ctx context.Context, req *model.PublishRequest) model.PublishOutcome
}

// IStatusChecker reports configuration completeness and live connectivity of
// a platform without uploading anything.
type IStatusChecker interface {
	Status(ctx context.Context) dto.PlatformStatus
}

// HostedMedia is a file pushed to a publicly reachable location.
type HostedMedia struct {
	URL          string `json:"url"`
	PublicID     string `json:"publicId,omitempty"`
	Size         int64  `json:"size,omitempty"`
	ResourceType string `json:"resourceType,omitempty"`
	Provider     string `json:"provider"`
}

// IMediaHost pushes a local file to public storage.
type IMediaHost interface {
	Name() string
	Configured() bool
	Upload(ctx context.Context, filePath string) (*HostedMedia, error)
}
