package usecase

import (
	"context"
	"fmt"

	"multipost/domain/dto"
	"multipost/domain/model"
	"multipost/domain/repository"
)

// InstagramLinkReporter describes the stored Instagram link.
type InstagramLinkReporter interface {
	LinkStatus(ctx context.Context) dto.InstagramLinkStatus
}

type IStatusUsecase interface {
	Status(ctx context.Context, platform string) (dto.PlatformStatus, error)
	InstagramLink(ctx context.Context) dto.InstagramLinkStatus
}

type statusUsecase struct {
	checkers map[model.Platform]repository.IStatusChecker
	link     InstagramLinkReporter
}

func NewStatusUsecase(checkers map[model.Platform]repository.IStatusChecker, link InstagramLinkReporter) IStatusUsecase {
	return &statusUsecase{checkers: checkers, link: link}
}

func (u *statusUsecase) Status(ctx context.Context, platform string) (dto.PlatformStatus, error) {
	p, ok := model.ParsePlatform(platform)
	if !ok {
		return dto.PlatformStatus{}, fmt.Errorf("unknown platform %q", platform)
	}
	checker, ok := u.checkers[p]
	if !ok || checker == nil {
		return dto.PlatformStatus{}, fmt.Errorf("%s is not enabled", p)
	}
	return checker.Status(ctx), nil
}

func (u *statusUsecase) InstagramLink(ctx context.Context) dto.InstagramLinkStatus {
	if u.link == nil {
		return dto.InstagramLinkStatus{}
	}
	return u.link.LinkStatus(ctx)
}
