package usecase

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"multipost/domain/model"
	"multipost/domain/repository"
	"multipost/infrastructure/logger"
)

// OnSettled is invoked once per platform as soon as its outcome is known.
type OnSettled func(platform string, outcome model.PublishOutcome)

type IPublishUsecase interface {
	Publish(ctx context.Context, req *model.PublishRequest, onSettled OnSettled) (map[string]model.PublishOutcome, error)
}

type publishUsecase struct {
	publishers map[model.Platform]repository.IPublisher
}

func NewPublishUsecase(publishers ...repository.IPublisher) IPublishUsecase {
	m := make(map[model.Platform]repository.IPublisher, len(publishers))
	for _, p := range publishers {
		if p != nil {
			m[p.Platform()] = p
		}
	}
	return &publishUsecase{publishers: m}
}

// target is one deduplicated platform entry of a request.
type target struct {
	key      string
	platform model.Platform
	known    bool
}

func targets(raw []string) []target {
	seen := make(map[string]struct{}, len(raw))
	out := make([]target, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		p, ok := model.ParsePlatform(r)
		key := string(p)
		if !ok {
			key = strings.TrimSpace(r)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, target{key: key, platform: p, known: ok})
	}
	return out
}

// Publish runs every requested platform concurrently and waits for all of
// them. A platform failure never cancels its siblings; only precondition
// violations are returned as errors.
func (u *publishUsecase) Publish(ctx context.Context, req *model.PublishRequest, onSettled OnSettled) (map[string]model.PublishOutcome, error) {
	if req == nil {
		return nil, model.ErrNoPlatforms
	}
	list := targets(req.Platforms)
	if len(list) == 0 {
		return nil, model.ErrNoPlatforms
	}
	info, err := os.Stat(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMediaUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", model.ErrMediaUnavailable, req.FilePath)
	}

	var (
		mu      sync.Mutex
		results = make(map[string]model.PublishOutcome, len(list))
		g       errgroup.Group
	)
	settle := func(key string, out model.PublishOutcome) {
		mu.Lock()
		results[key] = out
		mu.Unlock()
		if onSettled != nil {
			onSettled(key, out)
		}
	}

	for _, t := range list {
		t := t
		if !t.known {
			settle(t.key, model.UnknownPlatform(t.key))
			continue
		}
		publisher, ok := u.publishers[t.platform]
		if !ok {
			settle(t.key, model.Failed(&model.ConfigError{Platform: t.platform, Hint: "publisher is not enabled"}))
			continue
		}
		g.Go(func() error {
			settle(t.key, run(ctx, publisher, req))
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func run(ctx context.Context, publisher repository.IPublisher, req *model.PublishRequest) (out model.PublishOutcome) {
	start := time.Now()
	lg := logger.GetLogger().WithField("platform", publisher.Platform())
	lg.Info("Publishing")
	defer func() {
		if r := recover(); r != nil {
			lg.WithField("panic", r).Error("Publisher panicked")
			out = model.Failed(fmt.Errorf("internal error: %v", r))
		}
		lg.WithField("ok", out.OK).WithField("elapsed", time.Since(start).String()).Info("Publish settled")
	}()
	return publisher.Publish(ctx, req)
}
