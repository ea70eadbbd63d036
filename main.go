package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"multipost/domain/model"
	"multipost/domain/repository"
	instagramclient "multipost/infrastructure/clients/instagram"
	tiktokclient "multipost/infrastructure/clients/tiktok"
	youtubeclient "multipost/infrastructure/clients/youtube"
	"multipost/infrastructure/configuration"
	"multipost/infrastructure/logger"
	"multipost/infrastructure/mediahost"
	"multipost/infrastructure/persistence"
	"multipost/infrastructure/realtime"
	httpHandler "multipost/interfaces/http"
	"multipost/interfaces/middleware"
	"multipost/server"
	"multipost/usecase"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := configuration.Load()
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Cannot load configuration")
	}
	logger.Configure(cfg.Logger.Format, cfg.Logger.Level)

	res := &resources{}
	defer res.Close()

	credentials, err := newCredentialStore(ctx, cfg, res)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Cannot initialise credential store")
	}
	history, err := newHistoryStore(ctx, cfg, res)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Cannot initialise history store")
	}

	if err := persistence.EnsureUsersFile(cfg.Auth.UsersFile, cfg.Auth.DefaultPassword); err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Cannot prepare users file")
	}
	userRepository := persistence.NewUserRepository(cfg.Auth.UsersFile)

	host, err := mediahost.New(ctx, cfg)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Public media host unavailable - Instagram uploads will fail")
	}

	ytTokens := youtubeclient.NewTokenProvider(cfg.YouTube, credentials)
	ytClient := youtubeclient.NewYouTubeClient(cfg.YouTube, ytTokens)
	graph := instagramclient.NewGraphClient(cfg.Instagram.GraphBaseURL, nil)
	igPublisher := instagramclient.NewPublisher(cfg.Instagram, graph, host, credentials)
	igLinker := instagramclient.NewLinker(cfg.Instagram, graph, credentials)
	ttClient := tiktokclient.NewTikTokClient(cfg.TikTok, nil)

	logger.GetLogger().WithFields(map[string]interface{}{
		"youtubeMissing":   cfg.YouTube.Missing(false),
		"instagramMissing": cfg.Instagram.AppMissing(),
		"tiktokMissing":    cfg.TikTok.Missing(),
		"mediaHost":        cfg.Instagram.MediaHost,
	}).Info("Platform configuration state")

	hub := realtime.NewPublishHub()
	notifiers := append([]repository.IOutcomeNotifier{hub}, newNotifiers(ctx, cfg, res)...)

	publishUsecase := usecase.NewPublishUsecase(ytClient, igPublisher, ttClient)
	postUsecase := usecase.NewPostUsecase(publishUsecase, history, hub, notifiers...)
	statusUsecase := usecase.NewStatusUsecase(map[model.Platform]repository.IStatusChecker{
		model.PlatformYouTube:   ytClient,
		model.PlatformInstagram: igPublisher,
		model.PlatformTikTok:    ttClient,
	}, igPublisher)
	linkUsecase := usecase.NewLinkUsecase(igLinker, ytTokens)
	userUsecase := usecase.NewUserUsecase(userRepository, cfg.App.SecretKey, cfg.Auth.SessionTTL)

	session := middleware.Session{SecretKey: cfg.App.SecretKey, CookieName: cfg.Auth.CookieName}
	router := server.InitiateRouter(
		server.RouterConfig{FrontendURL: cfg.App.FrontendURL, Session: session, LoginPerMinute: cfg.Auth.LoginPerMinute},
		server.Handlers{
			Health: httpHandler.NewHealthHandler(),
			User:   httpHandler.NewUserHandler(userUsecase, session, cfg.Auth.SessionTTL, cfg.App.TLSEnabled),
			Post:   httpHandler.NewPostHandler(postUsecase, cfg.Upload.TmpDir, cfg.Upload.MaxSizeMB),
			Status: httpHandler.NewStatusHandler(statusUsecase),
			OAuth:  httpHandler.NewOAuthHandler(linkUsecase),
			Events: hub.Serve,
		},
		userRepository,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	logger.GetLogger().WithFields(map[string]interface{}{"port": cfg.App.Port, "tls": cfg.App.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		var err error
		if cfg.App.TLSEnabled && cfg.App.TLSCertFile != "" && cfg.App.TLSKeyFile != "" {
			logger.GetLogger().WithFields(map[string]interface{}{"cert": cfg.App.TLSCertFile, "key": cfg.App.TLSKeyFile}).Info("Serving HTTPS")
			err = httpServer.ListenAndServeTLS(cfg.App.TLSCertFile, cfg.App.TLSKeyFile)
		} else {
			if cfg.App.TLSEnabled {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			}
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.GetLogger().Info("Application shutdown requested")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		res.Close()
		os.Exit(2)
	}
}
