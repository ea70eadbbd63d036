package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"multipost/domain/repository"
	httpHandler "multipost/interfaces/http"
	"multipost/interfaces/middleware"
)

// Handlers groups everything the router exposes.
type Handlers struct {
	Health httpHandler.IHealthHandler
	User   httpHandler.IUserHandler
	Post   httpHandler.IPostHandler
	Status httpHandler.IStatusHandler
	OAuth  httpHandler.IOAuthHandler
	Events gin.HandlerFunc
}

type RouterConfig struct {
	FrontendURL    string
	Session        middleware.Session
	LoginPerMinute int
}

func allowedOrigins(frontend string) []string {
	origins := []string{"http://localhost:5173", "http://localhost:4173"}
	for _, o := range strings.Split(frontend, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func InitiateRouter(cfg RouterConfig, h Handlers, userRepository repository.IUser) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	origins := allowedOrigins(cfg.FrontendURL)
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", h.Health.Health)

	router.POST("/auth/login", middleware.RateLimit(middleware.NewClientLimiter(cfg.LoginPerMinute, time.Minute)), h.User.Login)
	router.POST("/auth/logout", h.User.Logout)
	router.GET("/auth/status", h.User.Status)

	// OAuth providers redirect the browser here without a session header.
	router.GET("/auth/instagram/callback", h.OAuth.InstagramCallback)
	router.GET("/auth/youtube/callback", h.OAuth.YouTubeCallback)
	router.GET("/oauth2callback", h.OAuth.YouTubeCallback)

	api := router.Group("/")
	api.Use(middleware.Auth(cfg.Session, userRepository))
	api.POST("/post", h.Post.Post)
	api.GET("/history", h.Post.History)
	api.GET("/status/:platform", h.Status.Status)
	api.GET("/auth/instagram/url", h.OAuth.InstagramURL)
	api.GET("/auth/instagram/status", h.Status.InstagramLink)
	api.GET("/auth/youtube/url", h.OAuth.YouTubeURL)
	if h.Events != nil {
		api.GET("/events", h.Events)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return router
}
