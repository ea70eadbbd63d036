package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"multipost/domain/dto"
	"multipost/domain/model"
	"multipost/infrastructure/logger"
	"multipost/interfaces/middleware"
	"multipost/usecase"
)

const (
	ErrorUnmarshal = "Error while unmarshal"
)

type IUserHandler interface {
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Status(c *gin.Context)
}

type UserHandler struct {
	userUsecase usecase.IUserUsecase
	session     middleware.Session
	ttl         time.Duration
	secure      bool
}

func NewUserHandler(userUsecase usecase.IUserUsecase, session middleware.Session, ttl time.Duration, secure bool) IUserHandler {
	return &UserHandler{userUsecase: userUsecase, session: session, ttl: ttl, secure: secure}
}

func (userHandler *UserHandler) Login(c *gin.Context) {
	var req model.ReqLogin

	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		c.JSON(http.StatusBadRequest, gin.H{"error": usecase.ErrMissingCredentials.Error()})
		return
	}

	res, err := userHandler.userUsecase.Login(c.Request.Context(), req)
	switch {
	case errors.Is(err, usecase.ErrMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	case err != nil:
		logger.GetLogger().WithField("error", err).Error("Login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process login"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(userHandler.session.CookieName, res.Token, int(userHandler.ttl.Seconds()), "/", "", userHandler.secure, true)
	c.JSON(http.StatusOK, res)
}

func (userHandler *UserHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(userHandler.session.CookieName, "", -1, "/", "", userHandler.secure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Logged out"})
}

func (userHandler *UserHandler) Status(c *gin.Context) {
	claims, err := userHandler.session.CurrentUser(c)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          dto.SessionUser{ID: claims.Issuer, UserName: claims.UserName},
	})
}
