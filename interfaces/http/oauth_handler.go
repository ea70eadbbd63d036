package http

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"

	"multipost/domain/model"
	"multipost/infrastructure/logger"
	"multipost/usecase"
)

type IOAuthHandler interface {
	InstagramURL(c *gin.Context)
	InstagramCallback(c *gin.Context)
	YouTubeURL(c *gin.Context)
	YouTubeCallback(c *gin.Context)
}

type OAuthHandler struct {
	linkUsecase usecase.ILinkUsecase
}

func NewOAuthHandler(linkUsecase usecase.ILinkUsecase) IOAuthHandler {
	return &OAuthHandler{linkUsecase: linkUsecase}
}

func (h *OAuthHandler) authURL(c *gin.Context, build func() (string, error)) {
	url, err := build()
	if err != nil {
		var configErr *model.ConfigError
		if errors.As(err, &configErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "missing": configErr.Missing})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// InstagramURL handles GET /auth/instagram/url
func (h *OAuthHandler) InstagramURL(c *gin.Context) {
	h.authURL(c, h.linkUsecase.InstagramAuthURL)
}

// YouTubeURL handles GET /auth/youtube/url
func (h *OAuthHandler) YouTubeURL(c *gin.Context) {
	h.authURL(c, h.linkUsecase.YouTubeAuthURL)
}

// InstagramCallback handles GET /auth/instagram/callback
func (h *OAuthHandler) InstagramCallback(c *gin.Context) {
	code, ok := callbackCode(c)
	if !ok {
		return
	}
	cred, err := h.linkUsecase.InstagramCallback(c.Request.Context(), code, c.Query("state"))
	if err != nil {
		callbackFailed(c, "Instagram", err)
		return
	}
	pageName := model.StringValue(cred.PageName)
	if pageName == "" {
		pageName = "Instagram page"
	}
	callbackPage(c, http.StatusOK, "Instagram connected!",
		fmt.Sprintf("Linked page: <strong>%s</strong>", html.EscapeString(pageName)))
}

// YouTubeCallback handles GET /auth/youtube/callback
func (h *OAuthHandler) YouTubeCallback(c *gin.Context) {
	code, ok := callbackCode(c)
	if !ok {
		return
	}
	if _, err := h.linkUsecase.YouTubeCallback(c.Request.Context(), code, c.Query("state")); err != nil {
		callbackFailed(c, "YouTube", err)
		return
	}
	callbackPage(c, http.StatusOK, "YouTube connected!", "The refresh token has been stored.")
}

func callbackCode(c *gin.Context) (string, bool) {
	if errorParam := c.Query("error"); errorParam != "" {
		callbackPage(c, http.StatusBadRequest, "Authorization failed", html.EscapeString(errorParam))
		return "", false
	}
	code := c.Query("code")
	if code == "" {
		callbackPage(c, http.StatusBadRequest, "Missing code", "Please try again.")
		return "", false
	}
	return code, true
}

func callbackFailed(c *gin.Context, platform string, err error) {
	if errors.Is(err, usecase.ErrInvalidState) {
		callbackPage(c, http.StatusBadRequest, "Authorization expired", "Start the connection again from the panel.")
		return
	}
	logger.GetLogger().WithField("platform", platform).WithField("error", err).Error("OAuth callback failed")
	callbackPage(c, http.StatusInternalServerError, "Could not complete the connection", html.EscapeString(err.Error()))
}

func callbackPage(c *gin.Context, status int, title, body string) {
	page := fmt.Sprintf(`<html>
  <body style="font-family: sans-serif; text-align: center; margin-top: 40px;">
    <h1>%s</h1>
    <p>%s</p>
    <p>You can close this window and return to the panel.</p>
    <script>setTimeout(() => { window.close(); }, 2000);</script>
  </body>
</html>`, html.EscapeString(title), body)
	c.Data(status, "text/html; charset=utf-8", []byte(page))
}
