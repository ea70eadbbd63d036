package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"multipost/domain/dto"
	"multipost/domain/model"
	"multipost/domain/repository"
	"multipost/infrastructure/logger"
	"multipost/infrastructure/utils"
)

// Session describes where session tokens are read from.
type Session struct {
	SecretKey  string
	CookieName string
}

// Token returns the bearer token of the request, falling back to the
// session cookie.
func (s Session) Token(ctx *gin.Context) string {
	if authorization := ctx.GetHeader("Authorization"); authorization != "" {
		if token, ok := strings.CutPrefix(authorization, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if s.CookieName == "" {
		return ""
	}
	cookie, err := ctx.Cookie(s.CookieName)
	if err != nil {
		return ""
	}
	return cookie
}

// CurrentUser parses the session of the request without aborting it.
func (s Session) CurrentUser(ctx *gin.Context) (*model.UserClaims, error) {
	token := s.Token(ctx)
	if token == "" {
		return nil, errors.New("no session token")
	}
	return utils.ParseToken(token, s.SecretKey)
}

func Auth(session Session, userRepository repository.IUser) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

		claims, err := session.CurrentUser(ctx)
		if err != nil {
			res.ResponseMessage = reason(err)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		if _, err := userRepository.GetByUserName(ctx.Request.Context(), claims.UserName); err != nil {
			logger.GetLogger().WithField("username", claims.UserName).Warn("Session user no longer exists")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		ctx.Set("user_id", claims.Issuer)
		ctx.Set("username", claims.UserName)
		ctx.Next()
	}
}

func reason(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			// Token is either expired or not active yet
			return "Timing is everything"
		}
		return fmt.Sprintf("Couldn't handle this token:%v", err)
	}
	return "Unauthorized"
}
