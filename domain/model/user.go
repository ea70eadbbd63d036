package model

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// User is an operator allowed to use the panel.
type User struct {
	ID        string    `json:"id"`
	UserName  string    `json:"username"`
	Password  string    `json:"password,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReqLogin struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

// UserClaims is the JWT payload of a session token.
type UserClaims struct {
	jwt.StandardClaims
	UserName string `json:"username"`
}
