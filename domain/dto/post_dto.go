package dto

import "multipost/domain/model"

// Res is the generic error body.
type Res struct {
	ResponseCode    string `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
}

// PostResponse is returned by POST /post.
type PostResponse struct {
	OK      bool                            `json:"ok"`
	ID      string                          `json:"id"`
	Results map[string]model.PublishOutcome `json:"results"`
}

// HistoryResponse is returned by GET /history.
type HistoryResponse struct {
	OK      bool                 `json:"ok"`
	History []model.HistoryEntry `json:"history"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	OK      bool        `json:"ok"`
	User    SessionUser `json:"user"`
	Token   string      `json:"token"`
	Message string      `json:"message"`
}

type SessionUser struct {
	ID       string `json:"id"`
	UserName string `json:"username"`
}
