package domain

import "errors"

// Session is the backend's view of the current viewer session.
type Session struct {
	LoggedIn bool  `json:"logged_in"`
	UserID   int64 `json:"user_id"`
}

// ErrLoginFailed is returned when the backend rejects the credentials.
var ErrLoginFailed = errors.New("login failed")
