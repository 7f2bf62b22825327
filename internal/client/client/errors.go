package client

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("access token expired")
	ErrServer       = errors.New("server rejected request")
	ErrBadResponse  = errors.New("malformed server response")
)
