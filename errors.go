package main

import (
	"errors"
	"net/http"
)

var (
	ErrEmailExists    = errors.New("email already registered")
	ErrUserNotFound   = errors.New("user not found")
	ErrEmptyContent   = errors.New("post content is empty")
	ErrEmptyBio       = errors.New("bio is empty")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenExpired   = errors.New("token has expired")
	ErrBadRequestBody = errors.New("malformed request body")
)

// statusFor maps a domain error to the HTTP status the API answers with.
// Unknown errors are treated as unexpected.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrEmptyBio), errors.Is(err, ErrBadRequestBody):
		return http.StatusBadRequest
	case errors.Is(err, ErrUserNotFound):
		// A missing record is reported as a bad request, not 404.
		return http.StatusBadRequest
	case errors.Is(err, ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
