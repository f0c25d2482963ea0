package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNetwork            = errors.New("network error")
	ErrStorageRead        = errors.New("storage read error")

	ErrUserNotFound = errors.New("user not found")
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidInput = errors.New("invalid input")
)
