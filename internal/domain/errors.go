package domain

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication failed")
	ErrNotFound       = errors.New("not found")
	ErrQuotaExceeded  = errors.New("quota exceeded")
	ErrUpstreamModel  = errors.New("upstream model failure")
	ErrStorage        = errors.New("storage failure")
	ErrPersistence    = errors.New("persistence failure")
)
