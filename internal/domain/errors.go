package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrAssetUnreachable = errors.New("asset unreachable")
	ErrProviderFailure  = errors.New("provider failure")
	ErrResolveTimeout   = errors.New("result resolution timed out")
)
