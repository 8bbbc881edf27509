package importing

import "errors"

var (
	ErrNotFound     = errors.New("import job not found")
	ErrInvalidState = errors.New("import job is not in a retryable state")
	ErrFileGone     = errors.New("stored import file is missing")
)
