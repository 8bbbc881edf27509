package importing

import "errors"

var (
	ErrInvalidFile   = errors.New("unsupported or unreadable import file")
	ErrFileTooLarge  = errors.New("import file exceeds the size limit")
	ErrEnqueueImport = errors.New("failed to enqueue import job")
	ErrInvalidFilter = errors.New("invalid status filter")
)
