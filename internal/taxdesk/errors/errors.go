package errors

import (
	"fmt"
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	// ErrStorageParse marks a persisted blob that could not be decoded.
	ErrStorageParse = fmt.Errorf("storage parse error")
	// ErrBackend marks a failed call to the AI backend or the report pipeline.
	ErrBackend = fmt.Errorf("backend error")
)
