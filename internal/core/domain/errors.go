package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")

	// ErrExtraction means no text at all could be recovered from the bytes.
	ErrExtraction = errors.New("extraction failed")
	// ErrNoClassifiableText means extraction succeeded but left nothing to score.
	ErrNoClassifiableText = errors.New("no classifiable text")
	// ErrUnknownBackend means the requested backend key is not registered.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrBackendUnavailable means the backend could not be invoked.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrClassificationTimeout means the per-document classification deadline passed.
	ErrClassificationTimeout = errors.New("classification timeout")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
