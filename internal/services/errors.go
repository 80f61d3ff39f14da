// Package services defines the business logic for prompt generation and
// regeneration. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrInvalidInputKind is returned when the request names an input kind
	// outside the accepted set (text, text-image, image).
	ErrInvalidInputKind = errors.New("invalid input type")

	// ErrEmptyText is returned when a text-kind request carries no text.
	ErrEmptyText = errors.New("text is required for text input type")

	// ErrTextTooLong is returned when the input text exceeds the configured
	// rune limit.
	ErrTextTooLong = errors.New("text too long")

	// ErrMaliciousContent is returned when the content-safety filter flags
	// the input text. The backend is never invoked for such requests.
	ErrMaliciousContent = errors.New("input content rejected")

	// ErrImageRequired is returned when an image-kind request carries no
	// image.
	ErrImageRequired = errors.New("image is required for this input type")

	// ErrImageTooLarge is returned when the uploaded image exceeds the size
	// ceiling.
	ErrImageTooLarge = errors.New("image too large")

	// ErrImageUnsupported is returned when the uploaded image's declared type
	// is not in the allowed set.
	ErrImageUnsupported = errors.New("unsupported image type")

	// ErrImageProcessing is returned when sanitization fails under the strict
	// policy. Under the lenient policy the original bytes pass through and
	// this error is never surfaced.
	ErrImageProcessing = errors.New("image processing failed")

	// ErrUpstream is returned when the generative backend is unreachable,
	// times out, or produces unusable output. Detail is attached for logs
	// but must not be leaked to clients.
	ErrUpstream = errors.New("generation backend failed")

	// ErrNotFoundOrExpired is returned when a regeneration target is unknown
	// or its cache entry has expired.
	ErrNotFoundOrExpired = errors.New("prompt not found or expired")
)
