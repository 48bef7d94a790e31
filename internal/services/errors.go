// Package services implements the business logic of the POI pipeline:
// location extraction, the link-processing coordinator, and user queries.
// This file centralizes service-level error values so they can be returned
// consistently and mapped to user-facing responses at the handler layer.
package services

import "errors"

var (
	// ErrUnsupportedPlatform is returned when the submitted URL is neither
	// YouTube nor Instagram. Terminal and user-facing.
	ErrUnsupportedPlatform = errors.New("URL platform not supported. Only YouTube and Instagram are supported.")

	// ErrDuplicateMessage is returned when the inbound message has already
	// been admitted. Short-circuits to a synthetic success, not a failure.
	ErrDuplicateMessage = errors.New("Message already processed")

	// ErrNoTranscript is returned when the fetched content carries no usable
	// transcript. YouTube requires both the plain transcript and the
	// timestamped segments; Instagram requires at least one transcript entry.
	ErrNoTranscript = errors.New("no transcript data available")

	// ErrExtractionFailed wraps LLM transport/schema failures. Callers treat
	// it as "no locations", not as a pipeline abort.
	ErrExtractionFailed = errors.New("location extraction failed")

	// ErrUserNotFound indicates the phone number has no user record.
	ErrUserNotFound = errors.New("user not found")

	// ErrJobNotFound indicates an unknown or expired job id.
	ErrJobNotFound = errors.New("job not found")
)
