// Package errors provides foundational, type-safe error primitives used across tcide.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, auth, network, marker, archive, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, backoff, user action)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for error presentation and exit codes
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryNetwork, "challenge request failed").
//		WithRetry(errors.RetryBackoff).
//		WithContext("url", requestURL).
//		WithCause(originalErr).
//		Build()
package errors
