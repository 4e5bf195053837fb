// Package gist implements the remote half of session-sync: a structured
// error taxonomy, a retry executor, the GitHub REST transport used to
// store encrypted session blobs in a private gist, and the local pointer
// record tracking which gist holds them.
package gist

import (
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a storage error. The classification decides whether an
// operation is retried: transport-level trouble is, everything signalling
// a config defect or a tamper/security condition is not.
type Kind int

const (
	// KindClientNotInitialized means the GitHub client was used before setup.
	KindClientNotInitialized Kind = iota

	// KindAPIRequest is a failed GitHub API call.
	KindAPIRequest

	// KindEncryption is a failed seal/open operation.
	KindEncryption

	// KindConfig is an invalid configuration field.
	KindConfig

	// KindNetworkTimeout is a request that exceeded its deadline.
	KindNetworkTimeout

	// KindSerialization is a failed encode/decode of session data.
	KindSerialization

	// KindSessionValidation is a session that failed metadata validation.
	KindSessionValidation

	// KindAuthenticationRequired means no usable OAuth token is available.
	KindAuthenticationRequired

	// KindGistNotFound means the tracked gist no longer exists remotely.
	KindGistNotFound

	// KindInvalidSessionData is a structurally broken remote payload.
	KindInvalidSessionData

	// KindRateLimit is a GitHub rate-limit rejection.
	KindRateLimit
)

// retryDelay5xx is the fixed fallback delay for retryable API failures
// when the server did not advertise one.
const retryDelay5xx = 5 * time.Second

// Error is the structured error for all gist storage operations. Only
// the fields relevant to the Kind are populated.
type Error struct {
	Kind       Kind
	Operation  string        // API operation or timeout context
	Field      string        // offending config field
	Reason     string        // human-readable detail
	Status     int           // HTTP status for API failures
	GistID     string        // for KindGistNotFound
	Timeout    time.Duration // for KindNetworkTimeout
	RetryAfter time.Duration // server-advertised delay for KindRateLimit
	Err        error         // wrapped cause, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindClientNotInitialized:
		return "github client not initialized - authenticate first"
	case KindAPIRequest:
		if e.Reason != "" {
			return fmt.Sprintf("github api request failed: %s - HTTP %d: %s", e.Operation, e.Status, e.Reason)
		}
		return fmt.Sprintf("github api request failed: %s - HTTP %d", e.Operation, e.Status)
	case KindEncryption:
		return fmt.Sprintf("encryption operation failed: %s", e.Reason)
	case KindConfig:
		return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Reason)
	case KindNetworkTimeout:
		return fmt.Sprintf("network timeout after %s during %s", e.Timeout, e.Operation)
	case KindSerialization:
		return fmt.Sprintf("serialization failed: %s", e.Reason)
	case KindSessionValidation:
		return fmt.Sprintf("session validation failed: %s", e.Reason)
	case KindAuthenticationRequired:
		return fmt.Sprintf("authentication required: %s", e.Reason)
	case KindGistNotFound:
		return fmt.Sprintf("gist not found: %s", e.GistID)
	case KindInvalidSessionData:
		return fmt.Sprintf("invalid session data: %s", e.Reason)
	case KindRateLimit:
		return fmt.Sprintf("rate limit exceeded: retry after %s", e.RetryAfter)
	default:
		return "unknown gist storage error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the operation that produced this error is
// worth re-attempting. CSRF, encryption, and validation failures are
// deliberately excluded: they indicate either a programming defect or
// tampering, and must surface instead of being silently re-attempted.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetworkTimeout, KindRateLimit:
		return true
	case KindAPIRequest:
		return e.Status >= http.StatusInternalServerError
	default:
		return false
	}
}

// RetryDelay returns how long to wait before the next attempt: the
// server-advertised value when present, a fixed short delay for 5xx,
// and zero (meaning "use the backoff schedule") otherwise.
func (e *Error) RetryDelay() time.Duration {
	switch e.Kind {
	case KindRateLimit:
		return e.RetryAfter
	case KindNetworkTimeout:
		return e.Timeout
	case KindAPIRequest:
		if e.Status >= http.StatusInternalServerError {
			return retryDelay5xx
		}
	}

	return 0
}

// Convenience constructors. They keep call sites compact and make the
// populated-fields-per-kind convention hard to get wrong.

func errAPIRequest(operation string, status int, reason string) *Error {
	return &Error{Kind: KindAPIRequest, Operation: operation, Status: status, Reason: reason}
}

func errTimeout(operation string, timeout time.Duration, cause error) *Error {
	return &Error{Kind: KindNetworkTimeout, Operation: operation, Timeout: timeout, Err: cause}
}

func errRateLimit(retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimit, RetryAfter: retryAfter}
}

// NotFoundErr builds a KindGistNotFound error for the given gist.
func NotFoundErr(gistID string) *Error {
	return &Error{Kind: KindGistNotFound, GistID: gistID}
}

// ConfigErr builds a KindConfig error for the given field.
func ConfigErr(field, reason string) *Error {
	return &Error{Kind: KindConfig, Field: field, Reason: reason}
}

// AuthRequired builds a KindAuthenticationRequired error.
func AuthRequired(reason string, cause error) *Error {
	return &Error{Kind: KindAuthenticationRequired, Reason: reason, Err: cause}
}

// SerializationErr builds a KindSerialization error.
func SerializationErr(reason string, cause error) *Error {
	return &Error{Kind: KindSerialization, Reason: reason, Err: cause}
}

// ValidationErr builds a KindSessionValidation error.
func ValidationErr(reason string, cause error) *Error {
	return &Error{Kind: KindSessionValidation, Reason: reason, Err: cause}
}

// EncryptionErr builds a KindEncryption error.
func EncryptionErr(reason string, cause error) *Error {
	return &Error{Kind: KindEncryption, Reason: reason, Err: cause}
}

// InvalidDataErr builds a KindInvalidSessionData error.
func InvalidDataErr(reason string, cause error) *Error {
	return &Error{Kind: KindInvalidSessionData, Reason: reason, Err: cause}
}
