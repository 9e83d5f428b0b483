package providers

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors surfaced to callers once a provider call cannot be
// salvaged by retrying.
var (
	ErrEmbeddingUnavailable  = errors.New("embedding provider unavailable")
	ErrGenerationUnavailable = errors.New("generation provider unavailable")
)

type ErrorClass int

const (
	ErrorUnknown ErrorClass = iota
	ErrorQuota
	ErrorRate
	ErrorTransient
	ErrorPermanent
	ErrorContext
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorQuota:
		return "quota"
	case ErrorRate:
		return "rate"
	case ErrorTransient:
		return "transient"
	case ErrorPermanent:
		return "permanent"
	case ErrorContext:
		return "context"
	default:
		return "unknown"
	}
}

// ClassifyError buckets a provider error by inspecting the message.
// Vendors rarely return typed errors over HTTP, so substring matching
// is the practical option.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorContext
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient_quota"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "billing"):
		return ErrorQuota
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "rate_limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "429"):
		return ErrorRate
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "502"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "504"),
		strings.Contains(msg, "overloaded"):
		return ErrorTransient
	case strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "invalid api key"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "model not found"),
		strings.Contains(msg, "404"):
		return ErrorPermanent
	default:
		return ErrorUnknown
	}
}

// Retryable reports whether a fresh attempt has any chance of a
// different outcome.
func Retryable(err error) bool {
	switch ClassifyError(err) {
	case ErrorRate, ErrorTransient:
		return true
	default:
		return false
	}
}
