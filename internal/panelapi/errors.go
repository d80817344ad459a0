package panelapi

import (
	"errors"
	"net"
	"strings"
)

// ErrorKind classifies a failed panel call. Callers branch on the kind,
// never on raw message text.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindUnauthorized    ErrorKind = "unauthorized"
	KindRateLimited     ErrorKind = "rate_limited"
	KindNotFound        ErrorKind = "not_found"
	KindConnectionError ErrorKind = "connection_error"
	KindAPIError        ErrorKind = "api_error"
)

// classifyHTTP maps a response status code onto an ErrorKind.
func classifyHTTP(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindUnauthorized
	case status == 429:
		return KindRateLimited
	case status == 404:
		return KindNotFound
	case status >= 400:
		return KindAPIError
	}
	return KindNone
}

// classifyTransport maps a transport-layer error onto an ErrorKind.
func classifyTransport(err error) ErrorKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindConnectionError
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded") {
		return KindConnectionError
	}
	return KindConnectionError
}

// Message patterns panels use for a legitimately empty result ("order not
// found", "no data") as opposed to a hard failure. The fallback runner
// treats these as a cue to try the next candidate.
var notFoundPatterns = []string{
	"not found",
	"no data",
	"no orders",
	"incorrect order",
	"invalid order",
	"order not exist",
	"does not exist",
}

func isNotFoundMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range notFoundPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Auth error tokens used by the action-based dialect.
var authErrorTokens = []string{
	"bad_auth",
	"invalid key",
	"incorrect key",
	"invalid api key",
	"authentication",
}

func isAuthMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range authErrorTokens {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
