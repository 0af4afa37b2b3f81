package agentic

import "strings"

// ErrorKind classifies upstream parsing failures. The upstream service only
// signals failure through status codes and message text, so this is the one
// place that sniffing happens; everything above works with kinds.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUnauthorized
	KindServer
)

// Error is a classified upstream failure.
type Error struct {
	Kind ErrorKind
	msg  string
}

func (e *Error) Error() string { return e.msg }

// AuthSuspect reports whether the failure looks like the upstream rejecting
// or silently failing on credentials. Both unauthorized and server-side
// failures raise the sdk_auth_error heuristic, matching the upstream's
// observed behavior of failing silently on bad keys.
func (e *Error) AuthSuspect() bool {
	return e.Kind == KindUnauthorized || e.Kind == KindServer
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// ClassifyStatus maps an HTTP status to an error kind.
func ClassifyStatus(status int) ErrorKind {
	switch {
	case status == 401:
		return KindUnauthorized
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// ClassifyMessage sniffs an error's text for the auth/server markers the
// upstream embeds. Used for failures that arrive as opaque errors rather
// than HTTP responses.
func ClassifyMessage(msg string) ErrorKind {
	if strings.Contains(msg, "401") || strings.Contains(msg, "Unauthorized") {
		return KindUnauthorized
	}
	if strings.Contains(msg, "500") || strings.Contains(msg, "Internal Server Error") {
		return KindServer
	}
	return KindUnknown
}

// Describe renders the operator-facing message for a classified failure,
// falling back to the raw text for unknown kinds.
func Describe(kind ErrorKind, raw string) string {
	switch kind {
	case KindUnauthorized:
		return "Authentication failed (401 Unauthorized). Please check your VISION_AGENT_API_KEY."
	case KindServer:
		return "Server error (500). The document processing service is experiencing issues."
	default:
		return raw
	}
}
