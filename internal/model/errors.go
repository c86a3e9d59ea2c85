package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrDisabled is returned without any network I/O when the client has no
// usable API key. Callers treat it as "feature switched off".
var ErrDisabled = errors.New("model client disabled: api key not configured")

// ErrorKind tags why a call failed. The retry classifier only looks at the
// kind, never at error messages.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTimeout
	KindTransport
	KindHTTPStatus
	KindDecode
	KindEncode
	KindEmpty
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindHTTPStatus:
		return "http_status"
	case KindDecode:
		return "decode"
	case KindEncode:
		return "encode"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// CallError describes a failed model call.
type CallError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Header     http.Header
	Attempts   int
	Err        error
}

func (e *CallError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "model call failed (%s", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ", http %d", e.StatusCode)
	}
	if e.Attempts > 0 {
		fmt.Fprintf(&b, ", attempts=%d", e.Attempts)
	}
	b.WriteString(")")
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	} else if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(snippet(e.Body))
	}
	return b.String()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func IsCallError(err error) bool {
	var target *CallError
	return errors.As(err, &target)
}

// Classify maps an error to its ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindTransport
	}
	return KindUnknown
}

// Retryable reports whether err is transient. HTTP errors qualify only for
// 5xx answers.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindTimeout, KindTransport:
		return true
	case KindHTTPStatus:
		var callErr *CallError
		if errors.As(err, &callErr) {
			return callErr.StatusCode >= http.StatusInternalServerError && callErr.StatusCode < 600
		}
	}
	return false
}

// transportError wraps an error returned by the HTTP round trip.
func transportError(err error) *CallError {
	kind := KindTransport
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = KindTimeout
	}
	return &CallError{Kind: kind, Err: err}
}
