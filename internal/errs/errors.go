// Package errs defines the error taxonomy shared by the proxy pipeline.
// Errors carry a Kind that maps one-to-one onto an HTTP status and a
// stable machine-readable code; they bubble unchanged from the point of
// failure to the handler layer.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of failure.
type Kind int

const (
	KindInternal Kind = iota
	KindFetchFailed
	KindFetchTimeout
	KindInvalidURL
	KindInvalidKeyFormat
	KindInvalidKeyLength
	KindSingleKeyRequired
	KindMultipleKeysRequired
	KindUnsupportedMethod
	KindUnsupportedCombination
	KindUnknownSegmentFormat
	KindDecryptionFailed
	KindInvalidHeaderEncoding
	KindInvalidByteRange
	KindInvalidIV
)

// Error is the concrete error type used across the proxy.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports kind equality so callers can match with errors.Is and a
// kind-only sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Code returns the stable machine-readable code for the error kind.
func (e *Error) Code() string {
	switch e.Kind {
	case KindFetchFailed:
		return "FETCH_FAILED"
	case KindFetchTimeout:
		return "FETCH_TIMEOUT"
	case KindInvalidURL:
		return "INVALID_URL"
	case KindInvalidKeyFormat:
		return "INVALID_KEY_FORMAT"
	case KindInvalidKeyLength:
		return "INVALID_KEY_LENGTH"
	case KindSingleKeyRequired:
		return "SINGLE_KEY_REQUIRED"
	case KindMultipleKeysRequired:
		return "MULTIPLE_KEYS_REQUIRED"
	case KindUnsupportedMethod:
		return "UNSUPPORTED_METHOD"
	case KindUnsupportedCombination:
		return "UNSUPPORTED_COMBINATION"
	case KindUnknownSegmentFormat:
		return "UNKNOWN_SEGMENT_FORMAT"
	case KindDecryptionFailed:
		return "DECRYPTION_FAILED"
	case KindInvalidHeaderEncoding:
		return "INVALID_HEADER_ENCODING"
	case KindInvalidByteRange:
		return "INVALID_BYTE_RANGE"
	case KindInvalidIV:
		return "INVALID_IV"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus returns the HTTP status an error of this kind maps to.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindFetchFailed:
		return http.StatusBadGateway
	case KindFetchTimeout:
		return http.StatusGatewayTimeout
	case KindInvalidURL, KindInvalidKeyFormat, KindInvalidKeyLength,
		KindSingleKeyRequired, KindMultipleKeysRequired,
		KindInvalidHeaderEncoding, KindInvalidByteRange, KindInvalidIV:
		return http.StatusBadRequest
	case KindUnsupportedMethod, KindUnsupportedCombination, KindUnknownSegmentFormat:
		return http.StatusNotImplemented
	case KindDecryptionFailed, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// FetchFailed reports a non-timeout upstream fetch failure.
func FetchFailed(url, reason string) *Error {
	return &Error{Kind: KindFetchFailed, Message: fmt.Sprintf("failed to fetch URL: %s - %s", url, reason)}
}

// FetchTimeout reports an upstream fetch timeout.
func FetchTimeout(url string) *Error {
	return &Error{Kind: KindFetchTimeout, Message: fmt.Sprintf("fetch timeout for URL: %s", url)}
}

// InvalidURL reports a malformed or unparseable URL.
func InvalidURL(detail string, cause error) *Error {
	return &Error{Kind: KindInvalidURL, Message: "invalid URL: " + detail, Cause: cause}
}

// InvalidKeyFormat reports a malformed decryption key parameter.
func InvalidKeyFormat(detail string) *Error {
	return &Error{Kind: KindInvalidKeyFormat, Message: "invalid key format: " + detail}
}

// InvalidKeyLength reports a key that is not 16 bytes.
func InvalidKeyLength() *Error {
	return &Error{Kind: KindInvalidKeyLength, Message: "invalid key length: expected 16 bytes"}
}

// SingleKeyRequired reports a multi-key where a single key is needed.
func SingleKeyRequired() *Error {
	return &Error{Kind: KindSingleKeyRequired, Message: "single key required but multiple keys provided"}
}

// MultipleKeysRequired reports a single key where a key set is needed.
func MultipleKeysRequired() *Error {
	return &Error{Kind: KindMultipleKeysRequired, Message: "multiple keys required but single key provided"}
}

// UnsupportedMethod reports an unknown decryption method parameter.
func UnsupportedMethod(method string) *Error {
	return &Error{Kind: KindUnsupportedMethod, Message: "unsupported decryption method: " + method}
}

// UnsupportedCombination reports a method/format pair with no primitive.
func UnsupportedCombination(method, format string) *Error {
	return &Error{Kind: KindUnsupportedCombination, Message: fmt.Sprintf("unsupported method/format combination: %s with %s", method, format)}
}

// UnknownSegmentFormat reports an unrecognized segment extension.
func UnknownSegmentFormat(ext string) *Error {
	return &Error{Kind: KindUnknownSegmentFormat, Message: "unknown segment format: " + ext}
}

// DecryptionFailed wraps a failure from a cryptographic primitive.
func DecryptionFailed(cause error) *Error {
	return &Error{Kind: KindDecryptionFailed, Message: "decryption failed", Cause: cause}
}

// InvalidHeaderEncoding reports an undecodable header parameter.
func InvalidHeaderEncoding(cause error) *Error {
	return &Error{Kind: KindInvalidHeaderEncoding, Message: "invalid header encoding", Cause: cause}
}

// InvalidByteRange reports a malformed byte range.
func InvalidByteRange(value string) *Error {
	return &Error{Kind: KindInvalidByteRange, Message: "invalid byte range format: " + value}
}

// InvalidIV reports a malformed initialization vector.
func InvalidIV(detail string) *Error {
	return &Error{Kind: KindInvalidIV, Message: "invalid IV format: " + detail}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Cause: cause}
}

// KindOf extracts the Kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
