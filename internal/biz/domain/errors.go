package domain

import (
	"errors"
	"fmt"
)

// MalformedPayloadError is returned when an inbound payload cannot be parsed
type MalformedPayloadError struct {
	Err error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err == nil {
		return "malformed payload"
	}
	return "malformed payload: " + e.Err.Error()
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// SignatureMismatchError is returned when a webhook signature does not verify
type SignatureMismatchError struct{}

func (e *SignatureMismatchError) Error() string {
	return "signature mismatch"
}

// ErrSignatureMismatch is the shared SignatureMismatchError value
var ErrSignatureMismatch error = &SignatureMismatchError{}

// UpstreamAPIError carries WeChat's errcode/errmsg envelope
type UpstreamAPIError struct {
	Op      string
	ErrCode int
	ErrMsg  string
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("wechat %s: errcode=%d errmsg=%s", e.Op, e.ErrCode, e.ErrMsg)
}

// Errcodes WeChat uses for an invalid or expired access token
const (
	ErrCodeInvalidCredential  = 40001
	ErrCodeInvalidAccessToken = 40014
	ErrCodeAccessTokenExpired = 42001
)

// TokenRejected reports whether the error means the access token must be refreshed
func (e *UpstreamAPIError) TokenRejected() bool {
	return IsTokenRejectedCode(e.ErrCode)
}

// IsTokenRejectedCode reports whether errcode means the access token is invalid or expired
func IsTokenRejectedCode(code int) bool {
	switch code {
	case ErrCodeInvalidCredential, ErrCodeInvalidAccessToken, ErrCodeAccessTokenExpired:
		return true
	}
	return false
}

// TransportError wraps network and HTTP level failures
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wechat %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTokenRejected reports whether err is an UpstreamAPIError for a bad token
func IsTokenRejected(err error) bool {
	var apiErr *UpstreamAPIError
	return errors.As(err, &apiErr) && apiErr.TokenRejected()
}
