package service

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrClientNotFound       = errors.New("client not found")
	ErrInvalidClientSecret  = errors.New("invalid client secret")
	ErrClientSecretRequired = errors.New("client secret required")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountLocked        = errors.New("account locked")
	ErrTotpRequired         = errors.New("totp required")
	ErrInvalidTotp          = errors.New("invalid totp code")
	ErrCodeNotFound         = errors.New("authorization code not found")
	ErrRedirectMismatch     = errors.New("redirect uri mismatch")
	ErrRefreshTokenInvalid  = errors.New("refresh token invalid")
	ErrScopeNotAllowed      = errors.New("scope not allowed")
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenRevoked         = errors.New("token revoked")
	ErrSessionNotFound      = errors.New("session not found")
)

// ErrorKind is the error code surfaced to OAuth clients.
type ErrorKind int

const (
	KindInvalidRequest ErrorKind = iota
	KindInvalidClient
	KindInvalidGrant
	KindUnauthorizedClient
	KindUnsupportedGrantType
	KindInvalidScope
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindInvalidClient:
		return "invalid_client"
	case KindInvalidGrant:
		return "invalid_grant"
	case KindUnauthorizedClient:
		return "unauthorized_client"
	case KindUnsupportedGrantType:
		return "unsupported_grant_type"
	case KindInvalidScope:
		return "invalid_scope"
	default:
		return "server_error"
	}
}

func (k ErrorKind) Status() int {
	switch k {
	case KindInvalidClient:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Description is shared by every failure of the same kind so that
// collapsed causes produce identical responses.
func (k ErrorKind) Description() string {
	switch k {
	case KindInvalidRequest:
		return "The request is missing a required parameter or is malformed"
	case KindInvalidClient:
		return "Client authentication failed"
	case KindInvalidGrant:
		return "The provided grant or credentials are invalid"
	case KindUnauthorizedClient:
		return "The client is not authorized to use this grant type"
	case KindUnsupportedGrantType:
		return "The grant type is not supported"
	case KindInvalidScope:
		return "The requested scope is invalid"
	default:
		return ""
	}
}

// Failure is the internal cause of a rejected request. It is logged but
// only its Kind reaches the client.
type Failure int

const (
	FailureMissingGrantType Failure = iota
	FailureUnknownGrantType
	FailureMissingParameter
	FailureDuplicateClientAuth
	FailureClientAuthMissing
	FailureClientNotFound
	FailureClientSecretMismatch
	FailureClientSecretRequired
	FailureGrantNotAllowed
	FailureScopeNotAllowed
	FailureCodeInvalid
	FailureRedirectMismatch
	FailureOwnerInvalid
	FailureOwnerLocked
	FailureOwnerTotpEnabled
	FailureRefreshInvalid
	FailureTimeout
	FailureStore
	failureEnd
)

func Failures() []Failure {
	failures := make([]Failure, 0, int(failureEnd))
	for f := Failure(0); f < failureEnd; f++ {
		failures = append(failures, f)
	}
	return failures
}

func (f Failure) String() string {
	switch f {
	case FailureMissingGrantType:
		return "missing_grant_type"
	case FailureUnknownGrantType:
		return "unknown_grant_type"
	case FailureMissingParameter:
		return "missing_parameter"
	case FailureDuplicateClientAuth:
		return "duplicate_client_auth"
	case FailureClientAuthMissing:
		return "client_auth_missing"
	case FailureClientNotFound:
		return "client_not_found"
	case FailureClientSecretMismatch:
		return "client_secret_mismatch"
	case FailureClientSecretRequired:
		return "client_secret_required"
	case FailureGrantNotAllowed:
		return "grant_not_allowed"
	case FailureScopeNotAllowed:
		return "scope_not_allowed"
	case FailureCodeInvalid:
		return "code_invalid"
	case FailureRedirectMismatch:
		return "redirect_mismatch"
	case FailureOwnerInvalid:
		return "owner_invalid"
	case FailureOwnerLocked:
		return "owner_locked"
	case FailureOwnerTotpEnabled:
		return "owner_totp_enabled"
	case FailureRefreshInvalid:
		return "refresh_invalid"
	case FailureTimeout:
		return "timeout"
	case FailureStore:
		return "store"
	default:
		return "unknown"
	}
}

func (f Failure) Kind() ErrorKind {
	switch f {
	case FailureMissingGrantType, FailureUnknownGrantType:
		return KindUnsupportedGrantType
	case FailureMissingParameter, FailureDuplicateClientAuth, FailureRedirectMismatch:
		return KindInvalidRequest
	case FailureClientAuthMissing, FailureClientNotFound, FailureClientSecretMismatch, FailureClientSecretRequired:
		return KindInvalidClient
	case FailureGrantNotAllowed:
		return KindUnauthorizedClient
	case FailureScopeNotAllowed:
		return KindInvalidScope
	case FailureCodeInvalid, FailureOwnerInvalid, FailureOwnerLocked, FailureOwnerTotpEnabled, FailureRefreshInvalid:
		return KindInvalidGrant
	default:
		return KindInternal
	}
}

type GrantError struct {
	Failure Failure
	Err     error
}

func (e *GrantError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Failure, e.Err)
	}
	return e.Failure.String()
}

func (e *GrantError) Unwrap() error {
	return e.Err
}

func (e *GrantError) Kind() ErrorKind {
	return e.Failure.Kind()
}

func newGrantError(failure Failure, err error) *GrantError {
	return &GrantError{Failure: failure, Err: err}
}
