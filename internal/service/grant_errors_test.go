package service_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/steveiliop56/tinyoauth/internal/service"

	"gotest.tools/v3/assert"
)

func TestFailureMapping(t *testing.T) {
	external := map[string]bool{
		"invalid_request":        true,
		"invalid_client":         true,
		"invalid_grant":          true,
		"unauthorized_client":    true,
		"unsupported_grant_type": true,
		"invalid_scope":          true,
		"server_error":           true,
	}

	seen := map[string]bool{}

	for _, failure := range service.Failures() {
		name := failure.String()
		assert.Assert(t, name != "unknown", "failure %d has no name", int(failure))
		assert.Assert(t, !seen[name], "duplicate failure name %s", name)
		seen[name] = true

		kind := failure.Kind()
		assert.Assert(t, external[kind.String()], "failure %s maps to %s", name, kind)
	}

	assert.Equal(t, len(service.Failures()), 18)
}

func TestFailureKinds(t *testing.T) {
	cases := map[service.Failure]service.ErrorKind{
		service.FailureMissingGrantType:     service.KindUnsupportedGrantType,
		service.FailureUnknownGrantType:     service.KindUnsupportedGrantType,
		service.FailureMissingParameter:     service.KindInvalidRequest,
		service.FailureDuplicateClientAuth:  service.KindInvalidRequest,
		service.FailureRedirectMismatch:     service.KindInvalidRequest,
		service.FailureClientAuthMissing:    service.KindInvalidClient,
		service.FailureClientNotFound:       service.KindInvalidClient,
		service.FailureClientSecretMismatch: service.KindInvalidClient,
		service.FailureClientSecretRequired: service.KindInvalidClient,
		service.FailureGrantNotAllowed:      service.KindUnauthorizedClient,
		service.FailureScopeNotAllowed:      service.KindInvalidScope,
		service.FailureCodeInvalid:          service.KindInvalidGrant,
		service.FailureOwnerInvalid:         service.KindInvalidGrant,
		service.FailureOwnerLocked:          service.KindInvalidGrant,
		service.FailureOwnerTotpEnabled:     service.KindInvalidGrant,
		service.FailureRefreshInvalid:       service.KindInvalidGrant,
		service.FailureTimeout:              service.KindInternal,
		service.FailureStore:                service.KindInternal,
	}

	for failure, kind := range cases {
		assert.Equal(t, failure.Kind(), kind, failure.String())
	}
}

func TestErrorKindStatus(t *testing.T) {
	assert.Equal(t, service.KindInvalidClient.Status(), http.StatusUnauthorized)
	assert.Equal(t, service.KindInternal.Status(), http.StatusInternalServerError)
	assert.Equal(t, service.KindInvalidGrant.Status(), http.StatusBadRequest)
	assert.Equal(t, service.KindInvalidRequest.Status(), http.StatusBadRequest)
	assert.Equal(t, service.KindInternal.Description(), "")

	// Collapsed causes share a description
	assert.Equal(t, service.FailureCodeInvalid.Kind().Description(), service.FailureOwnerInvalid.Kind().Description())
}

func TestGrantErrorUnwrap(t *testing.T) {
	gerr := &service.GrantError{Failure: service.FailureCodeInvalid, Err: service.ErrCodeNotFound}

	assert.Assert(t, errors.Is(gerr, service.ErrCodeNotFound))
	assert.Equal(t, gerr.Kind(), service.KindInvalidGrant)
	assert.Equal(t, gerr.Error(), "code_invalid: authorization code not found")

	bare := &service.GrantError{Failure: service.FailureMissingParameter}
	assert.Equal(t, bare.Error(), "missing_parameter")
}
