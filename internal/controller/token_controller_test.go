package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-querystring/query"
	"gotest.tools/v3/assert"
)

var machineCredentials = &[2]string{"machine-client-id", "machine-client-secret"}

func TestTokenClientCredentials(t *testing.T) {
	router := setupRouter(t, testConfig())

	recorder := postForm(t, router, "/oauth/token", tokenForm{
		GrantType: "client_credentials",
	}, machineCredentials)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "no-store", recorder.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", recorder.Header().Get("Pragma"))

	res := decodeToken(t, recorder)

	assert.Assert(t, res.AccessToken != "")
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, 3600, res.ExpiresIn)
	assert.Equal(t, "read", res.Scope)
	assert.Equal(t, "", res.RefreshToken)
}

func TestTokenClientCredentialsInBody(t *testing.T) {
	router := setupRouter(t, testConfig())

	recorder := postForm(t, router, "/oauth/token", tokenForm{
		GrantType:    "client_credentials",
		ClientID:     "machine-client-id",
		ClientSecret: "machine-client-secret",
	}, nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestTokenInvalidClient(t *testing.T) {
	router := setupRouter(t, testConfig())

	recorder := postForm(t, router, "/oauth/token", tokenForm{
		GrantType: "client_credentials",
	}, &[2]string{"machine-client-id", "wrong"})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, `Basic realm="tinyoauth"`, recorder.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "invalid_client", decodeToken(t, recorder).Error)

	// Unknown clients look exactly the same
	recorder = postForm(t, router, "/oauth/token", tokenForm{
		GrantType: "client_credentials",
	}, &[2]string{"unknown-client", "wrong"})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "invalid_client", decodeToken(t, recorder).Error)
}

func TestTokenBasicAndBodyCredentials(t *testing.T) {
	router := setupRouter(t, testConfig())

	recorder := postForm(t, router, "/oauth/token", tokenForm{
		GrantType:    "client_credentials",
		ClientSecret: "machine-client-secret",
	}, machineCredentials)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_request", decodeToken(t, recorder).Error)
}

func TestTokenGrantTypeErrors(t *testing.T) {
	router := setupRouter(t, testConfig())

	type testCase struct {
		description string
		form        tokenForm
		status      int
		error       string
	}

	tests := []testCase{
		{
			description: "Missing grant type",
			form:        tokenForm{},
			status:      http.StatusBadRequest,
			error:       "unsupported_grant_type",
		},
		{
			description: "Unknown grant type",
			form:        tokenForm{GrantType: "urn:ietf:params:oauth:grant-type:device_code"},
			status:      http.StatusBadRequest,
			error:       "unsupported_grant_type",
		},
		{
			description: "Grant not registered for client",
			form:        tokenForm{GrantType: "password", Username: "testuser", Password: "test"},
			status:      http.StatusBadRequest,
			error:       "unauthorized_client",
		},
		{
			description: "Scope outside of the client scopes",
			form:        tokenForm{GrantType: "client_credentials", Scope: "admin"},
			status:      http.StatusBadRequest,
			error:       "invalid_scope",
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			recorder := postForm(t, router, "/oauth/token", test.form, machineCredentials)
			assert.Equal(t, test.status, recorder.Code)
			assert.Equal(t, test.error, decodeToken(t, recorder).Error)
		})
	}
}

func TestTokenJSONBodyIsNotUnsupportedMediaType(t *testing.T) {
	router := setupRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(`{"grant_type":"client_credentials"}`))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("machine-client-id", "machine-client-secret")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	// The form is empty so the grant type is missing
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "unsupported_grant_type", decodeToken(t, recorder).Error)
}

func TestTokenPasswordGrant(t *testing.T) {
	router := setupRouter(t, testConfig())
	credentials := &[2]string{"some-client-id", "some-client-secret"}

	recorder := postForm(t, router, "/oauth/token", tokenForm{
		GrantType: "password",
		Username:  "testuser",
		Password:  "test",
		Scope:     "read",
	}, credentials)

	assert.Equal(t, http.StatusOK, recorder.Code)

	res := decodeToken(t, recorder)
	assert.Equal(t, "read", res.Scope)
	assert.Assert(t, res.RefreshToken != "")

	recorder = postForm(t, router, "/oauth/token", tokenForm{
		GrantType: "password",
		Username:  "testuser",
		Password:  "wrong",
	}, credentials)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_grant", decodeToken(t, recorder).Error)

	// No way to pass a second factor to the token endpoint
	recorder = postForm(t, router, "/oauth/token", tokenForm{
		GrantType: "password",
		Username:  "totpuser",
		Password:  "test",
	}, credentials)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_grant", decodeToken(t, recorder).Error)
}

func TestTokenAnonymousPasswordGrant(t *testing.T) {
	cfg := testConfig()
	cfg.OAuth.AnonymousPasswordGrant = true

	router := setupRouter(t, cfg)

	recorder := postForm(t, router, "/oauth/token", tokenForm{
		GrantType: "password",
		Username:  "testuser",
		Password:  "test",
	}, nil)

	assert.Equal(t, http.StatusOK, recorder.Code)

	res := decodeToken(t, recorder)
	assert.Assert(t, res.AccessToken != "")
	assert.Equal(t, "", res.RefreshToken)
}

func TestTokenAuthorizationCodeAndRefresh(t *testing.T) {
	router := setupRouter(t, testConfig())
	credentials := &[2]string{"some-client-id", "some-client-secret"}

	code := login(t, router, authorizeQuery{
		ResponseType: "code",
		ClientID:     "some-client-id",
		RedirectURI:  testRedirectURI,
		Scope:        "read write",
		State:        "xyz",
	}, "testuser", "test")

	recorder := postForm(t, router, "/oauth/token", tokenForm{
		GrantType:   "authorization_code",
		Code:        code,
		RedirectURI: testRedirectURI,
	}, credentials)

	assert.Equal(t, http.StatusOK, recorder.Code)

	first := decodeToken(t, recorder)
	assert.Equal(t, "read write", first.Scope)
	assert.Assert(t, first.RefreshToken != "")

	// Codes are single use
	recorder = postForm(t, router, "/oauth/token", tokenForm{
		GrantType:   "authorization_code",
		Code:        code,
		RedirectURI: testRedirectURI,
	}, credentials)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_grant", decodeToken(t, recorder).Error)

	// Narrow the scope on refresh
	recorder = postForm(t, router, "/oauth/token", tokenForm{
		GrantType:    "refresh_token",
		RefreshToken: first.RefreshToken,
		Scope:        "read",
	}, credentials)

	assert.Equal(t, http.StatusOK, recorder.Code)

	second := decodeToken(t, recorder)
	assert.Equal(t, "read", second.Scope)
	assert.Assert(t, second.RefreshToken != "")
	assert.Assert(t, second.RefreshToken != first.RefreshToken)

	// The rotated token is dead
	recorder = postForm(t, router, "/oauth/token", tokenForm{
		GrantType:    "refresh_token",
		RefreshToken: first.RefreshToken,
	}, credentials)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_grant", decodeToken(t, recorder).Error)
}

func TestTokenPublicClient(t *testing.T) {
	router := setupRouter(t, testConfig())

	code := login(t, router, authorizeQuery{
		ResponseType: "code",
		ClientID:     "public-client-id",
		RedirectURI:  testRedirectURI,
	}, "testuser", "test")

	recorder := postForm(t, router, "/oauth/token", tokenForm{
		GrantType:   "authorization_code",
		ClientID:    "public-client-id",
		Code:        code,
		RedirectURI: testRedirectURI,
	}, nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "read", decodeToken(t, recorder).Scope)
}

func TestTokenConcurrentCodeRedemption(t *testing.T) {
	router := setupRouter(t, testConfig())

	code := login(t, router, authorizeQuery{
		ResponseType: "code",
		ClientID:     "some-client-id",
		RedirectURI:  testRedirectURI,
	}, "testuser", "test")

	const workers = 100

	values, err := query.Values(tokenForm{
		GrantType:   "authorization_code",
		Code:        code,
		RedirectURI: testRedirectURI,
	})
	assert.NilError(t, err)

	body := values.Encode()

	statuses := make([]int, workers)
	kinds := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})

	// Workers only record results, assertions run on the test goroutine
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start

			req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.SetBasicAuth("some-client-id", "some-client-secret")

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)

			var res tokenResponse
			errs[i] = json.Unmarshal(recorder.Body.Bytes(), &res)
			statuses[i] = recorder.Code
			kinds[i] = res.Error
		}(i)
	}

	close(start)
	wg.Wait()

	successes := 0
	invalidGrants := 0

	for i := range workers {
		assert.NilError(t, errs[i])

		switch {
		case statuses[i] == http.StatusOK:
			successes++
		case statuses[i] == http.StatusBadRequest && kinds[i] == "invalid_grant":
			invalidGrants++
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, invalidGrants)
}

func TestTokenRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 2

	router := setupRouter(t, cfg)

	var last *httptest.ResponseRecorder

	for range 3 {
		last = postForm(t, router, "/oauth/token", tokenForm{
			GrantType: "client_credentials",
		}, machineCredentials)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "1", last.Header().Get("Retry-After"))
	assert.Equal(t, "slow_down", decodeToken(t, last).Error)
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupRouter(t, testConfig())

	postForm(t, router, "/oauth/token", tokenForm{
		GrantType: "client_credentials",
	}, machineCredentials)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Assert(t, strings.Contains(recorder.Body.String(), `tinyoauth_token_requests_total{grant_type="client_credentials",result="success"} 1`))

	cfg := testConfig()
	cfg.Server.Metrics = false

	router = setupRouter(t, cfg)
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
