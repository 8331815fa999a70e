package controller_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/steveiliop56/tinyoauth/internal/controller"

	"gotest.tools/v3/assert"
)

func introspect(t *testing.T, recorderBody []byte) controller.IntrospectionResponse {
	t.Helper()

	var res controller.IntrospectionResponse
	err := json.Unmarshal(recorderBody, &res)
	assert.NilError(t, err)

	return res
}

func TestIntrospectAccessToken(t *testing.T) {
	router := setupRouter(t, testConfig())
	credentials := &[2]string{"some-client-id", "some-client-secret"}

	recorder := postForm(t, router, "/oauth/token", tokenForm{
		GrantType: "password",
		Username:  "testuser",
		Password:  "test",
		Scope:     "write",
	}, credentials)

	assert.Equal(t, http.StatusOK, recorder.Code)
	token := decodeToken(t, recorder)

	recorder = postForm(t, router, "/oauth/introspect", tokenForm{
		Token: token.AccessToken,
	}, credentials)

	assert.Equal(t, http.StatusOK, recorder.Code)

	res := introspect(t, recorder.Body.Bytes())
	assert.Equal(t, true, res.Active)
	assert.Equal(t, "write", res.Scope)
	assert.Equal(t, "some-client-id", res.ClientID)
	assert.Equal(t, "testuser", res.Subject)
	assert.Equal(t, "access_token", res.TokenType)
	assert.Equal(t, testAppURL, res.Iss)
	assert.Assert(t, res.Exp > res.Iat)
	assert.Assert(t, res.Jti != "")

	recorder = postForm(t, router, "/oauth/introspect", tokenForm{
		Token: token.RefreshToken,
	}, credentials)

	res = introspect(t, recorder.Body.Bytes())
	assert.Equal(t, true, res.Active)
	assert.Equal(t, "refresh_token", res.TokenType)
}

func TestIntrospectInactiveToken(t *testing.T) {
	router := setupRouter(t, testConfig())

	recorder := postForm(t, router, "/oauth/introspect", tokenForm{
		Token: "not-a-token",
	}, &[2]string{"some-client-id", "some-client-secret"})

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, `{"active":false}`, recorder.Body.String())
}

func TestIntrospectRequiresClient(t *testing.T) {
	router := setupRouter(t, testConfig())

	// Public clients cannot introspect
	recorder := postForm(t, router, "/oauth/introspect", tokenForm{
		ClientID: "public-client-id",
		Token:    "not-a-token",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, `Basic realm="tinyoauth"`, recorder.Header().Get("WWW-Authenticate"))

	recorder = postForm(t, router, "/oauth/introspect", tokenForm{}, &[2]string{"some-client-id", "some-client-secret"})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_request", decodeToken(t, recorder).Error)
}
