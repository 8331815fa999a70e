package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/steveiliop56/tinyoauth/internal/bootstrap"
	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
	"github.com/google/go-querystring/query"
	"gotest.tools/v3/assert"
)

const (
	testAppURL      = "https://auth.example.com"
	testRedirectURI = "https://example.com/oauth/callback"
	testTotpSecret  = "6WFZXPEZRK5MZHHYAFW4DAOUYQMCASBJ"
	// bcrypt of "test"
	testPasswordHash = "$2a$10$ne6z693sTgzT3ePoQ05PgOecUHnBjM7sSNj6M.l5CLUP.f6NyCnt."
)

type tokenForm struct {
	GrantType    string `url:"grant_type,omitempty"`
	ClientID     string `url:"client_id,omitempty"`
	ClientSecret string `url:"client_secret,omitempty"`
	Code         string `url:"code,omitempty"`
	RedirectURI  string `url:"redirect_uri,omitempty"`
	Username     string `url:"username,omitempty"`
	Password     string `url:"password,omitempty"`
	RefreshToken string `url:"refresh_token,omitempty"`
	Scope        string `url:"scope,omitempty"`
	Token        string `url:"token,omitempty"`
}

type authorizeQuery struct {
	ResponseType string `url:"response_type,omitempty"`
	ClientID     string `url:"client_id,omitempty"`
	RedirectURI  string `url:"redirect_uri,omitempty"`
	Scope        string `url:"scope,omitempty"`
	State        string `url:"state,omitempty"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func testConfig() config.Config {
	cfg := config.NewDefaultConfiguration()

	cfg.AppURL = testAppURL
	cfg.DatabasePath = ":memory:"
	cfg.Server.Metrics = true
	cfg.OAuth.PrivateKeyPath = ""
	cfg.OAuth.PublicKeyPath = ""
	cfg.Auth.Users = []string{
		"testuser:" + testPasswordHash,
		"totpuser:" + testPasswordHash + ":" + testTotpSecret,
	}
	cfg.OAuth.Clients = map[string]config.ClientConfig{
		"confidential": {
			ClientID:     "some-client-id",
			ClientSecret: "some-client-secret",
			Name:         "Some Client",
			RedirectURIs: []string{testRedirectURI},
			GrantTypes:   config.SupportedGrantTypes,
			Scopes:       []string{"read", "write"},
		},
		"public": {
			ClientID:     "public-client-id",
			RedirectURIs: []string{testRedirectURI},
			GrantTypes: []string{
				config.GrantTypeAuthorizationCode,
				config.GrantTypeRefreshToken,
			},
			Scopes: []string{"read"},
			Public: true,
		},
		"machine": {
			ClientID:     "machine-client-id",
			ClientSecret: "machine-client-secret",
			GrantTypes:   []string{config.GrantTypeClientCredentials},
			Scopes:       []string{"read"},
		},
	}

	return *cfg
}

func setupRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()

	tlog.NewSimpleLogger().Init()
	gin.SetMode(gin.TestMode)

	app := bootstrap.NewBootstrapApp(cfg)

	err := app.Setup()
	assert.NilError(t, err)

	return app.Router()
}

func postForm(t *testing.T, router *gin.Engine, path string, form tokenForm, basic *[2]string) *httptest.ResponseRecorder {
	t.Helper()

	values, err := query.Values(form)
	assert.NilError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if basic != nil {
		req.SetBasicAuth(basic[0], basic[1])
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	return recorder
}

func decodeToken(t *testing.T, recorder *httptest.ResponseRecorder) tokenResponse {
	t.Helper()

	var res tokenResponse
	err := json.Unmarshal(recorder.Body.Bytes(), &res)
	assert.NilError(t, err)

	return res
}

func authorizePath(t *testing.T, q authorizeQuery) string {
	t.Helper()

	values, err := query.Values(q)
	assert.NilError(t, err)

	return "/oauth/authorize?" + values.Encode()
}

// login posts the login form and returns the code from the redirect.
func login(t *testing.T, router *gin.Engine, q authorizeQuery, username string, password string) string {
	t.Helper()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req := httptest.NewRequest(http.MethodPost, authorizePath(t, q), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusFound, recorder.Code)

	location, err := url.Parse(recorder.Header().Get("Location"))
	assert.NilError(t, err)

	code := location.Query().Get("code")
	assert.Assert(t, code != "")

	return code
}
