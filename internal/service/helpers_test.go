package service_test

import (
	"database/sql"
	"testing"

	"github.com/steveiliop56/tinyoauth/internal/bootstrap"
	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/repository"
	"github.com/steveiliop56/tinyoauth/internal/service"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"gotest.tools/v3/assert"
)

const (
	testRedirectURI = "https://example.com/oauth/callback"
	testIssuer      = "https://auth.example.com"
)

var testClients = map[string]config.ClientConfig{
	"confidential": {
		ClientID:     "some-client-id",
		ClientSecret: "some-client-secret",
		RedirectURIs: []string{testRedirectURI},
		GrantTypes: []string{
			config.GrantTypeClientCredentials,
			config.GrantTypeAuthorizationCode,
			config.GrantTypePassword,
			config.GrantTypeRefreshToken,
		},
		Scopes: []string{"read", "write"},
	},
	"public": {
		ClientID:     "public-client-id",
		RedirectURIs: []string{testRedirectURI},
		GrantTypes: []string{
			config.GrantTypeAuthorizationCode,
			config.GrantTypePassword,
			config.GrantTypeRefreshToken,
		},
		Scopes: []string{"read"},
		Public: true,
	},
	"trusted": {
		ClientID:       "trusted-client-id",
		ClientSecret:   "trusted-client-secret",
		RedirectURIs:   []string{testRedirectURI},
		SecretOptional: true,
		GrantTypes: []string{
			config.GrantTypeClientCredentials,
			config.GrantTypeAuthorizationCode,
			config.GrantTypePassword,
			config.GrantTypeRefreshToken,
		},
		Scopes: []string{"read"},
	},
	"machine": {
		ClientID:     "machine-client-id",
		ClientSecret: "machine-client-secret",
		GrantTypes:   []string{config.GrantTypeClientCredentials},
		Scopes:       []string{"read"},
	},
}

type testServices struct {
	queries *repository.Queries
	clients *service.ClientService
	auth    *service.AuthService
	codes   *service.CodeService
	tokens  *service.TokenService
	grants  *service.GrantService
	totp    string
}

type testOptions struct {
	rotate    bool
	anonymous bool
}

func setupDatabase(t *testing.T) (*sql.DB, *repository.Queries) {
	t.Helper()

	tlog.NewSimpleLogger().Init()

	app := bootstrap.NewBootstrapApp(config.Config{})

	db, err := app.SetupDatabase(":memory:")
	assert.NilError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db, repository.New(db)
}

func setupQueries(t *testing.T) *repository.Queries {
	t.Helper()
	_, queries := setupDatabase(t)
	return queries
}

func setupServices(t *testing.T, opts testOptions) *testServices {
	t.Helper()

	db, queries := setupDatabase(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	assert.NilError(t, err)

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "tinyoauth",
		AccountName: "totpuser",
	})
	assert.NilError(t, err)

	clients := service.NewClientService(service.ClientServiceConfig{
		Clients:    testClients,
		BcryptCost: bcrypt.MinCost,
	}, queries)
	assert.NilError(t, clients.Init())

	auth := service.NewAuthService(service.AuthServiceConfig{
		Users: []config.User{
			{Username: "user", Password: string(hash)},
			{Username: "totpuser", Password: string(hash), TotpSecret: key.Secret()},
		},
		SessionExpiry:     3600,
		LoginTimeout:      300,
		LoginMaxRetries:   3,
		SessionCookieName: config.SessionCookieName,
	}, clients, nil, queries)
	assert.NilError(t, auth.Init())

	codes := service.NewCodeService(service.CodeServiceConfig{
		CodeExpiry: 600,
	}, queries)

	tokens := service.NewTokenService(service.TokenServiceConfig{
		Issuer:              testIssuer,
		AccessTokenExpiry:   3600,
		RefreshTokenExpiry:  86400,
		RotateRefreshTokens: opts.rotate,
	}, db, queries)
	assert.NilError(t, tokens.Init())

	grants := service.NewGrantService(service.GrantServiceConfig{
		AnonymousPasswordGrant: opts.anonymous,
		StoreTimeout:           5000,
	}, auth, codes, tokens)

	return &testServices{
		queries: queries,
		clients: clients,
		auth:    auth,
		codes:   codes,
		tokens:  tokens,
		grants:  grants,
		totp:    key.Secret(),
	}
}
