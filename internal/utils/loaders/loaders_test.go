package loaders_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/utils/loaders"

	"github.com/traefik/paerser/cli"
	"gotest.tools/v3/assert"
)

func newCommand() (*cli.Command, *config.Config) {
	cfg := config.NewDefaultConfiguration()
	return &cli.Command{
		Name:          "tinyoauth",
		Configuration: cfg,
	}, cfg
}

func TestFlagLoader(t *testing.T) {
	cmd, cfg := newCommand()

	ok, err := (&loaders.FlagLoader{}).Load([]string{
		"--server.port=4000",
		"--oauth.rotateRefreshTokens=false",
		"--oauth.clients.app.clientId=my-client",
		"--oauth.clients.app.redirectUris=https://app.example.com/cb",
	}, cmd)

	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, false, cfg.OAuth.RotateRefreshTokens)
	assert.Equal(t, "my-client", cfg.OAuth.Clients["app"].ClientID)
	assert.DeepEqual(t, []string{"https://app.example.com/cb"}, cfg.OAuth.Clients["app"].RedirectURIs)

	// Untouched defaults survive
	assert.Equal(t, 600, cfg.OAuth.CodeExpiry)
}

func TestFlagLoaderNoArgs(t *testing.T) {
	cmd, _ := newCommand()

	ok, err := (&loaders.FlagLoader{}).Load([]string{}, cmd)

	assert.NilError(t, err)
	assert.Assert(t, !ok)
}

func TestEnvLoader(t *testing.T) {
	cmd, cfg := newCommand()

	t.Setenv("TINYOAUTH_APPURL", "https://auth.example.com")
	t.Setenv("TINYOAUTH_OAUTH_ACCESSTOKENEXPIRY", "120")
	t.Setenv("TINYOAUTH_OAUTH_CLIENTS_BACKEND_CLIENTID", "backend")
	t.Setenv("TINYOAUTH_OAUTH_CLIENTS_BACKEND_GRANTTYPES", "client_credentials")
	t.Setenv("TINYOAUTH_OAUTH_CLIENTS_BACKEND_SECRETOPTIONAL", "true")
	t.Setenv("TINYOAUTH_OAUTH_ANONYMOUSPASSWORDGRANT", "false")

	ok, err := (&loaders.EnvLoader{}).Load(nil, cmd)

	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Equal(t, "https://auth.example.com", cfg.AppURL)
	assert.Equal(t, 120, cfg.OAuth.AccessTokenExpiry)
	assert.Equal(t, "backend", cfg.OAuth.Clients["backend"].ClientID)
	assert.DeepEqual(t, []string{"client_credentials"}, cfg.OAuth.Clients["backend"].GrantTypes)
	assert.Assert(t, cfg.OAuth.Clients["backend"].SecretOptional)
	assert.Assert(t, !cfg.OAuth.AnonymousPasswordGrant)
}

func TestFileLoader(t *testing.T) {
	cmd, cfg := newCommand()

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(configFile, []byte("server:\n  port: 5000\noauth:\n  codeExpiry: 60\n"), 0600)
	assert.NilError(t, err)

	ok, err := (&loaders.FileLoader{}).Load([]string{"--experimental.configFile=" + configFile}, cmd)

	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 60, cfg.OAuth.CodeExpiry)

	// Without the flag the loader is skipped
	cmd, _ = newCommand()
	ok, err = (&loaders.FileLoader{}).Load([]string{"--server.port=1"}, cmd)
	assert.NilError(t, err)
	assert.Assert(t, !ok)
}
