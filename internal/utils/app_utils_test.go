package utils_test

import (
	"net/url"
	"testing"

	"github.com/steveiliop56/tinyoauth/internal/utils"

	"gotest.tools/v3/assert"
)

func TestParseFileToLine(t *testing.T) {
	assert.Equal(t, "user1:hash,user2:hash", utils.ParseFileToLine("  user1:hash \n\n user2:hash\n"))
	assert.Equal(t, "", utils.ParseFileToLine("\n\n"))
}

func TestGetIssuer(t *testing.T) {
	assert.Equal(t, "https://auth.example.com", utils.GetIssuer("https://auth.example.com/", ""))
	assert.Equal(t, "https://issuer.example.com", utils.GetIssuer("https://auth.example.com", "https://issuer.example.com/"))
}

func TestValidateRedirectURI(t *testing.T) {
	assert.NilError(t, utils.ValidateRedirectURI("https://app.example.com/callback"))
	assert.NilError(t, utils.ValidateRedirectURI("http://localhost:8080/cb?x=1"))

	assert.ErrorContains(t, utils.ValidateRedirectURI("/callback"), "must be absolute")
	assert.ErrorContains(t, utils.ValidateRedirectURI("https://app.example.com/cb#frag"), "fragment")
}

func TestAppendQuery(t *testing.T) {
	redirect, err := utils.AppendQuery("https://app.example.com/cb?keep=1", map[string]string{
		"code":  "abc",
		"state": "",
	})
	assert.NilError(t, err)

	parsed, err := url.Parse(redirect)
	assert.NilError(t, err)

	assert.Equal(t, "1", parsed.Query().Get("keep"))
	assert.Equal(t, "abc", parsed.Query().Get("code"))
	assert.Equal(t, false, parsed.Query().Has("state"))
}
