package service

import (
	"context"
	"errors"
	"time"

	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/utils"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"
)

type GrantType int

const (
	GrantUnknown GrantType = iota
	GrantClientCredentials
	GrantAuthorizationCode
	GrantPassword
	GrantRefreshToken
)

// ParseGrantType maps the grant_type parameter onto the supported grants.
func ParseGrantType(grantType string) GrantType {
	switch grantType {
	case config.GrantTypeClientCredentials:
		return GrantClientCredentials
	case config.GrantTypeAuthorizationCode:
		return GrantAuthorizationCode
	case config.GrantTypePassword:
		return GrantPassword
	case config.GrantTypeRefreshToken:
		return GrantRefreshToken
	default:
		return GrantUnknown
	}
}

func (g GrantType) String() string {
	switch g {
	case GrantClientCredentials:
		return config.GrantTypeClientCredentials
	case GrantAuthorizationCode:
		return config.GrantTypeAuthorizationCode
	case GrantPassword:
		return config.GrantTypePassword
	case GrantRefreshToken:
		return config.GrantTypeRefreshToken
	default:
		return "unknown"
	}
}

// TokenRequest holds the parameters of a token request. Basic* fields are
// set from the Authorization header, the rest come from the form body.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	BasicPresent bool
	BasicID      string
	BasicSecret  string
	Code         string
	RedirectURI  string
	Username     string
	Password     string
	RefreshToken string
	Scope        string
}

func (req *TokenRequest) clientCredentials() (string, string) {
	if req.BasicPresent {
		return req.BasicID, req.BasicSecret
	}
	return req.ClientID, req.ClientSecret
}

func (req *TokenRequest) clientPresented() bool {
	return req.BasicPresent || req.ClientID != "" || req.ClientSecret != ""
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ClientID     string `json:"-"`
	Subject      string `json:"-"`
}

type GrantServiceConfig struct {
	AnonymousPasswordGrant bool
	StoreTimeout           int
}

// GrantService validates token requests and routes them to one handler per
// grant type. Every rejection is a *GrantError carrying its internal cause.
type GrantService struct {
	config GrantServiceConfig
	auth   *AuthService
	codes  *CodeService
	tokens *TokenService
}

func NewGrantService(config GrantServiceConfig, auth *AuthService, codes *CodeService, tokens *TokenService) *GrantService {
	return &GrantService{
		config: config,
		auth:   auth,
		codes:  codes,
		tokens: tokens,
	}
}

func (service *GrantService) Dispatch(ctx context.Context, req TokenRequest) (*TokenResponse, *GrantError) {
	if req.GrantType == "" {
		return nil, newGrantError(FailureMissingGrantType, nil)
	}

	switch ParseGrantType(req.GrantType) {
	case GrantClientCredentials:
		return service.clientCredentials(ctx, req)
	case GrantAuthorizationCode:
		return service.authorizationCode(ctx, req)
	case GrantPassword:
		return service.password(ctx, req)
	case GrantRefreshToken:
		return service.refreshToken(ctx, req)
	default:
		return nil, newGrantError(FailureUnknownGrantType, nil)
	}
}

func (service *GrantService) clientCredentials(ctx context.Context, req TokenRequest) (*TokenResponse, *GrantError) {
	client, gerr := service.AuthenticateClient(ctx, req, true)
	if gerr != nil {
		return nil, gerr
	}

	if !client.AllowsGrantType(config.GrantTypeClientCredentials) {
		return nil, newGrantError(FailureGrantNotAllowed, nil)
	}

	scope, ok := client.ResolveScope(req.Scope)
	if !ok {
		return nil, newGrantError(FailureScopeNotAllowed, nil)
	}

	return service.issue(ctx, client.ClientID, "", scope, false)
}

func (service *GrantService) authorizationCode(ctx context.Context, req TokenRequest) (*TokenResponse, *GrantError) {
	clientID, _ := req.clientCredentials()

	if clientID == "" || req.RedirectURI == "" || req.Code == "" {
		return nil, newGrantError(FailureMissingParameter, nil)
	}

	client, gerr := service.AuthenticateClient(ctx, req, false)
	if gerr != nil {
		return nil, gerr
	}

	if !client.AllowsGrantType(config.GrantTypeAuthorizationCode) {
		return nil, newGrantError(FailureGrantNotAllowed, nil)
	}

	storeCtx, cancel := service.storeContext(ctx)
	grant, err := service.codes.ConsumeIfValid(storeCtx, req.Code, client.ClientID, req.RedirectURI)
	cancel()

	if err != nil {
		switch {
		case errors.Is(err, ErrCodeNotFound):
			return nil, newGrantError(FailureCodeInvalid, err)
		case errors.Is(err, ErrRedirectMismatch):
			return nil, newGrantError(FailureRedirectMismatch, err)
		default:
			return nil, storeFailure(err)
		}
	}

	return service.issue(ctx, client.ClientID, grant.Subject, grant.Scope, client.AllowsGrantType(config.GrantTypeRefreshToken))
}

func (service *GrantService) password(ctx context.Context, req TokenRequest) (*TokenResponse, *GrantError) {
	if req.Username == "" || req.Password == "" {
		return nil, newGrantError(FailureMissingParameter, nil)
	}

	var client *Client

	if req.clientPresented() || !service.config.AnonymousPasswordGrant {
		authenticated, gerr := service.AuthenticateClient(ctx, req, false)
		if gerr != nil {
			return nil, gerr
		}
		client = authenticated
	}

	clientID := ""
	scope := ""
	refresh := false

	if client != nil {
		if !client.AllowsGrantType(config.GrantTypePassword) {
			return nil, newGrantError(FailureGrantNotAllowed, nil)
		}

		resolved, ok := client.ResolveScope(req.Scope)
		if !ok {
			return nil, newGrantError(FailureScopeNotAllowed, nil)
		}

		clientID = client.ClientID
		scope = resolved
		refresh = client.AllowsGrantType(config.GrantTypeRefreshToken)
	} else if len(utils.SplitScopes(req.Scope)) > 0 {
		return nil, newGrantError(FailureScopeNotAllowed, nil)
	}

	if locked, _ := service.auth.IsAccountLocked(req.Username); locked {
		return nil, newGrantError(FailureOwnerLocked, ErrAccountLocked)
	}

	storeCtx, cancel := service.storeContext(ctx)
	subject, err := service.auth.VerifyOwner(storeCtx, req.Username, req.Password)
	cancel()

	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			service.auth.RecordLoginAttempt(req.Username, false)
			return nil, newGrantError(FailureOwnerInvalid, err)
		}
		return nil, storeFailure(err)
	}

	service.auth.RecordLoginAttempt(req.Username, true)

	// The token endpoint has no way to collect a second factor
	if service.auth.TotpEnabled(subject) {
		return nil, newGrantError(FailureOwnerTotpEnabled, ErrTotpRequired)
	}

	return service.issue(ctx, clientID, subject, scope, refresh)
}

func (service *GrantService) refreshToken(ctx context.Context, req TokenRequest) (*TokenResponse, *GrantError) {
	if req.RefreshToken == "" {
		return nil, newGrantError(FailureMissingParameter, nil)
	}

	client, gerr := service.AuthenticateClient(ctx, req, false)
	if gerr != nil {
		return nil, gerr
	}

	if !client.AllowsGrantType(config.GrantTypeRefreshToken) {
		return nil, newGrantError(FailureGrantNotAllowed, nil)
	}

	requested := utils.SplitScopes(req.Scope)

	storeCtx, cancel := service.storeContext(ctx)
	grant, err := service.tokens.RedeemRefresh(storeCtx, req.RefreshToken, client.ClientID, requested)
	cancel()

	if err != nil {
		switch {
		case errors.Is(err, ErrRefreshTokenInvalid):
			return nil, newGrantError(FailureRefreshInvalid, err)
		case errors.Is(err, ErrScopeNotAllowed):
			return nil, newGrantError(FailureScopeNotAllowed, err)
		default:
			return nil, storeFailure(err)
		}
	}

	scope := grant.Scope
	if len(requested) > 0 {
		scope = utils.JoinScopes(requested)
	}

	access, err := service.tokens.IssueAccess(client.ClientID, grant.Subject, scope)
	if err != nil {
		return nil, newGrantError(FailureStore, err)
	}

	res := &TokenResponse{
		AccessToken: access.Value,
		TokenType:   "Bearer",
		ExpiresIn:   access.ExpiresIn,
		Scope:       scope,
		ClientID:    client.ClientID,
		Subject:     grant.Subject,
	}

	if grant.Refresh != nil {
		res.RefreshToken = grant.Refresh.Value
	}

	return res, nil
}

// AuthenticateClient resolves the calling client. Credentials may come from
// the Authorization header or the body but not both. Without a secret only
// public and secret optional clients are accepted, and only when
// secretRequired is unset.
func (service *GrantService) AuthenticateClient(ctx context.Context, req TokenRequest, secretRequired bool) (*Client, *GrantError) {
	if req.BasicPresent && req.ClientSecret != "" {
		return nil, newGrantError(FailureDuplicateClientAuth, nil)
	}

	if req.BasicPresent && req.ClientID != "" && req.ClientID != req.BasicID {
		return nil, newGrantError(FailureDuplicateClientAuth, nil)
	}

	clientID, secret := req.clientCredentials()

	if clientID == "" {
		return nil, newGrantError(FailureClientAuthMissing, nil)
	}

	storeCtx, cancel := service.storeContext(ctx)
	defer cancel()

	var client *Client
	var err error

	if secret == "" && !secretRequired {
		client, err = service.auth.IdentifyClient(storeCtx, clientID)
	} else {
		client, err = service.auth.VerifyClient(storeCtx, clientID, secret)
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrClientNotFound):
			return nil, newGrantError(FailureClientNotFound, err)
		case errors.Is(err, ErrInvalidClientSecret):
			return nil, newGrantError(FailureClientSecretMismatch, err)
		case errors.Is(err, ErrClientSecretRequired):
			return nil, newGrantError(FailureClientSecretRequired, err)
		default:
			return nil, storeFailure(err)
		}
	}

	return client, nil
}

// Introspect reports whether a token is active. Invalid and revoked tokens
// yield a nil info and a nil error.
func (service *GrantService) Introspect(ctx context.Context, token string) (*TokenInfo, *GrantError) {
	storeCtx, cancel := service.storeContext(ctx)
	defer cancel()

	info, err := service.tokens.Validate(storeCtx, token)

	if err != nil {
		if errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrTokenRevoked) {
			return nil, nil
		}
		return nil, storeFailure(err)
	}

	return info, nil
}

func (service *GrantService) Revoke(ctx context.Context, token string, clientID string) *GrantError {
	storeCtx, cancel := service.storeContext(ctx)
	defer cancel()

	if err := service.tokens.Revoke(storeCtx, token, clientID); err != nil {
		return storeFailure(err)
	}

	return nil
}

func (service *GrantService) issue(ctx context.Context, clientID string, subject string, scope string, refresh bool) (*TokenResponse, *GrantError) {
	access, err := service.tokens.IssueAccess(clientID, subject, scope)
	if err != nil {
		return nil, newGrantError(FailureStore, err)
	}

	res := &TokenResponse{
		AccessToken: access.Value,
		TokenType:   "Bearer",
		ExpiresIn:   access.ExpiresIn,
		Scope:       scope,
		ClientID:    clientID,
		Subject:     subject,
	}

	if refresh && subject != "" {
		storeCtx, cancel := service.storeContext(ctx)
		token, err := service.tokens.IssueRefresh(storeCtx, clientID, subject, scope)
		cancel()

		if err != nil {
			return nil, storeFailure(err)
		}

		res.RefreshToken = token.Value
	}

	return res, nil
}

func (service *GrantService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if service.config.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(service.config.StoreTimeout)*time.Millisecond)
}

func storeFailure(err error) *GrantError {
	if errors.Is(err, context.DeadlineExceeded) {
		tlog.App.Error().Err(err).Msg("Store call timed out")
		return newGrantError(FailureTimeout, err)
	}
	tlog.App.Error().Err(err).Msg("Store call failed")
	return newGrantError(FailureStore, err)
}
