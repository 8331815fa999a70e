package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/repository"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

type LoginAttempt struct {
	FailedAttempts int
	LastAttempt    time.Time
	LockedUntil    time.Time
}

type AuthServiceConfig struct {
	Users             []config.User
	SessionExpiry     int
	SecureCookie      bool
	LoginTimeout      int
	LoginMaxRetries   int
	SessionCookieName string
}

// AuthService verifies client and resource owner credentials and keeps
// track of front channel login sessions.
type AuthService struct {
	config        AuthServiceConfig
	clients       *ClientService
	ldap          *LdapService
	queries       *repository.Queries
	loginAttempts map[string]*LoginAttempt
	loginMutex    sync.RWMutex
	dummyHash     []byte
}

func NewAuthService(config AuthServiceConfig, clients *ClientService, ldap *LdapService, queries *repository.Queries) *AuthService {
	return &AuthService{
		config:        config,
		clients:       clients,
		ldap:          ldap,
		queries:       queries,
		loginAttempts: make(map[string]*LoginAttempt),
	}
}

func (auth *AuthService) Init() error {
	// Unknown principals are compared against this hash so that every miss costs one bcrypt round
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to generate dummy hash: %w", err)
	}
	auth.dummyHash = hash
	return nil
}

func (auth *AuthService) VerifyClient(ctx context.Context, clientID string, secret string) (*Client, error) {
	client, err := auth.clients.GetClient(ctx, clientID)

	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			bcrypt.CompareHashAndPassword(auth.dummyHash, []byte(secret))
		}
		return nil, err
	}

	if client.SecretHash == "" {
		bcrypt.CompareHashAndPassword(auth.dummyHash, []byte(secret))
		return nil, ErrInvalidClientSecret
	}

	if bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)) != nil {
		return nil, ErrInvalidClientSecret
	}

	return client, nil
}

// IdentifyClient resolves a client that presented no secret. Only public
// clients and confidential clients marked secret optional may do so.
func (auth *AuthService) IdentifyClient(ctx context.Context, clientID string) (*Client, error) {
	client, err := auth.clients.GetClient(ctx, clientID)

	if err != nil {
		return nil, err
	}

	if !client.Public && !client.SecretOptional {
		return nil, ErrClientSecretRequired
	}

	return client, nil
}

func (auth *AuthService) SearchUser(username string) config.UserSearch {
	tlog.App.Debug().Str("username", username).Msg("Searching for user")

	if auth.GetLocalUser(username).Username != "" {
		return config.UserSearch{
			Username: username,
			Type:     "local",
		}
	}

	if auth.ldap != nil {
		userDN, err := auth.ldap.GetUserDN(username)
		if err != nil {
			tlog.App.Warn().Err(err).Str("username", username).Msg("Failed to find user in LDAP")
			return config.UserSearch{Type: "unknown"}
		}
		return config.UserSearch{
			Username: userDN,
			Type:     "ldap",
		}
	}

	return config.UserSearch{
		Type: "unknown",
	}
}

// VerifyOwner returns the subject of the resource owner. Every failure is
// ErrInvalidCredentials so callers cannot tell unknown users apart.
func (auth *AuthService) VerifyOwner(ctx context.Context, username string, password string) (string, error) {
	search := auth.SearchUser(username)

	switch search.Type {
	case "local":
		user := auth.GetLocalUser(search.Username)
		if !auth.CheckPassword(user, password) {
			return "", ErrInvalidCredentials
		}
		return user.Username, nil
	case "ldap":
		if err := auth.ldap.Bind(search.Username, password); err != nil {
			tlog.App.Warn().Err(err).Str("username", username).Msg("Failed to bind to LDAP")
			if rebindErr := auth.ldap.BindService(true); rebindErr != nil {
				return "", fmt.Errorf("failed to rebind with service account: %w", rebindErr)
			}
			return "", ErrInvalidCredentials
		}

		// Rebind with the service account to reset the connection
		if err := auth.ldap.BindService(true); err != nil {
			return "", fmt.Errorf("failed to rebind with service account: %w", err)
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		return username, nil
	default:
		bcrypt.CompareHashAndPassword(auth.dummyHash, []byte(password))
		return "", ErrInvalidCredentials
	}
}

func (auth *AuthService) TotpEnabled(username string) bool {
	return auth.GetLocalUser(username).TotpSecret != ""
}

func (auth *AuthService) VerifyTotp(username string, code string) error {
	user := auth.GetLocalUser(username)

	if user.TotpSecret == "" {
		return nil
	}

	if code == "" {
		return ErrTotpRequired
	}

	if !totp.Validate(code, user.TotpSecret) {
		return ErrInvalidTotp
	}

	return nil
}

func (auth *AuthService) GetLocalUser(username string) config.User {
	for _, user := range auth.config.Users {
		if user.Username == username {
			return user
		}
	}
	return config.User{}
}

func (auth *AuthService) CheckPassword(user config.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

func (auth *AuthService) UserAuthConfigured() bool {
	return len(auth.config.Users) > 0 || auth.ldap != nil
}

func (auth *AuthService) IsAccountLocked(identifier string) (bool, int) {
	auth.loginMutex.RLock()
	defer auth.loginMutex.RUnlock()

	if auth.config.LoginMaxRetries <= 0 || auth.config.LoginTimeout <= 0 {
		return false, 0
	}

	attempt, exists := auth.loginAttempts[identifier]
	if !exists {
		return false, 0
	}

	if attempt.LockedUntil.After(time.Now()) {
		remaining := int(time.Until(attempt.LockedUntil).Seconds())
		return true, remaining
	}

	return false, 0
}

func (auth *AuthService) RecordLoginAttempt(identifier string, success bool) {
	if auth.config.LoginMaxRetries <= 0 || auth.config.LoginTimeout <= 0 {
		return
	}

	auth.loginMutex.Lock()
	defer auth.loginMutex.Unlock()

	attempt, exists := auth.loginAttempts[identifier]
	if !exists {
		attempt = &LoginAttempt{}
		auth.loginAttempts[identifier] = attempt
	}

	attempt.LastAttempt = time.Now()

	if success {
		attempt.FailedAttempts = 0
		attempt.LockedUntil = time.Time{}
		return
	}

	attempt.FailedAttempts++

	if attempt.FailedAttempts >= auth.config.LoginMaxRetries {
		attempt.LockedUntil = time.Now().Add(time.Duration(auth.config.LoginTimeout) * time.Second)
		tlog.App.Warn().Str("identifier", identifier).Int("timeout", auth.config.LoginTimeout).Msg("Account locked due to too many failed login attempts")
	}
}

func (auth *AuthService) CreateSessionCookie(c *gin.Context, username string) error {
	session := repository.CreateSessionParams{
		UUID:      uuid.NewString(),
		Username:  username,
		ExpiresAt: time.Now().Add(time.Duration(auth.config.SessionExpiry) * time.Second).Unix(),
	}

	if err := auth.queries.CreateSession(c.Request.Context(), session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.config.SessionCookieName, session.UUID, auth.config.SessionExpiry, "/", "", auth.config.SecureCookie, true)

	return nil
}

func (auth *AuthService) GetSessionCookie(c *gin.Context) (config.SessionCookie, error) {
	cookie, err := c.Cookie(auth.config.SessionCookieName)

	if err != nil || cookie == "" {
		return config.SessionCookie{}, ErrSessionNotFound
	}

	session, err := auth.queries.GetSession(c.Request.Context(), cookie)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return config.SessionCookie{}, ErrSessionNotFound
		}
		return config.SessionCookie{}, fmt.Errorf("failed to get session: %w", err)
	}

	if time.Now().Unix() > session.ExpiresAt {
		tlog.App.Debug().Str("username", session.Username).Msg("Session expired")
		if err := auth.DeleteSessionCookie(c); err != nil {
			return config.SessionCookie{}, err
		}
		return config.SessionCookie{}, ErrSessionNotFound
	}

	return config.SessionCookie{
		UUID:      session.UUID,
		Username:  session.Username,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (auth *AuthService) DeleteSessionCookie(c *gin.Context) error {
	cookie, err := c.Cookie(auth.config.SessionCookieName)

	if err == nil && cookie != "" {
		if err := auth.queries.DeleteSession(c.Request.Context(), cookie); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}

	c.SetCookie(auth.config.SessionCookieName, "", -1, "/", "", auth.config.SecureCookie, true)

	return nil
}
