package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"database/sql"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/steveiliop56/tinyoauth/internal/repository"
	"github.com/steveiliop56/tinyoauth/internal/utils"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const refreshTokenSize = 32

const (
	TokenTypeAccess  = "access_token"
	TokenTypeRefresh = "refresh_token"
)

type TokenServiceConfig struct {
	Issuer              string
	AccessTokenExpiry   int
	RefreshTokenExpiry  int
	RotateRefreshTokens bool
	PrivateKeyPath      string
	PublicKeyPath       string
}

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
	Scope    string `json:"scope,omitempty"`
}

type AccessToken struct {
	Value     string
	ExpiresIn int
	Claims    AccessTokenClaims
}

type IssuedRefreshToken struct {
	Value     string
	ExpiresAt time.Time
}

// RefreshGrant is what a redeemed refresh token grants. Refresh is the
// replacement token when rotation is enabled.
type RefreshGrant struct {
	ClientID string
	Subject  string
	Scope    string
	Refresh  *IssuedRefreshToken
}

// TokenInfo describes a token that passed validation.
type TokenInfo struct {
	TokenType string
	ID        string
	ClientID  string
	Subject   string
	Scope     string
	IssuedAt  int64
	ExpiresAt int64
}

// TokenService issues self contained RS256 access tokens and opaque refresh
// tokens. Access tokens can only be revoked through the jti blocklist that
// Validate consults. Refresh tokens are stored by digest and revoked in place.
type TokenService struct {
	config     TokenServiceConfig
	db         *sql.DB
	queries    *repository.Queries
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	keyID      string
}

func NewTokenService(config TokenServiceConfig, db *sql.DB, queries *repository.Queries) *TokenService {
	return &TokenService{
		config:  config,
		db:      db,
		queries: queries,
	}
}

func (service *TokenService) Init() error {
	privateKey, err := service.loadOrGenerateKey()

	if err != nil {
		return err
	}

	service.privateKey = privateKey
	service.publicKey = &privateKey.PublicKey

	der, err := x509.MarshalPKIXPublicKey(service.publicKey)

	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}

	sum := sha256.Sum256(der)
	service.keyID = base64.RawURLEncoding.EncodeToString(sum[:16])

	return nil
}

func (service *TokenService) loadOrGenerateKey() (*rsa.PrivateKey, error) {
	if service.config.PrivateKeyPath == "" {
		tlog.App.Warn().Msg("No private key path configured, using an ephemeral signing key")
		return rsa.GenerateKey(rand.Reader, 2048)
	}

	contents, err := os.ReadFile(service.config.PrivateKeyPath)

	if err == nil {
		privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(contents)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return privateKey, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	tlog.App.Info().Str("path", service.config.PrivateKeyPath).Msg("Private key not found, generating a new one")

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)

	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	if err := writePEM(service.config.PrivateKeyPath, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(privateKey), 0600); err != nil {
		return nil, err
	}

	if service.config.PublicKeyPath != "" {
		der, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal public key: %w", err)
		}
		if err := writePEM(service.config.PublicKeyPath, "PUBLIC KEY", der, 0644); err != nil {
			return nil, err
		}
	}

	return privateKey, nil
}

func writePEM(path string, blockType string, der []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})

	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func (service *TokenService) GetIssuer() string {
	return service.config.Issuer
}

func (service *TokenService) GetAccessTokenExpiry() int {
	if service.config.AccessTokenExpiry <= 0 {
		return 3600
	}
	return service.config.AccessTokenExpiry
}

// IssueAccess signs an access token. An empty subject means the client acts
// on its own behalf and no sub claim is set.
func (service *TokenService) IssueAccess(clientID string, subject string, scope string) (*AccessToken, error) {
	expiry := service.GetAccessTokenExpiry()
	now := time.Now()

	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    service.config.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expiry) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		ClientID: clientID,
		Scope:    scope,
	}

	if clientID != "" {
		claims.Audience = jwt.ClaimStrings{clientID}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = service.keyID

	value, err := token.SignedString(service.privateKey)

	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &AccessToken{
		Value:     value,
		ExpiresIn: expiry,
		Claims:    claims,
	}, nil
}

func (service *TokenService) IssueRefresh(ctx context.Context, clientID string, subject string, scope string) (*IssuedRefreshToken, error) {
	return service.storeRefresh(ctx, service.queries, clientID, subject, scope)
}

func (service *TokenService) storeRefresh(ctx context.Context, queries *repository.Queries, clientID string, subject string, scope string) (*IssuedRefreshToken, error) {
	value, err := utils.GenerateToken(refreshTokenSize)

	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(service.config.RefreshTokenExpiry) * time.Second)

	err = queries.CreateRefreshToken(ctx, repository.CreateRefreshTokenParams{
		TokenHash: utils.HashToken(value),
		ClientID:  clientID,
		Subject:   subject,
		Scope:     scope,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &IssuedRefreshToken{
		Value:     value,
		ExpiresAt: expiresAt,
	}, nil
}

// RedeemRefresh checks a refresh token presented by clientID and marks it
// used. With rotation enabled the old token is revoked by a single
// conditional update, so concurrent redemptions have one winner, and its
// replacement is stored in the same transaction.
func (service *TokenService) RedeemRefresh(ctx context.Context, value string, clientID string, requestedScopes []string) (*RefreshGrant, error) {
	tokenHash := utils.HashToken(value)
	now := time.Now().Unix()

	existing, err := service.queries.GetRefreshToken(ctx, tokenHash)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if existing.Revoked || existing.ExpiresAt <= now || existing.ClientID != clientID {
		return nil, ErrRefreshTokenInvalid
	}

	if !utils.ScopesAllowed(requestedScopes, utils.SplitScopes(existing.Scope)) {
		return nil, ErrScopeNotAllowed
	}

	if service.config.RotateRefreshTokens {
		return service.rotateRefresh(ctx, tokenHash, clientID, now)
	}

	row, err := service.queries.TouchRefreshToken(ctx, repository.TouchRefreshTokenParams{
		LastUsedAt: now,
		TokenHash:  tokenHash,
		ClientID:   clientID,
		Now:        now,
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, fmt.Errorf("failed to redeem refresh token: %w", err)
	}

	return &RefreshGrant{
		ClientID: row.ClientID,
		Subject:  row.Subject,
		Scope:    row.Scope,
	}, nil
}

func (service *TokenService) rotateRefresh(ctx context.Context, tokenHash string, clientID string, now int64) (*RefreshGrant, error) {
	tx, err := service.db.BeginTx(ctx, nil)

	if err != nil {
		return nil, fmt.Errorf("failed to begin refresh rotation: %w", err)
	}

	defer tx.Rollback()

	queries := service.queries.WithTx(tx)

	row, err := queries.RotateRefreshToken(ctx, repository.RotateRefreshTokenParams{
		LastUsedAt: now,
		TokenHash:  tokenHash,
		ClientID:   clientID,
		Now:        now,
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, fmt.Errorf("failed to redeem refresh token: %w", err)
	}

	refresh, err := service.storeRefresh(ctx, queries, row.ClientID, row.Subject, row.Scope)

	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit refresh rotation: %w", err)
	}

	return &RefreshGrant{
		ClientID: row.ClientID,
		Subject:  row.Subject,
		Scope:    row.Scope,
		Refresh:  refresh,
	}, nil
}

// Validate accepts either an access token or a refresh token.
func (service *TokenService) Validate(ctx context.Context, value string) (*TokenInfo, error) {
	if value == "" {
		return nil, ErrTokenInvalid
	}

	if strings.Count(value, ".") == 2 {
		return service.validateAccess(ctx, value)
	}

	return service.validateRefresh(ctx, value)
}

func (service *TokenService) parseAccess(value string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}

	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (any, error) {
		return service.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(service.config.Issuer),
		jwt.WithExpirationRequired(),
	)

	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (service *TokenService) validateAccess(ctx context.Context, value string) (*TokenInfo, error) {
	claims, err := service.parseAccess(value)

	if err != nil {
		return nil, err
	}

	revoked, err := service.queries.IsTokenRevoked(ctx, claims.ID)

	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}

	if revoked {
		return nil, ErrTokenRevoked
	}

	info := &TokenInfo{
		TokenType: TokenTypeAccess,
		ID:        claims.ID,
		ClientID:  claims.ClientID,
		Subject:   claims.Subject,
		Scope:     claims.Scope,
	}

	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Unix()
	}

	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Unix()
	}

	return info, nil
}

func (service *TokenService) validateRefresh(ctx context.Context, value string) (*TokenInfo, error) {
	row, err := service.queries.GetRefreshToken(ctx, utils.HashToken(value))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if row.Revoked {
		return nil, ErrTokenRevoked
	}

	if row.ExpiresAt <= time.Now().Unix() {
		return nil, ErrTokenInvalid
	}

	return &TokenInfo{
		TokenType: TokenTypeRefresh,
		ClientID:  row.ClientID,
		Subject:   row.Subject,
		Scope:     row.Scope,
		IssuedAt:  row.IssuedAt,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

// Revoke invalidates a token owned by clientID. Unknown tokens, tokens of
// other clients and already revoked tokens are ignored.
func (service *TokenService) Revoke(ctx context.Context, value string, clientID string) error {
	if strings.Count(value, ".") == 2 {
		claims, err := service.parseAccess(value)

		if err != nil || claims.ClientID != clientID {
			return nil
		}

		return service.queries.CreateRevokedToken(ctx, repository.CreateRevokedTokenParams{
			Jti:       claims.ID,
			ClientID:  claims.ClientID,
			ExpiresAt: claims.ExpiresAt.Unix(),
		})
	}

	_, err := service.queries.RevokeRefreshToken(ctx, repository.RevokeRefreshTokenParams{
		TokenHash: utils.HashToken(value),
		ClientID:  clientID,
	})

	return err
}

func (service *TokenService) DeleteExpired(ctx context.Context) error {
	now := time.Now().Unix()

	if err := service.queries.DeleteExpiredRefreshTokens(ctx, now); err != nil {
		return fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}

	if err := service.queries.DeleteExpiredRevokedTokens(ctx, now); err != nil {
		return fmt.Errorf("failed to delete expired revoked tokens: %w", err)
	}

	return nil
}

type JSONWebKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

func (service *TokenService) GetJWKS() JSONWebKeySet {
	return JSONWebKeySet{
		Keys: []JSONWebKey{
			{
				Kty: "RSA",
				Use: "sig",
				Kid: service.keyID,
				Alg: jwt.SigningMethodRS256.Alg(),
				N:   base64.RawURLEncoding.EncodeToString(service.publicKey.N.Bytes()),
				E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(service.publicKey.E)).Bytes()),
			},
		},
	}
}
