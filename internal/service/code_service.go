package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/steveiliop56/tinyoauth/internal/repository"
	"github.com/steveiliop56/tinyoauth/internal/utils"
)

const codeSize = 32

type CodeServiceConfig struct {
	CodeExpiry int
}

type AuthorizationGrant struct {
	ClientID    string
	RedirectURI string
	Subject     string
	Scope       string
}

// CodeService stores authorization codes by digest. A code can be consumed
// at most once.
type CodeService struct {
	config  CodeServiceConfig
	queries *repository.Queries
}

func NewCodeService(config CodeServiceConfig, queries *repository.Queries) *CodeService {
	return &CodeService{
		config:  config,
		queries: queries,
	}
}

func (service *CodeService) Create(ctx context.Context, clientID string, redirectURI string, subject string, scope string) (string, error) {
	code, err := utils.GenerateToken(codeSize)

	if err != nil {
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}

	now := time.Now()

	err = service.queries.CreateAuthorizationCode(ctx, repository.CreateAuthorizationCodeParams{
		CodeHash:    utils.HashToken(code),
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Subject:     subject,
		Scope:       scope,
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(time.Duration(service.config.CodeExpiry) * time.Second).Unix(),
	})

	if err != nil {
		return "", fmt.Errorf("failed to store authorization code: %w", err)
	}

	return code, nil
}

// ConsumeIfValid redeems a code for the client and redirect URI it was
// issued to. Unknown, expired, used and foreign codes all yield
// ErrCodeNotFound. A live code presented with another redirect URI yields
// ErrRedirectMismatch and stays redeemable.
func (service *CodeService) ConsumeIfValid(ctx context.Context, code string, clientID string, redirectURI string) (*AuthorizationGrant, error) {
	codeHash := utils.HashToken(code)
	now := time.Now().Unix()

	row, err := service.queries.ConsumeAuthorizationCode(ctx, repository.ConsumeAuthorizationCodeParams{
		CodeHash:    codeHash,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Now:         now,
	})

	if err == nil {
		return &AuthorizationGrant{
			ClientID:    row.ClientID,
			RedirectURI: row.RedirectURI,
			Subject:     row.Subject,
			Scope:       row.Scope,
		}, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	// Only used to pick the error, the update above decided the outcome
	existing, err := service.queries.GetAuthorizationCode(ctx, codeHash)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}

	if !existing.Used && existing.ExpiresAt > now && existing.ClientID == clientID && existing.RedirectURI != redirectURI {
		return nil, ErrRedirectMismatch
	}

	return nil, ErrCodeNotFound
}

func (service *CodeService) DeleteExpired(ctx context.Context) error {
	return service.queries.DeleteExpiredAuthorizationCodes(ctx, time.Now().Unix())
}
