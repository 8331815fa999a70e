package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/repository"
	"github.com/steveiliop56/tinyoauth/internal/utils"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"golang.org/x/crypto/bcrypt"
)

type Client struct {
	ClientID       string
	Name           string
	SecretHash     string
	RedirectURIs   []string
	GrantTypes     []string
	Scopes         []string
	Public         bool
	SecretOptional bool
}

func (c *Client) AllowsGrantType(grantType string) bool {
	return slices.Contains(c.GrantTypes, grantType)
}

// AllowsRedirectURI compares byte for byte against the registered URIs.
func (c *Client) AllowsRedirectURI(redirectURI string) bool {
	return slices.Contains(c.RedirectURIs, redirectURI)
}

// ResolveScope validates a requested scope string. An empty request means
// every scope the client is registered for.
func (c *Client) ResolveScope(requested string) (string, bool) {
	scopes := utils.SplitScopes(requested)

	if len(scopes) == 0 {
		return utils.JoinScopes(c.Scopes), true
	}

	if !utils.ScopesAllowed(scopes, c.Scopes) {
		return "", false
	}

	return utils.JoinScopes(scopes), true
}

type ClientServiceConfig struct {
	Clients    map[string]config.ClientConfig
	BcryptCost int
}

type ClientService struct {
	config  ClientServiceConfig
	queries *repository.Queries
}

func NewClientService(config ClientServiceConfig, queries *repository.Queries) *ClientService {
	return &ClientService{
		config:  config,
		queries: queries,
	}
}

func (service *ClientService) Init() error {
	if service.config.BcryptCost == 0 {
		service.config.BcryptCost = bcrypt.DefaultCost
	}
	return service.SyncClients(context.Background())
}

func (service *ClientService) GetClient(ctx context.Context, clientID string) (*Client, error) {
	row, err := service.queries.GetClient(ctx, clientID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	client := &Client{
		ClientID:       row.ClientID,
		Name:           row.Name,
		SecretHash:     row.SecretHash,
		Public:         row.Public,
		SecretOptional: row.SecretOptional,
	}

	if err := json.Unmarshal([]byte(row.RedirectURIs), &client.RedirectURIs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal redirect uris: %w", err)
	}

	if err := json.Unmarshal([]byte(row.GrantTypes), &client.GrantTypes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal grant types: %w", err)
	}

	if err := json.Unmarshal([]byte(row.Scopes), &client.Scopes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scopes: %w", err)
	}

	return client, nil
}

// SyncClients makes the clients table mirror the configuration. Clients
// that are no longer configured are removed.
func (service *ClientService) SyncClients(ctx context.Context) error {
	configured := make([]string, 0, len(service.config.Clients))

	for name, clientConfig := range service.config.Clients {
		clientID := clientConfig.ClientID
		if clientID == "" {
			clientID = name
		}

		params, err := service.buildClient(clientID, name, clientConfig)

		if err != nil {
			tlog.App.Error().Err(err).Str("client_id", clientID).Msg("Skipping invalid client")
			continue
		}

		if err := service.queries.UpsertClient(ctx, params); err != nil {
			return fmt.Errorf("failed to upsert client %s: %w", clientID, err)
		}

		configured = append(configured, clientID)
		tlog.App.Info().Str("client_id", clientID).Str("name", params.Name).Bool("public", params.Public).Msg("Synced client from config")
	}

	existing, err := service.queries.ListClientIDs(ctx)

	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}

	for _, clientID := range existing {
		if slices.Contains(configured, clientID) {
			continue
		}
		if err := service.queries.DeleteClient(ctx, clientID); err != nil {
			return fmt.Errorf("failed to delete client %s: %w", clientID, err)
		}
		tlog.App.Info().Str("client_id", clientID).Msg("Removed client no longer present in config")
	}

	return nil
}

func (service *ClientService) buildClient(clientID string, name string, clientConfig config.ClientConfig) (repository.UpsertClientParams, error) {
	secret := utils.GetSecret(clientConfig.ClientSecret, clientConfig.ClientSecretFile)

	if secret == "" && !clientConfig.Public {
		return repository.UpsertClientParams{}, errors.New("confidential client has no secret")
	}

	grantTypes := clientConfig.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{config.GrantTypeAuthorizationCode, config.GrantTypeRefreshToken}
	}

	for _, grantType := range grantTypes {
		if !slices.Contains(config.SupportedGrantTypes, grantType) {
			return repository.UpsertClientParams{}, fmt.Errorf("unsupported grant type %q", grantType)
		}
	}

	if clientConfig.Public && clientConfig.SecretOptional {
		return repository.UpsertClientParams{}, errors.New("public clients have no secret to make optional")
	}

	if clientConfig.Public && slices.Contains(grantTypes, config.GrantTypeClientCredentials) {
		return repository.UpsertClientParams{}, errors.New("public clients cannot use the client credentials grant")
	}

	if slices.Contains(grantTypes, config.GrantTypeAuthorizationCode) && len(clientConfig.RedirectURIs) == 0 {
		return repository.UpsertClientParams{}, errors.New("authorization code clients need at least one redirect uri")
	}

	for _, redirectURI := range clientConfig.RedirectURIs {
		if err := utils.ValidateRedirectURI(redirectURI); err != nil {
			return repository.UpsertClientParams{}, fmt.Errorf("invalid redirect uri %q: %w", redirectURI, err)
		}
	}

	secretHash := ""
	if secret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), service.config.BcryptCost)
		if err != nil {
			return repository.UpsertClientParams{}, fmt.Errorf("failed to hash client secret: %w", err)
		}
		secretHash = string(hash)
	}

	displayName := clientConfig.Name
	if displayName == "" {
		displayName = utils.Capitalize(name)
	}

	redirectURIs, err := json.Marshal(nonNil(clientConfig.RedirectURIs))
	if err != nil {
		return repository.UpsertClientParams{}, err
	}

	grantTypesJSON, err := json.Marshal(grantTypes)
	if err != nil {
		return repository.UpsertClientParams{}, err
	}

	scopes, err := json.Marshal(nonNil(clientConfig.Scopes))
	if err != nil {
		return repository.UpsertClientParams{}, err
	}

	now := time.Now().Unix()

	return repository.UpsertClientParams{
		ClientID:       clientID,
		SecretHash:     secretHash,
		Name:           displayName,
		RedirectURIs:   string(redirectURIs),
		GrantTypes:     string(grantTypesJSON),
		Scopes:         string(scopes),
		Public:         clientConfig.Public,
		SecretOptional: clientConfig.SecretOptional,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
