package main

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/utils"

	"github.com/google/uuid"
	"github.com/traefik/paerser/cli"
)

var clientNamePattern = regexp.MustCompile("^[a-zA-Z0-9-]+$")

type CreateClientConfig struct {
	Name           string   `description:"Client name, letters, digits and hyphens."`
	Public         bool     `description:"Create a public client without a secret."`
	SecretOptional bool     `description:"Accept the client ID alone on every grant except client credentials."`
	RedirectURI    []string `description:"Allowed redirect URIs."`
	GrantTypes     []string `description:"Allowed grant types."`
	Scopes         []string `description:"Allowed scopes."`
}

func createClientCmd() *cli.Command {
	tCfg := &CreateClientConfig{
		GrantTypes: []string{config.GrantTypeAuthorizationCode, config.GrantTypeRefreshToken},
	}

	return &cli.Command{
		Name:          "create",
		Description:   "Create a new OAuth client.",
		Configuration: tCfg,
		Resources:     []cli.ResourceLoader{&cli.FlagLoader{}},
		Run: func(_ []string) error {
			clientName := tCfg.Name

			if clientName == "" {
				return errors.New("client name is required, use tinyoauth client create --name <name>")
			}

			if !clientNamePattern.MatchString(clientName) {
				return errors.New("client name can only contain alphanumeric characters and hyphens")
			}

			for _, grantType := range tCfg.GrantTypes {
				if !slices.Contains(config.SupportedGrantTypes, grantType) {
					return fmt.Errorf("unsupported grant type %s", grantType)
				}
			}

			if slices.Contains(tCfg.GrantTypes, config.GrantTypeAuthorizationCode) && len(tCfg.RedirectURI) == 0 {
				return errors.New("the authorization code grant needs at least one redirect uri")
			}

			if tCfg.Public && tCfg.SecretOptional {
				return errors.New("public clients have no secret to make optional")
			}

			if tCfg.Public && slices.Contains(tCfg.GrantTypes, config.GrantTypeClientCredentials) {
				return errors.New("public clients cannot use the client credentials grant")
			}

			for _, redirectURI := range tCfg.RedirectURI {
				if err := utils.ValidateRedirectURI(redirectURI); err != nil {
					return fmt.Errorf("invalid redirect uri %s: %w", redirectURI, err)
				}
			}

			clientID := uuid.NewString()
			clientSecret := ""

			if !tCfg.Public {
				secret, err := utils.GenerateToken(32)
				if err != nil {
					return fmt.Errorf("failed to generate client secret: %w", err)
				}
				clientSecret = "to-" + secret
			}

			upper := strings.ToUpper(strings.ReplaceAll(clientName, "-", "_"))
			lower := strings.ToLower(clientName)

			env := map[string]string{
				"CLIENTID":     clientID,
				"CLIENTSECRET": clientSecret,
				"NAME":         utils.Capitalize(lower),
				"REDIRECTURIS": strings.Join(tCfg.RedirectURI, ","),
				"GRANTTYPES":   strings.Join(tCfg.GrantTypes, ","),
				"SCOPES":       strings.Join(tCfg.Scopes, ","),
			}

			if tCfg.Public {
				env["PUBLIC"] = "true"
			}

			if tCfg.SecretOptional {
				env["SECRETOPTIONAL"] = "true"
			}

			keys := []string{"CLIENTID", "CLIENTSECRET", "NAME", "REDIRECTURIS", "GRANTTYPES", "SCOPES", "PUBLIC", "SECRETOPTIONAL"}

			builder := strings.Builder{}

			fmt.Fprintf(&builder, "Created credentials for client %s\n\n", clientName)
			fmt.Fprintf(&builder, "Client ID: %s\n", clientID)

			if clientSecret != "" {
				fmt.Fprintf(&builder, "Client Secret: %s\n", clientSecret)
			}

			fmt.Fprint(&builder, "\nEnvironment variables:\n\n")

			for _, key := range keys {
				if env[key] == "" {
					continue
				}
				fmt.Fprintf(&builder, "%sOAUTH_CLIENTS_%s_%s=%s\n", config.DefaultNamePrefix, upper, key, env[key])
			}

			fmt.Fprint(&builder, "\nCLI flags:\n\n")

			for _, key := range keys {
				if env[key] == "" {
					continue
				}
				fmt.Fprintf(&builder, "--oauth.clients.%s.%s=%s\n", lower, strings.ToLower(key), env[key])
			}

			fmt.Fprintln(&builder, "\nSecrets are stored hashed, save them now since there is no way to recover them.")

			fmt.Print(builder.String())

			return nil
		},
	}
}
