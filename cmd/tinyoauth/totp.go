package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/steveiliop56/tinyoauth/internal/utils"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/charmbracelet/huh"
	"github.com/mdp/qrterminal/v3"
	"github.com/pquerna/otp/totp"
	"github.com/traefik/paerser/cli"
)

type GenerateTotpConfig struct {
	Interactive bool   `description:"Generate a TOTP secret interactively."`
	User        string `description:"Your current user (username:hash)."`
	Issuer      string `description:"Issuer shown in the authenticator app."`
}

func generateTotpCmd() *cli.Command {
	tCfg := &GenerateTotpConfig{
		Issuer: "Tinyoauth",
	}

	return &cli.Command{
		Name:          "generate",
		Description:   "Generate a TOTP secret",
		Configuration: tCfg,
		Resources:     []cli.ResourceLoader{&cli.FlagLoader{}},
		Run: func(_ []string) error {
			tlog.NewSimpleLogger().Init()

			if tCfg.Interactive {
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewInput().Title("Current user (username:hash)").Value(&tCfg.User).Validate(notEmpty("user")),
					),
				)

				err := form.WithTheme(huh.ThemeBase()).Run()

				if err != nil {
					return fmt.Errorf("failed to run interactive prompt: %w", err)
				}
			}

			user, err := utils.ParseUser(tCfg.User)

			if err != nil {
				return fmt.Errorf("failed to parse user: %w", err)
			}

			docker := strings.Contains(tCfg.User, "$$")

			if user.TotpSecret != "" {
				return errors.New("user already has a TOTP secret")
			}

			key, err := totp.Generate(totp.GenerateOpts{
				Issuer:      tCfg.Issuer,
				AccountName: user.Username,
			})

			if err != nil {
				return fmt.Errorf("failed to generate TOTP secret: %w", err)
			}

			tlog.App.Info().Str("secret", key.Secret()).Msg("Generated TOTP secret")

			qrterminal.GenerateWithConfig(key.URL(), qrterminal.Config{
				Level:     qrterminal.L,
				Writer:    os.Stdout,
				BlackChar: qrterminal.BLACK,
				WhiteChar: qrterminal.WHITE,
				QuietZone: 2,
			})

			user.TotpSecret = key.Secret()

			if docker {
				user.Password = strings.ReplaceAll(user.Password, "$", "$$")
			}

			tlog.App.Info().Str("user", fmt.Sprintf("%s:%s:%s", user.Username, user.Password, user.TotpSecret)).Msg("Add the secret to your authenticator app, then check it with the user verify command")

			return nil
		},
	}
}
