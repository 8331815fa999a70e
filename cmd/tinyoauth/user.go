package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/steveiliop56/tinyoauth/internal/utils"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/charmbracelet/huh"
	"github.com/pquerna/otp/totp"
	"github.com/traefik/paerser/cli"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserConfig struct {
	Interactive bool   `description:"Create a user interactively."`
	Docker      bool   `description:"Format output for docker."`
	Username    string `description:"Username."`
	Password    string `description:"Password."`
}

type VerifyUserConfig struct {
	Interactive bool   `description:"Validate a user interactively."`
	Username    string `description:"Username."`
	Password    string `description:"Password."`
	Totp        string `description:"TOTP code."`
	User        string `description:"Hash (username:hash:totp)."`
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func createUserCmd() *cli.Command {
	tCfg := &CreateUserConfig{}

	return &cli.Command{
		Name:          "create",
		Description:   "Create a user",
		Configuration: tCfg,
		Resources:     []cli.ResourceLoader{&cli.FlagLoader{}},
		Run: func(_ []string) error {
			tlog.NewSimpleLogger().Init()

			if tCfg.Interactive {
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewInput().Title("Username").Value(&tCfg.Username).Validate(notEmpty("username")),
						huh.NewInput().Title("Password").Value(&tCfg.Password).Validate(notEmpty("password")),
						huh.NewSelect[bool]().Title("Format the output for Docker?").Options(huh.NewOption("Yes", true), huh.NewOption("No", false)).Value(&tCfg.Docker),
					),
				)

				err := form.WithTheme(huh.ThemeBase()).Run()

				if err != nil {
					return fmt.Errorf("failed to run interactive prompt: %w", err)
				}
			}

			if tCfg.Username == "" || tCfg.Password == "" {
				return errors.New("username and password cannot be empty")
			}

			if strings.Contains(tCfg.Username, ":") {
				return errors.New("username cannot contain a colon")
			}

			tlog.App.Info().Str("username", tCfg.Username).Msg("Creating user")

			passwd, err := bcrypt.GenerateFromPassword([]byte(tCfg.Password), bcrypt.DefaultCost)

			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}

			// Compose files interpolate dollar signs
			passwdStr := string(passwd)
			if tCfg.Docker {
				passwdStr = strings.ReplaceAll(passwdStr, "$", "$$")
			}

			tlog.App.Info().Str("user", fmt.Sprintf("%s:%s", tCfg.Username, passwdStr)).Msg("User created")

			return nil
		},
	}
}

func verifyUserCmd() *cli.Command {
	tCfg := &VerifyUserConfig{}

	return &cli.Command{
		Name:          "verify",
		Description:   "Verify a user is set up correctly.",
		Configuration: tCfg,
		Resources:     []cli.ResourceLoader{&cli.FlagLoader{}},
		Run: func(_ []string) error {
			tlog.NewSimpleLogger().Init()

			if tCfg.Interactive {
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewInput().Title("User (username:hash:totp)").Value(&tCfg.User).Validate(notEmpty("user")),
						huh.NewInput().Title("Username").Value(&tCfg.Username).Validate(notEmpty("username")),
						huh.NewInput().Title("Password").Value(&tCfg.Password).Validate(notEmpty("password")),
						huh.NewInput().Title("TOTP Code (optional)").Value(&tCfg.Totp),
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

			if user.Username != tCfg.Username {
				return errors.New("username is incorrect")
			}

			err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(tCfg.Password))

			if err != nil {
				return fmt.Errorf("password is incorrect: %w", err)
			}

			if user.TotpSecret == "" {
				if tCfg.Totp != "" {
					tlog.App.Warn().Msg("User does not have TOTP secret")
				}
				tlog.App.Info().Msg("User verified")
				return nil
			}

			if !totp.Validate(tCfg.Totp, user.TotpSecret) {
				return errors.New("TOTP code incorrect")
			}

			tlog.App.Info().Msg("User verified")

			return nil
		},
	}
}
