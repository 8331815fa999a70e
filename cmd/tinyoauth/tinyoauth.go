package main

import (
	"fmt"
	"os"

	"github.com/steveiliop56/tinyoauth/internal/bootstrap"
	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/utils/loaders"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/traefik/paerser/cli"
)

func main() {
	tConfig := config.NewDefaultConfiguration()

	loaders := []cli.ResourceLoader{
		&loaders.FileLoader{},
		&loaders.FlagLoader{},
		&loaders.EnvLoader{},
	}

	cmdTinyoauth := &cli.Command{
		Name:          "tinyoauth",
		Description:   "A small OAuth 2.0 authorization server.",
		Configuration: tConfig,
		Resources:     loaders,
		Run: func(_ []string) error {
			return runCmd(*tConfig)
		},
	}

	cmdUser := groupCmd("user", "Manage resource owners.")
	cmdTotp := groupCmd("totp", "Manage TOTP secrets.")
	cmdClient := groupCmd("client", "Manage OAuth clients.")

	err := cmdUser.AddCommand(createUserCmd())

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add create command")
	}

	err = cmdUser.AddCommand(verifyUserCmd())

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add verify command")
	}

	err = cmdTotp.AddCommand(generateTotpCmd())

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add generate command")
	}

	err = cmdClient.AddCommand(createClientCmd())

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add create command")
	}

	for _, cmd := range []*cli.Command{cmdUser, cmdTotp, cmdClient, versionCmd(), healthcheckCmd()} {
		err = cmdTinyoauth.AddCommand(cmd)

		if err != nil {
			log.Fatal().Err(err).Str("command", cmd.Name).Msg("Failed to add command")
		}
	}

	err = cli.Execute(cmdTinyoauth)

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to execute command")
	}
}

// groupCmd only holds subcommands and prints its help when run directly.
func groupCmd(name string, description string) *cli.Command {
	cmd := &cli.Command{
		Name:        name,
		Description: description,
	}
	cmd.Run = func(_ []string) error {
		return cmd.PrintHelp(os.Stdout)
	}
	return cmd
}

func runCmd(cfg config.Config) error {
	tlog.NewLogger(cfg.Log).Init()

	tlog.App.Info().Str("version", config.Version).Msg("Starting tinyoauth")

	gin.SetMode(gin.ReleaseMode)

	app := bootstrap.NewBootstrapApp(cfg)

	err := app.Setup()

	if err != nil {
		return fmt.Errorf("failed to bootstrap app: %w", err)
	}

	return app.Serve()
}
