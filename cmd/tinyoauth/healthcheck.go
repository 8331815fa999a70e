package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/traefik/paerser/cli"
)

type healthzResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func healthcheckCmd() *cli.Command {
	return &cli.Command{
		Name:          "healthcheck",
		Description:   "Perform a health check",
		Configuration: nil,
		Resources:     nil,
		AllowArg:      true,
		Run: func(args []string) error {
			tlog.NewSimpleLogger().Init()

			appURL := os.Getenv(config.DefaultNamePrefix + "APPURL")

			if len(args) > 0 {
				appURL = args[0]
			}

			if appURL == "" {
				return errors.New("TINYOAUTH_APPURL is not set and no argument was provided")
			}

			tlog.App.Info().Str("app_url", appURL).Msg("Performing health check")

			client := http.Client{
				Timeout: 30 * time.Second,
			}

			resp, err := client.Get(strings.TrimSuffix(appURL, "/") + "/api/healthz")

			if err != nil {
				return fmt.Errorf("failed to perform request: %w", err)
			}

			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("service is not healthy, got: %s", resp.Status)
			}

			var healthResp healthzResponse

			err = json.NewDecoder(resp.Body).Decode(&healthResp)

			if err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}

			tlog.App.Info().Interface("response", healthResp).Msg("Tinyoauth is healthy")

			return nil
		},
	}
}
