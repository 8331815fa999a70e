package loaders

import (
	"github.com/rs/zerolog/log"
	"github.com/traefik/paerser/cli"
	"github.com/traefik/paerser/file"
	"github.com/traefik/paerser/flag"
)

// paerser roots every parsed flag under "traefik"
const configFileFlag = "traefik.experimental.configFile"

type FileLoader struct{}

func (f *FileLoader) Load(args []string, cmd *cli.Command) (bool, error) {
	flags, err := flag.Parse(args, cmd.Configuration)

	if err != nil {
		return false, err
	}

	configFile, ok := flags[configFileFlag]

	if !ok || configFile == "" {
		return false, nil
	}

	log.Warn().Str("file", configFile).Msg("Using experimental file config loader, this feature may change or be removed in future releases")

	err = file.Decode(configFile, cmd.Configuration)

	if err != nil {
		return false, err
	}

	return true, nil
}
