package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/earthchat/earth/pkg/attachments"
	"github.com/earthchat/earth/pkg/backend"
	"github.com/earthchat/earth/pkg/backend/echo"
	"github.com/earthchat/earth/pkg/backend/openai"
	"github.com/earthchat/earth/pkg/persona"
	"github.com/earthchat/earth/pkg/store"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "earth",
		Short:   "EARTH: a streaming AI chat client",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to config file (default: $EARTH_DATA_DIR/config.yaml)")
	pf.String("data-dir", "", "data directory (default: ~/.earth)")
	pf.String("user", "local", "user id owning the stored conversations")
	pf.String("api-key", "", "OpenAI API key (or set EARTH_API_KEY)")
	pf.String("model", openai.DefaultModel, "model to use for chat and titles")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newPersonasCommand())
	rootCmd.AddCommand(newConversationsCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	viper.SetEnvPrefix("EARTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.Wrap(err, "failed to read config file")
		}
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(dataDir())
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return errors.Wrap(err, "failed to read config file")
			}
		}
	}

	return setupLogging(viper.GetString("log-level"))
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return nil
}

func dataDir() string {
	if dir := viper.GetString("data-dir"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".earth"
	}
	return filepath.Join(home, ".earth")
}

// newBackend picks OpenAI when an API key is configured and falls back to
// the offline echo backend otherwise.
func newBackend() (backend.Backend, error) {
	apiKey := viper.GetString("api-key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		log.Warn().Msg("no API key configured, using the offline echo backend")
		return echo.New(), nil
	}
	return openai.New(apiKey, openai.WithModel(viper.GetString("model")))
}

func openKV() (*store.SQLiteKV, error) {
	if err := os.MkdirAll(dataDir(), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}
	return store.NewSQLiteKV(filepath.Join(dataDir(), "earth.db"))
}

func openAttachmentRepository() (*attachments.SQLiteRepository, error) {
	if err := os.MkdirAll(dataDir(), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}
	return attachments.NewSQLiteRepository(filepath.Join(dataDir(), "attachments.db"))
}

func openPersonaStore() (persona.Store, error) {
	return persona.NewYAMLFileStore(filepath.Join(dataDir(), "personas.yaml"))
}
