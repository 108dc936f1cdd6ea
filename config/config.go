package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gidra39/clearml-results/validation"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrFileNotFound = errors.New("file not found")

const (
	DefaultHTTPTimeoutSeconds = 30
	DefaultMessageChannels    = "TELEGRAM"
)

// Config contains all application configuration settings
type Config struct {
	ClearMLAPIHost     string `json:"CLEARML_API_HOST" koanf:"CLEARML_API_HOST" validate:"required,url"`
	ClearMLAccessKey   string `json:"CLEARML_API_ACCESS_KEY" koanf:"CLEARML_API_ACCESS_KEY" validate:"required_with=ClearMLSecretKey"`
	ClearMLSecretKey   string `json:"CLEARML_API_SECRET_KEY" koanf:"CLEARML_API_SECRET_KEY" validate:"required_with=ClearMLAccessKey"`
	HTTPTimeoutSeconds int    `json:"HTTP_TIMEOUT_SECONDS" koanf:"HTTP_TIMEOUT_SECONDS" validate:"gt=0"`
	TelegramBotToken   string `json:"TELEGRAM_BOT_TOKEN" koanf:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID     string `json:"TELEGRAM_CHAT_ID" koanf:"TELEGRAM_CHAT_ID" validate:"omitempty,numeric"`
	TelegramAPIURL     string `json:"TELEGRAM_API_URL" koanf:"TELEGRAM_API_URL" validate:"omitempty,url"`
	SlackWebhookURL    string `json:"SLACK_WEBHOOK_URL" koanf:"SLACK_WEBHOOK_URL" validate:"omitempty,url"`
	MessageChannels    string `json:"MESSAGE_CHANNELS" koanf:"MESSAGE_CHANNELS" validate:"omitempty,oneof=TELEGRAM SLACK BOTH"`
	OTLPTraceEndpoint  string `json:"OTEL_EXPORTER_OTLP_ENDPOINT" koanf:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// HTTPTimeout returns the configured request timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// HasCredentials reports whether an API key pair is configured.
func (c Config) HasCredentials() bool {
	return c.ClearMLAccessKey != "" && c.ClearMLSecretKey != ""
}

func parserFor(configFile string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return json.Parser()
	}
}

// Parse reads configFile (if set) and the environment into a validated Config.
// Environment variables take priority over the file.
func Parse(configFile string) (Config, error) {
	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), parserFor(configFile)); err != nil {
			log.Warn().Err(err).Str("file", configFile).Msg("unable to load config file")
		} else {
			log.Info().Str("file", configFile).Msg("loaded configuration from file")
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return Config{}, errors.Wrap(err, "koanf: error loading env")
	}

	config := Config{
		HTTPTimeoutSeconds: DefaultHTTPTimeoutSeconds,
		MessageChannels:    DefaultMessageChannels,
	}

	if err := k.Unmarshal("", &config); err != nil {
		return Config{}, errors.Wrap(err, "koanf: error unmarshalling config")
	}

	config.MessageChannels = strings.ToUpper(strings.TrimSpace(config.MessageChannels))
	config.ClearMLAPIHost = strings.TrimRight(config.ClearMLAPIHost, "/")

	if err := validation.Validate.Struct(config); err != nil {
		return Config{}, errors.Wrap(err, "koanf: error validating config")
	}
	return config, nil
}

func Load(configFile string) Config {
	config, err := Parse(configFile)
	if err != nil {
		log.Fatal().Err(err).Caller().Msg("unable to load configuration")
	}
	return config
}

func SearchUpwardsForFile(filename string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		file := filepath.Join(wd, filename)
		if _, err := os.Stat(file); err == nil {
			return file, nil
		}

		parent := filepath.Dir(wd)
		if parent == wd {
			return "", errors.Wrap(ErrFileNotFound, filename)
		}
		wd = parent
	}
}

func LoadDotEnv(fileName string) {
	file, err := SearchUpwardsForFile(fileName)
	if err != nil {
		log.Warn().Err(err).Msgf("failed to find %s file", fileName)
		return
	}

	if err := godotenv.Load(file); err != nil {
		log.Fatal().Err(err).Msg("invalid .env file")
	}

	log.Info().Msgf("loaded environment variables from %s", file)
}

// LoadConfig is the main entry point for configuration loading
func LoadConfig(envFile string, configFiles ...string) Config {
	if envFile != "" {
		LoadDotEnv(envFile)
	}

	for _, configFile := range configFiles {
		foundFile, err := SearchUpwardsForFile(configFile)
		if err == nil {
			return Load(foundFile)
		}
	}

	// If no config file found, load from environment only
	return Load("")
}
