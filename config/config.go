package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Aashish23092/conciliador/dto"
)

// EnvPrefix is prepended to every environment variable read by LoadConfig.
const EnvPrefix = "CONCILIADOR"

type Config struct {
	ClientID string
	Source   string
	Version  string

	Store      StoreConfig
	Extraction ExtractionConfig
	Kafka      KafkaConfig
	Server     ServerConfig
	Log        LogConfig
}

type StoreConfig struct {
	Driver      string // pebble or postgres
	Path        string
	DatabaseURL string
}

type ExtractionConfig struct {
	Workers           int
	ContextWindow     int
	DescriptionMarker string
	TaxMarker         string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ServerConfig struct {
	Port        string
	MaxUploadMB int64
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("client_id", "IKE")
	v.SetDefault("source", "conciliador")
	v.SetDefault("version", "1.0")

	v.SetDefault("store.driver", "pebble")
	v.SetDefault("store.path", "data/expedientes")
	v.SetDefault("database_url", "")

	v.SetDefault("extraction.workers", 4)
	v.SetDefault("extraction.context_window", 30)
	v.SetDefault("extraction.description_marker", "DESCRIPCION")
	v.SetDefault("extraction.tax_marker", "IMPUESTOS FEDERALES")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "expedientes")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_upload_mb", 32)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
}

// LoadConfig reads .env files, the optional config file and the environment.
// An empty path searches for conciliador.yaml in the working directory.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// DATABASE_URL without prefix is the usual name on hosted Postgres.
	_ = v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("conciliador")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, dto.NewConfigError("file", "failed to read config", err)
		}
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	brokers := v.GetStringSlice("kafka.brokers")
	if len(brokers) == 1 && strings.Contains(brokers[0], ",") {
		brokers = strings.Split(brokers[0], ",")
	}

	return &Config{
		ClientID: dto.NormalizeClient(v.GetString("client_id")),
		Source:   v.GetString("source"),
		Version:  v.GetString("version"),
		Store: StoreConfig{
			Driver:      strings.ToLower(v.GetString("store.driver")),
			Path:        v.GetString("store.path"),
			DatabaseURL: v.GetString("database_url"),
		},
		Extraction: ExtractionConfig{
			Workers:           v.GetInt("extraction.workers"),
			ContextWindow:     v.GetInt("extraction.context_window"),
			DescriptionMarker: v.GetString("extraction.description_marker"),
			TaxMarker:         v.GetString("extraction.tax_marker"),
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   v.GetString("kafka.topic"),
		},
		Server: ServerConfig{
			Port:        v.GetString("server.port"),
			MaxUploadMB: v.GetInt64("server.max_upload_mb"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}
}

// Default returns the configuration built from defaults only.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	return FromViper(v)
}

func (c *Config) Validate() error {
	if c.ClientID == "" {
		return dto.NewConfigError("client_id", "must not be empty", nil)
	}
	switch c.Store.Driver {
	case "pebble":
		if c.Store.Path == "" {
			return dto.NewConfigError("store.path", "required for the pebble driver", nil)
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return dto.NewConfigError("database_url", "required for the postgres driver", nil)
		}
	default:
		return dto.NewConfigError("store.driver", "unknown driver "+c.Store.Driver, nil)
	}
	if c.Extraction.Workers < 1 {
		return dto.NewConfigError("extraction.workers", "must be at least 1", nil)
	}
	if c.Extraction.ContextWindow < 1 {
		return dto.NewConfigError("extraction.context_window", "must be at least 1", nil)
	}
	if c.Extraction.DescriptionMarker == "" || c.Extraction.TaxMarker == "" {
		return dto.NewConfigError("extraction", "zone markers must not be empty", nil)
	}
	return nil
}
