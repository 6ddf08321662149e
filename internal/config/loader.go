package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Unbanked0/btcmap-api/internal/db"
)

// Config is the full runtime configuration, loaded from config.yaml with
// environment overrides (BTCMAP_DATABASE_HOST, BTCMAP_SERVER_PORT, ...).
type Config struct {
	Database db.Config
	Server   ServerConfig
	Sync     SyncConfig
	Reports  ReportsConfig
	Notifier NotifierConfig
	Export   ExportConfig
}

type ServerConfig struct {
	Port           int
	AllowedOrigins []string
}

type SyncConfig struct {
	OverpassURL       string
	OverpassQuery     string
	OverpassTimeout   time.Duration
	OsmAPIURL         string
	OsmAPITimeout     time.Duration
	MinElements       int
	UserLookupTimeout time.Duration
}

// ReportsConfig selects the report write strategy: "snapshot" keeps a
// row per change, "cumulative" keeps one row per area and day.
type ReportsConfig struct {
	Strategy string
}

type NotifierConfig struct {
	DiscordWebhookURL string
}

type ExportConfig struct {
	Directory string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Port:           8000,
			AllowedOrigins: []string{"*"},
		},
		Sync: SyncConfig{
			OverpassTimeout:   5 * time.Minute,
			OsmAPIURL:         "https://api.openstreetmap.org",
			OsmAPITimeout:     30 * time.Second,
			MinElements:       5000,
			UserLookupTimeout: 30 * time.Second,
		},
		Reports: ReportsConfig{Strategy: "snapshot"},
		Export:  ExportConfig{Directory: "./exports"},
	}
}

// Load reads config.yaml from configPath, falling back to defaults plus
// environment overrides when the file is absent.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()         // allow environment overrides
	v.SetEnvPrefix("BTCMAP") // map env vars like BTCMAP_DATABASE_HOST

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.port")
	v.BindEnv("sync.overpass_url")
	v.BindEnv("sync.overpass_query")
	v.BindEnv("sync.overpass_timeout")
	v.BindEnv("sync.osm_api_url")
	v.BindEnv("sync.osm_api_timeout")
	v.BindEnv("sync.min_elements")
	v.BindEnv("reports.strategy")
	v.BindEnv("notifier.discord_webhook_url")
	v.BindEnv("export.directory")

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("sync.overpass_url") {
		cfg.Sync.OverpassURL = v.GetString("sync.overpass_url")
	}
	if v.IsSet("sync.overpass_query") {
		cfg.Sync.OverpassQuery = v.GetString("sync.overpass_query")
	}
	if v.IsSet("sync.overpass_timeout") {
		cfg.Sync.OverpassTimeout = v.GetDuration("sync.overpass_timeout")
	}
	if v.IsSet("sync.osm_api_url") {
		cfg.Sync.OsmAPIURL = v.GetString("sync.osm_api_url")
	}
	if v.IsSet("sync.osm_api_timeout") {
		cfg.Sync.OsmAPITimeout = v.GetDuration("sync.osm_api_timeout")
	}
	if v.IsSet("sync.min_elements") {
		cfg.Sync.MinElements = v.GetInt("sync.min_elements")
	}
	if v.IsSet("sync.user_lookup_timeout") {
		cfg.Sync.UserLookupTimeout = v.GetDuration("sync.user_lookup_timeout")
	}
	if v.IsSet("reports.strategy") {
		cfg.Reports.Strategy = v.GetString("reports.strategy")
	}
	if v.IsSet("notifier.discord_webhook_url") {
		cfg.Notifier.DiscordWebhookURL = v.GetString("notifier.discord_webhook_url")
	}
	if v.IsSet("export.directory") {
		cfg.Export.Directory = v.GetString("export.directory")
	}

	switch cfg.Reports.Strategy {
	case "snapshot", "cumulative":
	default:
		return Config{}, fmt.Errorf("invalid reports.strategy %q, want snapshot or cumulative", cfg.Reports.Strategy)
	}

	return cfg, nil
}
