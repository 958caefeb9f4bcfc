package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "showcasectl", "config.yml")
}

// Path returns SHOWCASE_CONFIG when set, else DefaultPath.
func Path() string {
	if p := os.Getenv("SHOWCASE_CONFIG"); p != "" {
		return p
	}
	return DefaultPath()
}

// Load reads a .env file from the working directory if present, then the
// config from disk and SHOWCASE_* env vars. A missing config file yields
// the defaults; the init command writes one.
func Load() (*Config, error) {
	_ = godotenv.Load() // loads .env if present

	v := viper.New()

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.jwt_secret_env", "SHOWCASE_JWT_SECRET")
	v.SetDefault("server.token_ttl", "24h")
	v.SetDefault("github.api_base", "https://api.github.com")
	v.SetDefault("github.token_env", "GITHUB_TOKEN")
	v.SetDefault("remote.backend", "memory")
	v.SetDefault("remote.github.dir", "catalog")
	v.SetDefault("remote.postgres.driver", "pgx")
	v.SetDefault("remote.postgres.dsn_env", "DATABASE_URL")
	v.SetDefault("assets.backend", "local")
	v.SetDefault("assets.local.dir", defaultDataDir("assets"))
	v.SetDefault("assets.local.base_url", "http://127.0.0.1:8080/assets")
	v.SetDefault("assets.cloudinary.upload_preset", "ml_default")
	v.SetDefault("assets.max_dimension", 1600)
	v.SetDefault("assets.jpeg_quality", 82)
	v.SetDefault("mirror.backend", "file")
	v.SetDefault("mirror.dir", defaultDataDir("mirror"))
	v.SetDefault("mirror.sqlite_path", filepath.Join(defaultDataDir("mirror"), "mirror.db"))
	v.SetDefault("mirror.watch_debounce", "250ms")
	v.SetDefault("catalog.placeholder_image", "https://via.placeholder.com/600x400?text=No+Image")
	v.SetDefault("catalog.opaque_hosts", []string{"cloudinary.com"})
	v.SetDefault("catalog.mirror_retries", 3)
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("SHOWCASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(Path())

	if err := v.ReadInConfig(); err != nil {
		// Not finding the config file is fine; init creates it.
		if !os.IsNotExist(err) {
			if _, isCfgNotFound := err.(viper.ConfigFileNotFoundError); !isCfgNotFound {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Secrets come from env vars named in the file, never from the file.
	cfg.GitHub.Token = envOr(cfg.GitHub.TokenEnv, "GITHUB_TOKEN")
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("SHOWCASE_GITHUB_TOKEN")
	}
	cfg.Server.JWTSecret = envOr(cfg.Server.JWTSecretEnv, "SHOWCASE_JWT_SECRET")
	cfg.Remote.Postgres.DSN = envOr(cfg.Remote.Postgres.DSNEnv, "DATABASE_URL")

	cfg.Assets.Local.Dir = ExpandHome(cfg.Assets.Local.Dir)
	cfg.Mirror.Dir = ExpandHome(cfg.Mirror.Dir)
	cfg.Mirror.SQLitePath = ExpandHome(cfg.Mirror.SQLitePath)
	cfg.Remote.Firestore.CredentialsFile = ExpandHome(cfg.Remote.Firestore.CredentialsFile)

	return &cfg, nil
}

// Save writes the config to Path().
func Save(cfg *Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes the config as YAML to path.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	return enc.Encode(cfg)
}

// ExpandHome expands a leading ~/ in a path.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func envOr(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	return os.Getenv(name)
}

func defaultDataDir(sub string) string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "showcasectl", sub)
}
