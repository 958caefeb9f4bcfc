package config

import (
	"fmt"
	"time"

	"github.com/sinhabinayak2207/extrawork/internal/auth"
)

// Config is the top-level showcasectl configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	GitHub  GitHubConfig  `mapstructure:"github" yaml:"github"`
	Remote  RemoteConfig  `mapstructure:"remote" yaml:"remote"`
	Assets  AssetsConfig  `mapstructure:"assets" yaml:"assets"`
	Mirror  MirrorConfig  `mapstructure:"mirror" yaml:"mirror"`
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Users   []UserConfig  `mapstructure:"users" yaml:"users"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	JWTSecretEnv string        `mapstructure:"jwt_secret_env" yaml:"jwt_secret_env"`
	TokenTTL     time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	JWTSecret    string        `mapstructure:"-" yaml:"-"` // resolved at runtime, never written
}

// GitHubConfig holds GitHub API connection settings shared by the github
// remote store and the github asset host.
type GitHubConfig struct {
	Owner    string `mapstructure:"owner" yaml:"owner"`
	TokenEnv string `mapstructure:"token_env" yaml:"token_env"`
	APIBase  string `mapstructure:"api_base" yaml:"api_base"`
	Token    string `mapstructure:"-" yaml:"-"`
}

// RemoteConfig selects the authoritative document store.
type RemoteConfig struct {
	Backend   string          `mapstructure:"backend" yaml:"backend"` // memory, github, firestore, postgres
	GitHub    RemoteGitHub    `mapstructure:"github" yaml:"github"`
	Firestore RemoteFirestore `mapstructure:"firestore" yaml:"firestore"`
	Postgres  RemotePostgres  `mapstructure:"postgres" yaml:"postgres"`
}

// RemoteGitHub keeps one YAML file per collection in a repository.
type RemoteGitHub struct {
	Owner  string `mapstructure:"owner" yaml:"owner"`
	Repo   string `mapstructure:"repo" yaml:"repo"`
	Branch string `mapstructure:"branch" yaml:"branch"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
}

// RemoteFirestore points at a Firestore database.
type RemoteFirestore struct {
	ProjectID       string `mapstructure:"project_id" yaml:"project_id"`
	DatabaseID      string `mapstructure:"database_id" yaml:"database_id"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	BaseURL         string `mapstructure:"base_url" yaml:"base_url"`
}

// RemotePostgres names the driver and the env var holding the DSN.
type RemotePostgres struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // pgx or postgres
	DSNEnv string `mapstructure:"dsn_env" yaml:"dsn_env"`
	DSN    string `mapstructure:"-" yaml:"-"`
}

// AssetsConfig selects where uploaded images go.
type AssetsConfig struct {
	Backend      string           `mapstructure:"backend" yaml:"backend"` // local, cloudinary, github
	Local        AssetsLocal      `mapstructure:"local" yaml:"local"`
	Cloudinary   AssetsCloudinary `mapstructure:"cloudinary" yaml:"cloudinary"`
	GitHub       AssetsGitHub     `mapstructure:"github" yaml:"github"`
	MaxDimension int              `mapstructure:"max_dimension" yaml:"max_dimension"`
	JPEGQuality  int              `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
}

type AssetsLocal struct {
	Dir     string `mapstructure:"dir" yaml:"dir"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type AssetsCloudinary struct {
	CloudName    string `mapstructure:"cloud_name" yaml:"cloud_name"`
	UploadPreset string `mapstructure:"upload_preset" yaml:"upload_preset"`
	BaseURL      string `mapstructure:"base_url" yaml:"base_url"`
}

type AssetsGitHub struct {
	Owner   string `mapstructure:"owner" yaml:"owner"`
	Repo    string `mapstructure:"repo" yaml:"repo"`
	Release string `mapstructure:"release" yaml:"release"`
}

// MirrorConfig configures the durable local copy of each collection.
type MirrorConfig struct {
	Backend       string        `mapstructure:"backend" yaml:"backend"` // file, sqlite, none
	Dir           string        `mapstructure:"dir" yaml:"dir"`
	SQLitePath    string        `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Watch         bool          `mapstructure:"watch" yaml:"watch"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce" yaml:"watch_debounce"`
}

// CatalogConfig tunes cache behavior.
type CatalogConfig struct {
	PlaceholderImage string        `mapstructure:"placeholder_image" yaml:"placeholder_image"`
	OpaqueHosts      []string      `mapstructure:"opaque_hosts" yaml:"opaque_hosts"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`
	MirrorRetries    int           `mapstructure:"mirror_retries" yaml:"mirror_retries"`
	// SeedDir holds <collection>.yml files that replace the built-in seed.
	SeedDir string `mapstructure:"seed_dir" yaml:"seed_dir,omitempty"`
}

// LoggingConfig selects the zap preset and level.
type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// UserConfig is an account allowed to log in.
type UserConfig struct {
	Email        string `mapstructure:"email" yaml:"email"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash"`
	Role         string `mapstructure:"role" yaml:"role"`
}

// EffectiveOwner returns the section's owner or falls back to the global owner.
func (r *RemoteGitHub) EffectiveOwner(globalOwner string) string {
	if r.Owner != "" {
		return r.Owner
	}
	return globalOwner
}

// EffectiveBranch returns the configured branch or "main".
func (r *RemoteGitHub) EffectiveBranch() string {
	if r.Branch != "" {
		return r.Branch
	}
	return "main"
}

// EffectiveOwner returns the section's owner or falls back to the global owner.
func (a *AssetsGitHub) EffectiveOwner(globalOwner string) string {
	if a.Owner != "" {
		return a.Owner
	}
	return globalOwner
}

// EffectiveRelease returns the configured release tag or "catalog-images".
func (a *AssetsGitHub) EffectiveRelease() string {
	if a.Release != "" {
		return a.Release
	}
	return "catalog-images"
}

// Addr returns host:port for the HTTP listener.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UserByEmail returns the user with the given email, or nil.
func (c *Config) UserByEmail(email string) *UserConfig {
	for i := range c.Users {
		if c.Users[i].Email == email {
			return &c.Users[i]
		}
	}
	return nil
}

// AuthUsers converts the configured users, rejecting unknown roles.
func (c *Config) AuthUsers() ([]auth.User, error) {
	out := make([]auth.User, 0, len(c.Users))
	for _, u := range c.Users {
		role, err := auth.ParseRole(u.Role)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Email, err)
		}
		out = append(out, auth.User{Email: u.Email, PasswordHash: u.PasswordHash, Role: role})
	}
	return out, nil
}

// Validate checks backend names and required fields for the chosen
// backends.
func (c *Config) Validate() error {
	switch c.Remote.Backend {
	case "memory":
	case "github":
		if c.Remote.GitHub.EffectiveOwner(c.GitHub.Owner) == "" || c.Remote.GitHub.Repo == "" {
			return fmt.Errorf("remote.github needs owner and repo")
		}
	case "firestore":
		if c.Remote.Firestore.ProjectID == "" {
			return fmt.Errorf("remote.firestore.project_id is required")
		}
	case "postgres":
		if c.Remote.Postgres.DSN == "" {
			return fmt.Errorf("postgres DSN not set (env %s)", c.Remote.Postgres.DSNEnv)
		}
	default:
		return fmt.Errorf("unknown remote backend %q", c.Remote.Backend)
	}

	switch c.Assets.Backend {
	case "local":
	case "cloudinary":
		if c.Assets.Cloudinary.CloudName == "" {
			return fmt.Errorf("assets.cloudinary.cloud_name is required")
		}
	case "github":
		if c.Assets.GitHub.EffectiveOwner(c.GitHub.Owner) == "" || c.Assets.GitHub.Repo == "" {
			return fmt.Errorf("assets.github needs owner and repo")
		}
	default:
		return fmt.Errorf("unknown assets backend %q", c.Assets.Backend)
	}

	switch c.Mirror.Backend {
	case "file", "sqlite", "none":
	default:
		return fmt.Errorf("unknown mirror backend %q", c.Mirror.Backend)
	}

	if _, err := c.AuthUsers(); err != nil {
		return err
	}
	return nil
}
