package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sinhabinayak2207/extrawork/internal/auth"
	"github.com/sinhabinayak2207/extrawork/internal/config"
)

func TestUserByEmail(t *testing.T) {
	cfg := &config.Config{
		Users: []config.UserConfig{
			{Email: "a@example.com", Role: "admin"},
			{Email: "m@example.com", Role: "master_admin"},
		},
	}
	u := cfg.UserByEmail("m@example.com")
	if u == nil {
		t.Fatal("UserByEmail returned nil for existing user")
	}
	if u.Role != "master_admin" {
		t.Errorf("Role = %q, want %q", u.Role, "master_admin")
	}
	if cfg.UserByEmail("nope@example.com") != nil {
		t.Error("UserByEmail should return nil for missing user")
	}
}

func TestUserByEmail_ReturnsPointer(t *testing.T) {
	cfg := &config.Config{Users: []config.UserConfig{{Email: "a@example.com"}}}
	cfg.UserByEmail("a@example.com").Role = "admin"
	if cfg.Users[0].Role != "admin" {
		t.Error("UserByEmail should return a pointer to the original slice element")
	}
}

func TestAuthUsers(t *testing.T) {
	cfg := &config.Config{Users: []config.UserConfig{
		{Email: "m@example.com", Role: "master_admin", PasswordHash: "h"},
		{Email: "v@example.com"},
	}}
	users, err := cfg.AuthUsers()
	if err != nil {
		t.Fatal(err)
	}
	if users[0].Role != auth.RoleMasterAdmin || users[1].Role != auth.RoleViewer {
		t.Errorf("roles = %v, %v", users[0].Role, users[1].Role)
	}

	cfg.Users[1].Role = "root"
	if _, err := cfg.AuthUsers(); err == nil {
		t.Error("AuthUsers should reject unknown roles")
	}
}

func TestEffectiveOwner(t *testing.T) {
	r := config.RemoteGitHub{Owner: "alice"}
	if got := r.EffectiveOwner("bob"); got != "alice" {
		t.Errorf("EffectiveOwner = %q, want %q", got, "alice")
	}
	a := config.AssetsGitHub{}
	if got := a.EffectiveOwner("bob"); got != "bob" {
		t.Errorf("EffectiveOwner = %q, want %q", got, "bob")
	}
}

func TestEffectiveDefaults(t *testing.T) {
	r := config.RemoteGitHub{}
	if got := r.EffectiveBranch(); got != "main" {
		t.Errorf("EffectiveBranch = %q, want main", got)
	}
	a := config.AssetsGitHub{}
	if got := a.EffectiveRelease(); got != "catalog-images" {
		t.Errorf("EffectiveRelease = %q, want catalog-images", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Remote: config.RemoteConfig{Backend: "memory"},
			Assets: config.AssetsConfig{Backend: "local"},
			Mirror: config.MirrorConfig{Backend: "file"},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"remote backend", func(c *config.Config) { c.Remote.Backend = "mongo" }, "unknown remote backend"},
		{"github repo", func(c *config.Config) { c.Remote.Backend = "github" }, "remote.github"},
		{"firestore project", func(c *config.Config) { c.Remote.Backend = "firestore" }, "project_id"},
		{"postgres dsn", func(c *config.Config) { c.Remote.Backend = "postgres" }, "DSN"},
		{"cloudinary", func(c *config.Config) { c.Assets.Backend = "cloudinary" }, "cloud_name"},
		{"assets backend", func(c *config.Config) { c.Assets.Backend = "s3" }, "unknown assets backend"},
		{"mirror backend", func(c *config.Config) { c.Mirror.Backend = "redis" }, "unknown mirror backend"},
		{"role", func(c *config.Config) { c.Users = []config.UserConfig{{Email: "x", Role: "god"}} }, "unknown role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	p := config.DefaultPath()
	if p == "" {
		t.Fatal("DefaultPath returned empty string")
	}
	if !strings.HasSuffix(p, filepath.Join("showcasectl", "config.yml")) {
		t.Errorf("DefaultPath = %q, should end with showcasectl/config.yml", p)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	data := `
server:
  port: 9090
  token_ttl: 2h
remote:
  backend: postgres
  postgres:
    dsn_env: TEST_SHOWCASE_DSN
catalog:
  refresh_interval: 5m
  opaque_hosts: [cloudinary.com, githubusercontent.com]
users:
  - email: m@example.com
    role: master_admin
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHOWCASE_CONFIG", path)
	t.Setenv("TEST_SHOWCASE_DSN", "postgres://localhost/showcase")
	t.Setenv("SHOWCASE_JWT_SECRET", "shh")
	t.Setenv("SHOWCASE_LOGGING_LEVEL", "debug")

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL = %v, want 2h", cfg.Server.TokenTTL)
	}
	if cfg.Server.JWTSecret != "shh" {
		t.Errorf("JWTSecret = %q", cfg.Server.JWTSecret)
	}
	if cfg.Remote.Postgres.DSN != "postgres://localhost/showcase" {
		t.Errorf("DSN = %q", cfg.Remote.Postgres.DSN)
	}
	if cfg.Catalog.RefreshInterval != 5*time.Minute {
		t.Errorf("RefreshInterval = %v", cfg.Catalog.RefreshInterval)
	}
	if len(cfg.Catalog.OpaqueHosts) != 2 {
		t.Errorf("OpaqueHosts = %v", cfg.Catalog.OpaqueHosts)
	}
	if cfg.Catalog.MirrorRetries != 3 {
		t.Errorf("MirrorRetries = %d, want default 3", cfg.Catalog.MirrorRetries)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want env override", cfg.Logging.Level)
	}
	if len(cfg.Users) != 1 || cfg.Users[0].Role != "master_admin" {
		t.Errorf("Users = %+v", cfg.Users)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SHOWCASE_CONFIG", filepath.Join(t.TempDir(), "absent.yml"))
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Remote.Backend != "memory" || cfg.Assets.Backend != "local" || cfg.Mirror.Backend != "file" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	in := &config.Config{
		Server:  config.ServerConfig{Host: "0.0.0.0", Port: 8081, TokenTTL: time.Hour, JWTSecret: "never-written"},
		Remote:  config.RemoteConfig{Backend: "memory"},
		Catalog: config.CatalogConfig{RefreshInterval: 90 * time.Second},
	}
	if err := config.SaveTo(path, in); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "never-written") {
		t.Error("secret written to config file")
	}

	t.Setenv("SHOWCASE_CONFIG", path)
	out, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if out.Server.Port != 8081 || out.Server.TokenTTL != time.Hour {
		t.Errorf("server = %+v", out.Server)
	}
	if out.Catalog.RefreshInterval != 90*time.Second {
		t.Errorf("RefreshInterval = %v", out.Catalog.RefreshInterval)
	}
}
