package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sinhabinayak2207/extrawork/internal/assets"
	"github.com/sinhabinayak2207/extrawork/internal/auth"
	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/config"
	ghclient "github.com/sinhabinayak2207/extrawork/internal/github"
	"github.com/sinhabinayak2207/extrawork/internal/logging"
	"github.com/sinhabinayak2207/extrawork/internal/mirror"
	"github.com/sinhabinayak2207/extrawork/internal/remote"
	"github.com/sinhabinayak2207/extrawork/internal/service"
)

// runtime is a started catalog service plus the resources behind it.
type runtime struct {
	log     *zap.Logger
	svc     *service.Service
	mirror  mirror.Mirror
	closers []func() error
}

type runtimeOptions struct {
	// long-running enables the refresh loop, the mirror watcher and info
	// level logging
	serve bool
}

func newLogger(serve bool) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if !serve && !flagVerbose {
		level = "warn"
	}
	return logging.New(logging.Options{
		Level:       level,
		Development: cfg.Logging.Development,
		Verbose:     flagVerbose,
	})
}

func newGitHubClient(log *zap.Logger) *ghclient.Client {
	return ghclient.New(cfg.GitHub.Token, cfg.GitHub.APIBase, ghclient.WithLogger(log.Named("github")))
}

// openMirror returns nil when the mirror is disabled.
func openMirror(c *config.Config) (mirror.Mirror, error) {
	if c.Mirror.Backend == "none" {
		return nil, nil
	}
	return mirror.Open(c.Mirror.Backend, c.Mirror.Dir, c.Mirror.SQLitePath)
}

// openRemote builds the configured remote store. The memory backend is
// primed from the mirror, or the seed data when the mirror is empty, so
// that one-shot commands operate on the last saved catalog.
func openRemote(ctx context.Context, log *zap.Logger, m mirror.Mirror, seeds map[catalog.Collection][]catalog.Item) (remote.Store, func() error, error) {
	switch cfg.Remote.Backend {
	case "memory":
		mem := remote.NewMemory()
		for _, c := range catalog.Collections {
			items := seeds[c]
			if items == nil {
				items = catalog.Seed(c)
			}
			if m != nil {
				if saved, err := m.Load(ctx, c); err == nil {
					items = saved
				}
			}
			mem.Put(c, items)
		}
		return mem, nil, nil

	case "github":
		rc := cfg.Remote.GitHub
		return remote.NewGitHub(newGitHubClient(log), remote.GitHubOptions{
			Owner:  rc.EffectiveOwner(cfg.GitHub.Owner),
			Repo:   rc.Repo,
			Branch: rc.EffectiveBranch(),
			Dir:    rc.Dir,
		}), nil, nil

	case "firestore":
		fc := cfg.Remote.Firestore
		fs, err := remote.DialFirestore(ctx, remote.FirestoreOptions{
			ProjectID:       fc.ProjectID,
			DatabaseID:      fc.DatabaseID,
			BaseURL:         fc.BaseURL,
			CredentialsFile: fc.CredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil

	case "postgres":
		pc := cfg.Remote.Postgres
		pg, err := remote.OpenPostgres(ctx, pc.Driver, pc.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown remote backend %q", cfg.Remote.Backend)
}

// loadSeeds reads <dir>/<collection>.yml for each collection. Missing or
// empty files keep the built-in seed.
func loadSeeds(dir string) (map[catalog.Collection][]catalog.Item, error) {
	if dir == "" {
		return nil, nil
	}
	seeds := make(map[catalog.Collection][]catalog.Item)
	for _, c := range catalog.Collections {
		items, err := catalog.Load(filepath.Join(dir, string(c)+".yml"))
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", c, err)
		}
		if len(items) > 0 {
			seeds[c] = items
		}
	}
	return seeds, nil
}

func openAssets(log *zap.Logger) (assets.Host, error) {
	ac := cfg.Assets
	switch ac.Backend {
	case "local":
		return assets.NewLocal(ac.Local.Dir, ac.Local.BaseURL), nil
	case "cloudinary":
		h, err := assets.NewCloudinary(assets.CloudinaryOptions{
			CloudName:    ac.Cloudinary.CloudName,
			UploadPreset: ac.Cloudinary.UploadPreset,
			BaseURL:      ac.Cloudinary.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		return h, nil
	case "github":
		return assets.NewGitHubReleases(newGitHubClient(log), assets.GitHubReleaseOptions{
			Owner:   ac.GitHub.EffectiveOwner(cfg.GitHub.Owner),
			Repo:    ac.GitHub.Repo,
			Release: ac.GitHub.EffectiveRelease(),
		}), nil
	}
	return nil, fmt.Errorf("unknown assets backend %q", ac.Backend)
}

// openRuntime wires every backend from cfg and starts the service.
func openRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	log, err := newLogger(opts.serve)
	if err != nil {
		return nil, err
	}
	rt := &runtime{log: log}

	m, err := openMirror(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening mirror: %w", err)
	}
	rt.mirror = m
	if m != nil {
		rt.closers = append(rt.closers, m.Close)
	}

	seeds, err := loadSeeds(cfg.Catalog.SeedDir)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	store, closeRemote, err := openRemote(ctx, log, m, seeds)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("opening remote store: %w", err)
	}
	if closeRemote != nil {
		rt.closers = append(rt.closers, closeRemote)
	}

	host, err := openAssets(log)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	svcOpts := service.Options{
		Remote: store,
		Mirror: m,
		Assets: host,
		Images: catalog.ImagePolicy{
			Placeholder: cfg.Catalog.PlaceholderImage,
			OpaqueHosts: cfg.Catalog.OpaqueHosts,
		},
		Seeds:          seeds,
		Logger:         log,
		MirrorAttempts: cfg.Catalog.MirrorRetries,
		// CLI commands on the memory backend share state through the mirror.
		SharedMirror:   cfg.Remote.Backend == "memory" && m != nil,
		MaxDimension:   cfg.Assets.MaxDimension,
		JPEGQuality:    cfg.Assets.JPEGQuality,
	}
	if opts.serve {
		svcOpts.RefreshInterval = cfg.Catalog.RefreshInterval
		svcOpts.WatchMirror = cfg.Mirror.Watch
		svcOpts.WatchDebounce = cfg.Mirror.WatchDebounce
	}
	rt.svc = service.New(svcOpts)
	if err := rt.svc.Start(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close stops the service, flushing the mirror, then releases backends.
func (rt *runtime) Close() error {
	var errs []error
	if rt.svc != nil {
		errs = append(errs, rt.svc.Close())
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	_ = rt.log.Sync()
	return errors.Join(errs...)
}

// newAuthenticator builds the login service. Without a configured secret
// a random one is used, so tokens do not survive a restart.
func newAuthenticator() (*auth.Authenticator, error) {
	users, err := cfg.AuthUsers()
	if err != nil {
		return nil, err
	}
	secret := []byte(cfg.Server.JWTSecret)
	if len(secret) == 0 {
		warn("%s not set; using a random token secret for this process", cfg.Server.JWTSecretEnv)
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
	}
	return auth.New(secret, cfg.Server.TokenTTL, users)
}
