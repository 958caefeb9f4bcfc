package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sinhabinayak2207/extrawork/internal/auth"
	"github.com/sinhabinayak2207/extrawork/internal/config"
	ghclient "github.com/sinhabinayak2207/extrawork/internal/github"
)

func newInitCmd() *cobra.Command {
	var (
		remoteBackend string
		assetsBackend string
		mirrorBackend string
		owner         string
		repo          string
		adminEmail    string
		adminPassword string
		force         bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Example: `  showcasectl init --admin-email owner@example.com --admin-password s3cret
  showcasectl init --remote github --assets github --owner acme --repo showcase-data`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			// Load again so a missing file still yields the defaults.
			c, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("remote") {
				c.Remote.Backend = remoteBackend
			}
			if cmd.Flags().Changed("assets") {
				c.Assets.Backend = assetsBackend
			}
			if cmd.Flags().Changed("mirror") {
				c.Mirror.Backend = mirrorBackend
			}
			if owner != "" {
				c.GitHub.Owner = owner
			}
			if repo != "" {
				c.Remote.GitHub.Repo = repo
				c.Assets.GitHub.Repo = repo
			}

			if adminEmail != "" {
				if adminPassword == "" {
					adminPassword = readLine("Password for " + adminEmail + ": ")
				}
				hash, err := auth.HashPassword(adminPassword)
				if err != nil {
					return err
				}
				if u := c.UserByEmail(adminEmail); u != nil {
					u.PasswordHash = hash
					u.Role = auth.RoleMasterAdmin.String()
				} else {
					c.Users = append(c.Users, config.UserConfig{
						Email:        adminEmail,
						PasswordHash: hash,
						Role:         auth.RoleMasterAdmin.String(),
					})
				}
			}

			if err := c.Validate(); err != nil {
				return err
			}
			checkGitHubRepos(cmd.Context(), c)
			if err := config.SaveTo(path, c); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			ok("Wrote %s", path)
			printField("remote", c.Remote.Backend)
			printField("assets", c.Assets.Backend)
			printField("mirror", c.Mirror.Backend)
			if c.Server.JWTSecret == "" {
				warn("set %s before running serve so tokens survive restarts", c.Server.JWTSecretEnv)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&remoteBackend, "remote", "memory", "Remote store: memory, github, firestore, postgres")
	cmd.Flags().StringVar(&assetsBackend, "assets", "local", "Asset host: local, cloudinary, github")
	cmd.Flags().StringVar(&mirrorBackend, "mirror", "file", "Mirror: file, sqlite, none")
	cmd.Flags().StringVar(&owner, "owner", "", "GitHub owner for the github backends")
	cmd.Flags().StringVar(&repo, "repo", "", "GitHub repository for the github backends")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "Create a master_admin user")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "Password for --admin-email (prompted when empty)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

// checkGitHubRepos warns about configured repositories that cannot be
// reached. It is skipped without a token.
func checkGitHubRepos(ctx context.Context, c *config.Config) {
	if c.GitHub.Token == "" {
		return
	}
	type target struct{ owner, repo string }
	var targets []target
	if c.Remote.Backend == "github" {
		targets = append(targets, target{c.Remote.GitHub.EffectiveOwner(c.GitHub.Owner), c.Remote.GitHub.Repo})
	}
	if c.Assets.Backend == "github" {
		targets = append(targets, target{c.Assets.GitHub.EffectiveOwner(c.GitHub.Owner), c.Assets.GitHub.Repo})
	}

	gh := ghclient.New(c.GitHub.Token, c.GitHub.APIBase)
	seen := map[target]bool{}
	for _, t := range targets {
		if seen[t] {
			continue
		}
		seen[t] = true
		exists, err := gh.RepoExists(ctx, t.owner, t.repo)
		switch {
		case ghclient.IsRateLimited(err):
			warn("GitHub rate limit hit checking %s/%s; set github.token for a higher limit", t.owner, t.repo)
		case err != nil:
			warn("checking %s/%s: %v", t.owner, t.repo, err)
		case !exists:
			warn("repository %s/%s not found; create it before running serve", t.owner, t.repo)
		}
	}
}
