package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/ingest"
)

const defaultActor = "showcasectl"

func addActorFlag(cmd *cobra.Command, actor *string) {
	cmd.Flags().StringVar(actor, "actor", defaultActor, "Recorded as updatedBy on changed items")
}

func newReplaceImageCmd() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "replace-image <collection> <slug|id> <file|url|github:owner/repo@ref:path>",
		Short: "Upload a new image for an item and store its URL",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.ParseCollection(args[0])
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			url, err := replaceImageFrom(cmd.Context(), rt, c, args[1], args[2], actor)
			if err != nil {
				return err
			}
			ok("Image of %s %s replaced", c.Kind(), args[1])
			printField("url", url)
			return nil
		},
	}
	addActorFlag(cmd, &actor)
	return cmd
}

// replaceImageFrom resolves input (a path, URL or github: reference) and
// hands it to the service.
func replaceImageFrom(ctx context.Context, rt *runtime, c catalog.Collection, ref, input, actor string) (string, error) {
	opts := ingest.Options{}
	if cfg.GitHub.Token != "" {
		opts.GitHub = newGitHubClient(rt.log)
	}
	src, err := ingest.Resolve(input, opts)
	if err != nil {
		return "", err
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return rt.svc.ReplaceImage(ctx, c, ref, rc, src.Name, actor)
}

func newFeatureCmd() *cobra.Command {
	var (
		off   bool
		actor string
	)

	cmd := &cobra.Command{
		Use:   "feature <collection> <slug|id>",
		Short: "Mark an item as featured (or not, with --off)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.ParseCollection(args[0])
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			it, err := rt.svc.Update(cmd.Context(), c, args[1], catalog.Patch{Featured: catalog.Ptr(!off)}, actor)
			if err != nil {
				return err
			}
			if it.Featured {
				ok("%s is featured", it.DisplayName)
			} else {
				ok("%s is no longer featured", it.DisplayName)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "Remove the featured flag")
	addActorFlag(cmd, &actor)
	return cmd
}

func newAddCmd() *cobra.Command {
	var (
		it    catalog.Item
		actor string
	)

	cmd := &cobra.Command{
		Use:   "add <collection>",
		Short: "Create a product or category",
		Example: `  showcasectl add categories --name "Spices" --image https://example.com/spices.jpg
  showcasectl add products --name "Turmeric" --category spices --featured`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.ParseCollection(args[0])
			if err != nil {
				return err
			}
			if c == catalog.Categories && it.Category != "" {
				return fmt.Errorf("--category only applies to products")
			}
			rt, err := openRuntime(cmd.Context(), runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			created, err := rt.svc.Add(cmd.Context(), c, it, actor)
			if err != nil {
				return err
			}
			ok("Added %s %s (id %s, slug %s)", c.Kind(), created.DisplayName, created.ID, created.Slug)
			return nil
		},
	}
	cmd.Flags().StringVar(&it.DisplayName, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&it.Slug, "slug", "", "URL slug (default: derived from the name)")
	cmd.Flags().StringVar(&it.Description, "description", "", "Description")
	cmd.Flags().StringVar(&it.ImageURL, "image", "", "Image URL")
	cmd.Flags().StringVar(&it.Category, "category", "", "Category slug or id (products only)")
	cmd.Flags().BoolVar(&it.Featured, "featured", false, "Feature on the landing page")
	_ = cmd.MarkFlagRequired("name")
	addActorFlag(cmd, &actor)
	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <collection> <slug|id>",
		Aliases: []string{"rm"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.ParseCollection(args[0])
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.svc.Remove(cmd.Context(), c, args[1]); err != nil {
				return err
			}
			ok("Removed %s %s", c.Kind(), args[1])
			return nil
		},
	}
}

func newRecountCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "recount [category-slug]",
		Short: "Recompute category product counts",
		Long: `Recompute the product count of one category, or of every category
when no slug is given. --count sets the count explicitly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit := cmd.Flags().Changed("count")
			if explicit && len(args) == 0 {
				return fmt.Errorf("--count needs a category slug")
			}
			if explicit && count < 0 {
				return fmt.Errorf("--count must not be negative")
			}
			rt, err := openRuntime(cmd.Context(), runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			slugs := args
			if len(slugs) == 0 {
				for _, c := range rt.svc.Categories().GetAll() {
					slugs = append(slugs, c.Slug)
				}
			}
			for _, slug := range slugs {
				if _, found := rt.svc.Categories().GetBySlug(slug); !found {
					return fmt.Errorf("category %q not found", slug)
				}
				var n *int
				if explicit {
					n = &count
				}
				ok("%s: %d products", slug, rt.svc.Recount(slug, n))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "Set this count instead of deriving it")
	return cmd
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-read both collections from the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.svc.Refresh(cmd.Context()); err != nil {
				return err
			}
			ok("products: %d (%s)", rt.svc.Products().Len(), rt.svc.Products().Tier())
			ok("categories: %d (%s)", rt.svc.Categories().Len(), rt.svc.Categories().Tier())
			return nil
		},
	}
}
