package app

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/store"
	"github.com/sinhabinayak2207/extrawork/internal/tui"
	"github.com/sinhabinayak2207/extrawork/internal/util"
)

const maxCellWidth = 48

func newCollectionCmd(c catalog.Collection) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(c),
		Short: fmt.Sprintf("List and inspect %s", c),
	}
	cmd.AddCommand(newListCmd(c), newShowCmd(c), newExportCmd(c))
	return cmd
}

func newListCmd(c catalog.Collection) *cobra.Command {
	var (
		filter catalog.Filter
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", c),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := rt.svc.Store(c)
			if err != nil {
				return err
			}
			items := st.GetAll()
			if filter.Category != "" {
				cat, ok := rt.svc.Categories().Lookup(filter.Category)
				if ok {
					items = inCategory(items, cat)
				} else {
					items = catalog.Filter{Category: filter.Category}.Apply(items)
				}
			}
			items = catalog.Filter{FeaturedOnly: filter.FeaturedOnly, Search: filter.Search}.Apply(items)

			if asJSON {
				return writeJSON(items)
			}
			if len(items) == 0 {
				warn("no %s match", c)
				return nil
			}
			header("%s (%d, from %s)", c, len(items), st.Tier())
			fmt.Fprintln(out, renderTable(c, items, categoryNames(rt.svc.Categories())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&filter.FeaturedOnly, "featured", false, "Only featured items")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Match name, slug or description")
	if c == catalog.Products {
		cmd.Flags().StringVar(&filter.Category, "category", "", "Only products in this category (slug or id)")
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newShowCmd(c catalog.Collection) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <slug|id>",
		Short: fmt.Sprintf("Show one of the %s", c),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := rt.svc.Store(c)
			if err != nil {
				return err
			}
			it, ok := st.Lookup(args[0])
			if !ok {
				return fmt.Errorf("%w: %s %q", store.ErrNotFound, c.Kind(), args[0])
			}
			if asJSON {
				return writeJSON(it)
			}
			printItem(it)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func inCategory(products []catalog.Item, cat catalog.Item) []catalog.Item {
	found := catalog.Filter{Category: cat.Slug}.Apply(products)
	if cat.ID != cat.Slug {
		found = append(found, catalog.Filter{Category: cat.ID}.Apply(products)...)
	}
	return found
}

// categoryNames maps category slugs and ids to display names.
func categoryNames(st *store.Store) map[string]string {
	names := make(map[string]string)
	for _, c := range st.GetAll() {
		names[c.Slug] = c.DisplayName
		names[c.ID] = c.DisplayName
	}
	return names
}

func renderTable(c catalog.Collection, items []catalog.Item, categories map[string]string) string {
	third := "CATEGORY"
	if c == catalog.Categories {
		third = "PRODUCTS"
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		group := categories[it.Category]
		if group == "" {
			group = it.Category
		}
		if c == catalog.Categories {
			group = strconv.Itoa(it.ProductCount)
		}
		featured := ""
		if it.Featured {
			featured = "★"
		}
		rows = append(rows, []string{
			it.ID,
			ansi.Truncate(it.DisplayName, maxCellWidth, "…"),
			it.Slug,
			group,
			featured,
			ansi.Truncate(it.ImageURL, maxCellWidth, "…"),
		})
	}

	head := lipgloss.NewStyle().Bold(true).Foreground(tui.ColorCyan).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tui.StyleHelp).
		Headers("ID", "NAME", "SLUG", third, "FEATURED", "IMAGE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return head
			}
			if col == 4 {
				return cell.Foreground(tui.ColorGreen)
			}
			return cell
		}).
		String()
}

func printItem(it catalog.Item) {
	header("%s: %s", it.Kind, it.DisplayName)
	printField("id", it.ID)
	printField("slug", it.Slug)
	if it.Category != "" {
		printField("category", it.Category)
	}
	if it.Kind == catalog.KindCategory {
		printField("products", strconv.Itoa(it.ProductCount))
	}
	featured := color.New(color.Faint).Sprint("no")
	if it.Featured {
		featured = color.GreenString("yes")
	}
	printField("featured", featured)
	printField("image", it.ImageURL)
	if it.Description != "" {
		printField("description", it.Description)
	}
	if !it.UpdatedAt.IsZero() {
		printField("updated_at", it.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	if it.UpdatedBy != "" {
		printField("updated_by", it.UpdatedBy)
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newExportCmd(c catalog.Collection) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: fmt.Sprintf("Write the current %s to a YAML file", c),
		Long: `Write the current snapshot as YAML. The file can be placed in
catalog.seed_dir to replace the built-in seed data.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := rt.svc.Store(c)
			if err != nil {
				return err
			}
			items := st.GetAll()
			if err := util.EnsureDir(filepath.Dir(args[0])); err != nil {
				return err
			}
			if err := catalog.Save(args[0], items); err != nil {
				return fmt.Errorf("exporting %s: %w", c, err)
			}
			ok("Exported %d %s to %s", len(items), c, args[0])
			return nil
		},
	}
}
