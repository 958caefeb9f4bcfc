package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/mirror"
	"github.com/sinhabinayak2207/extrawork/internal/util"
)

func newMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Inspect and manage the local catalog mirror",
	}
	cmd.AddCommand(newMirrorInfoCmd(), newMirrorClearCmd(), newMirrorBackupCmd())
	return cmd
}

// withMirror opens the configured mirror without starting the service.
func withMirror(fn func(m mirror.Mirror) error) error {
	m, err := openMirror(cfg)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("mirror is disabled (mirror.backend: none)")
	}
	defer m.Close()
	return fn(m)
}

// collectionsArg returns the named collection, or all of them.
func collectionsArg(args []string) ([]catalog.Collection, error) {
	if len(args) == 0 {
		return catalog.Collections, nil
	}
	c, err := catalog.ParseCollection(args[0])
	if err != nil {
		return nil, err
	}
	return []catalog.Collection{c}, nil
}

func newMirrorInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [collection]",
		Short: "Show what the mirror holds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := collectionsArg(args)
			if err != nil {
				return err
			}
			return withMirror(func(m mirror.Mirror) error {
				header("Mirror (%s)", cfg.Mirror.Backend)
				for _, c := range cols {
					info, err := m.Info(cmd.Context(), c)
					if err != nil {
						return fmt.Errorf("%s: %w", c, err)
					}
					printMirrorInfo(info)
				}
				return nil
			})
		},
	}
}

func printMirrorInfo(info mirror.Info) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, color.New(color.Bold).Sprint(info.Collection))
	printField("location", info.Location)
	if !info.Exists {
		printField("status", color.YellowString("empty"))
		return
	}
	printField("status", color.GreenString("ok"))
	printField("items", fmt.Sprintf("%d", info.Items))
	printField("size", humanBytes(info.Bytes))
	if info.Checksum != "" {
		printField("sha256", info.Checksum)
	}
	if !info.SavedAt.IsZero() {
		printField("saved_at", info.SavedAt.Format(time.RFC3339))
	}
}

func newMirrorClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [collection]",
		Short: "Delete mirrored collections",
		Long: `Delete mirrored collections. The next start without the remote store
falls back to the built-in seed data.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := collectionsArg(args)
			if err != nil {
				return err
			}
			return withMirror(func(m mirror.Mirror) error {
				for _, c := range cols {
					if err := m.Clear(cmd.Context(), c); err != nil {
						return fmt.Errorf("%s: %w", c, err)
					}
					ok("Cleared %s", c)
				}
				return nil
			})
		},
	}
}

func newMirrorBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <dir>",
		Short: "Copy the mirror files into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMirror(func(m mirror.Mirror) error {
				files, err := mirrorFiles(cmd.Context(), m)
				if err != nil {
					return err
				}
				if len(files) == 0 {
					warn("mirror is empty; nothing to back up")
					return nil
				}
				for _, src := range files {
					dst := filepath.Join(args[0], filepath.Base(src))
					if err := util.CopyFile(src, dst); err != nil {
						return fmt.Errorf("copying %s: %w", src, err)
					}
					ok("%s", dst)
				}
				return nil
			})
		},
	}
}

// mirrorFiles lists the distinct files backing the stored collections,
// including checksum sidecars of the file backend.
func mirrorFiles(ctx context.Context, m mirror.Mirror) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, c := range catalog.Collections {
		info, err := m.Info(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
		if !info.Exists {
			continue
		}
		// sqlite locations carry a #collection suffix
		path, _, _ := strings.Cut(info.Location, "#")
		add(path)
		if _, isFile := m.(*mirror.File); isFile && info.Checksum != "" {
			add(path + ".sha256")
		}
	}
	return files, nil
}

// humanBytes formats bytes as human-readable size.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for n := n / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
