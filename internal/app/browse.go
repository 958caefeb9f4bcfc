package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/events"
	"github.com/sinhabinayak2207/extrawork/internal/service"
	"github.com/sinhabinayak2207/extrawork/internal/tui"
)

func newBrowseCmd() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "browse [collection]",
		Short: "Browse the catalog interactively",
		Long: `Browse products (or categories) in a terminal UI. Toggle the featured
flag, replace images and refresh without leaving the browser. Falls back
to a table when stdout is not a terminal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := catalog.Products
			if len(args) == 1 {
				var err error
				if c, err = catalog.ParseCollection(args[0]); err != nil {
					return err
				}
			}

			rt, err := openRuntime(cmd.Context(), runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			if !tui.ShouldUseTUI(cmd) {
				st, err := rt.svc.Store(c)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderTable(c, st.GetAll(), categoryNames(rt.svc.Categories())))
				return nil
			}
			return runBrowser(cmd.Context(), rt, c, actor)
		},
	}
	addActorFlag(cmd, &actor)
	return cmd
}

// browserRows snapshots a collection for the browser.
func browserRows(svc *service.Service, c catalog.Collection) []tui.Row {
	st, err := svc.Store(c)
	if err != nil {
		return nil
	}
	names := categoryNames(svc.Categories())
	items := st.GetAll()
	rows := make([]tui.Row, len(items))
	for i, it := range items {
		rows[i] = tui.Row{Item: it, CategoryName: names[it.Category]}
	}
	return rows
}

// runBrowser reopens the browser after each action until the user quits.
func runBrowser(ctx context.Context, rt *runtime, c catalog.Collection, actor string) error {
	svc := rt.svc
	for {
		var (
			mu      sync.Mutex
			closed  bool
			updates = make(chan []tui.Row, 1)
		)
		unsubscribe := svc.Bus().Subscribe(func(e events.Event) {
			if e.Collection != c && e.Kind != events.Refreshed {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if closed {
				return
			}
			rows := browserRows(svc, c)
			// keep only the newest snapshot
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- rows:
			default:
			}
		}, events.ItemUpdated, events.ItemAdded, events.ItemRemoved, events.Refreshed)

		res, err := tui.RunBrowser(tui.BrowserOptions{
			Title:   "Showcase " + string(c),
			Rows:    browserRows(svc, c),
			Updates: updates,
		})
		unsubscribe()
		mu.Lock()
		closed = true
		close(updates)
		mu.Unlock()
		if err != nil {
			return err
		}

		switch res.Action {
		case tui.ActionNone:
			return nil
		case tui.ActionShowDetails:
			printItem(res.Row.Item)
			return nil
		case tui.ActionToggleFeatured:
			it := res.Row.Item
			if _, err := svc.Update(ctx, c, it.ID, catalog.Patch{Featured: catalog.Ptr(!it.Featured)}, actor); err != nil {
				warn("updating %s: %v", it.DisplayName, err)
			}
		case tui.ActionReplaceImage:
			replaceImageInteractive(ctx, rt, c, res.Row.Item, actor)
		case tui.ActionRefresh:
			if err := svc.Refresh(ctx); err != nil {
				warn("refresh: %v", err)
			}
		}
	}
}

func replaceImageInteractive(ctx context.Context, rt *runtime, c catalog.Collection, it catalog.Item, actor string) {
	input := readLine(fmt.Sprintf("Image file or URL for %s (empty to cancel): ", it.DisplayName))
	if input == "" {
		return
	}
	url, err := replaceImageFrom(ctx, rt, c, it.ID, input, actor)
	if err != nil {
		warn("replacing image: %v", err)
		return
	}
	ok("Image of %s replaced: %s", it.DisplayName, url)
}
