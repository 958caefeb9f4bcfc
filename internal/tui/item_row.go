package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
)

// Row is one catalog item in the browser list.
type Row struct {
	Item catalog.Item
	// CategoryName is the display name of a product's category, when known.
	CategoryName string
}

// FilterValue returns the text matched by the list filter.
func (r Row) FilterValue() string {
	return strings.Join([]string{r.Item.ID, r.Item.DisplayName, r.Item.Slug, r.Item.Category, r.CategoryName}, " ")
}

// groupLabel is the third column: the category of a product or the
// product count of a category.
func (r Row) groupLabel() string {
	if r.Item.Kind == catalog.KindCategory {
		return strconv.Itoa(r.Item.ProductCount) + " products"
	}
	if r.CategoryName != "" {
		return r.CategoryName
	}
	return r.Item.Category
}

const (
	minNameWidth  = 12
	maxNameWidth  = 40
	minSlugWidth  = 8
	maxSlugWidth  = 28
	minGroupWidth = 8
	featuredWidth = 10
	columnGap     = 1
)

// computeColumnWidths distributes available width proportionally across columns.
func computeColumnWidths(totalWidth int) (nameW, slugW, groupW int) {
	usable := totalWidth - 2 - columnGap*3 - featuredWidth
	if usable < minNameWidth+minSlugWidth+minGroupWidth {
		return minNameWidth, minSlugWidth, minGroupWidth
	}
	nameW = min(usable*45/100, maxNameWidth)
	slugW = min((usable-nameW)*50/100, maxSlugWidth)
	groupW = usable - nameW - slugW
	return max(nameW, minNameWidth), max(slugW, minSlugWidth), max(groupW, minGroupWidth)
}

// padOrTruncate fits s into exactly width terminal cells.
func padOrTruncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) > width {
		return ansi.Truncate(s, width, "…")
	}
	return s + strings.Repeat(" ", width-ansi.StringWidth(s))
}

type rowDelegate struct{}

func (rowDelegate) Height() int  { return 1 }
func (rowDelegate) Spacing() int { return 0 }
func (rowDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	row, ok := item.(Row)
	if !ok {
		return
	}
	width := m.Width()
	if width <= 0 {
		width = 80
	}
	nameW, slugW, groupW := computeColumnWidths(width)
	gap := strings.Repeat(" ", columnGap)

	cursor := index == m.Index()
	prefix := "  "
	if cursor {
		prefix = lipgloss.NewStyle().Foreground(ColorOrange).Render("›") + " "
	}

	name := padOrTruncate(row.Item.DisplayName, nameW)
	slug := padOrTruncate(row.Item.Slug, slugW)
	group := padOrTruncate(row.groupLabel(), groupW)
	featured := ""
	if row.Item.Featured {
		featured = "★ featured"
	}
	featured = padOrTruncate(featured, featuredWidth)

	if cursor {
		name = StyleHighlight.Render(name)
		slug = lipgloss.NewStyle().Foreground(ColorOrange).Faint(true).Render(slug)
		group = StyleCategory.Render(group)
		featured = StyleHighlight.Render(featured)
	} else {
		name = StyleNormal.Render(name)
		slug = StyleHelp.Render(slug)
		group = StyleCategory.Render(group)
		if row.Item.Featured {
			featured = StyleFeatured.Render(featured)
		}
	}
	_, _ = fmt.Fprint(w, prefix+name+gap+slug+gap+group+gap+featured)
}
