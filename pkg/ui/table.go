package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"skytally/pkg/aggregate"
	"skytally/pkg/bluesky"
)

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonYellow  = lipgloss.Color("#FFFF00")
	dimWhite    = lipgloss.Color("#B0B0B0")
)

// TableOptions controls how a count table is drawn
type TableOptions struct {
	Title       string
	KeyHeader   string
	CountHeader string
	// ShowTotal appends a total row
	ShowTotal bool
}

// RenderTable draws a count table. Styling follows the capabilities of w,
// so output written to a file or pipe is plain text.
func RenderTable(w io.Writer, t aggregate.Table, opts TableOptions) error {
	keyHeader := opts.KeyHeader
	if keyHeader == "" {
		keyHeader = "Key"
	}
	countHeader := opts.CountHeader
	if countHeader == "" {
		countHeader = "Count"
	}

	rows := make([][]string, 0, len(t)+1)
	for _, e := range t {
		rows = append(rows, []string{e.Key, strconv.Itoa(e.Count)})
	}
	if opts.ShowTotal && len(t) > 0 {
		rows = append(rows, []string{"Total", strconv.Itoa(t.Sum())})
	}

	return renderGrid(w, opts.Title, []string{keyHeader, countHeader}, rows, 1)
}

// RenderTimeline draws a likes-over-time series, one row per bucket
func RenderTimeline(w io.Writer, tl aggregate.Timeline, title string) error {
	return RenderTable(w, tl.Buckets, TableOptions{
		Title:       fmt.Sprintf("%s (per %s)", title, tl.Granularity),
		KeyHeader:   "Time (UTC)",
		CountHeader: "Likes",
		ShowTotal:   true,
	})
}

// RenderLikers lists likers whose display names carry flags
func RenderLikers(w io.Writer, likers []aggregate.LikerFlags, title string) error {
	rows := make([][]string, 0, len(likers))
	for _, l := range likers {
		rows = append(rows, []string{l.Handle, l.DisplayName, strings.Join(l.Flags, " "), bluesky.GetProfileURL(l.Handle)})
	}
	return renderGrid(w, title, []string{"Handle", "Display name", "Flags", "Profile"}, rows, -1)
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// renderGrid draws rows under headers; numericCol is right aligned
func renderGrid(w io.Writer, title string, headers []string, rows [][]string, numericCol int) error {
	r := lipgloss.NewRenderer(w)

	if title != "" {
		if _, err := fmt.Fprintln(w, r.NewStyle().Foreground(neonMagenta).Bold(true).Render(title)); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, r.NewStyle().Faint(true).Render("(no results)"))
		return err
	}

	headerStyle := r.NewStyle().Foreground(neonCyan).Bold(true).Padding(0, 1)
	cellStyle := r.NewStyle().Foreground(dimWhite).Padding(0, 1)
	numberStyle := r.NewStyle().Foreground(neonYellow).Padding(0, 1).Align(lipgloss.Right)

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.NewStyle().Foreground(neonMagenta)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == numericCol:
				return numberStyle
			default:
				return cellStyle
			}
		})

	if width := terminalWidth(w); width > 0 {
		tbl.Width(min(width, naturalWidth(headers, rows)))
	}

	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}

// terminalWidth returns the column count of w, or 0 when w is not a terminal
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// naturalWidth is the unconstrained width of the grid, so narrow tables are
// not stretched across the terminal
func naturalWidth(headers []string, rows [][]string) int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	// one cell of padding each side plus a border per column and the edge
	total := len(headers) + 1
	for _, w := range widths {
		total += w + 2
	}
	return total
}
