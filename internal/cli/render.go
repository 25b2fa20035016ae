package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/vecsync-mcp/internal/detector"
	"github.com/dshills/vecsync-mcp/internal/searcher"
	"github.com/dshills/vecsync-mcp/pkg/types"
)

// statusRow is one collection as shown by status and sync
type statusRow struct {
	status  *types.SyncStatus
	display types.SyncState
}

var statusColumns = []struct {
	title string
	width int
}{
	{"COLLECTION", 20},
	{"STATE", 14},
	{"FILES", 12},
	{"FAILED", 8},
	{"CHUNKS", 8},
	{"LAST SYNC", 20},
}

func cell(s string, width int, style lipgloss.Style) string {
	if r := []rune(s); len(r) >= width {
		s = string(r[:max(0, width-2)]) + "…"
	}
	return style.Width(width).Render(s)
}

// renderStatusTable writes one line per collection
func renderStatusTable(w io.Writer, rows []statusRow) {
	var header []string
	for _, c := range statusColumns {
		header = append(header, cell(c.title, c.width, headerStyle))
	}
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, header...))

	if len(rows) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no collections"))
		return
	}

	for _, r := range rows {
		st := r.status
		last := "never"
		if !st.LastSyncTime.IsZero() {
			last = st.LastSyncTime.Local().Format("2006-01-02 15:04:05")
		}
		plain := lipgloss.NewStyle()
		line := lipgloss.JoinHorizontal(lipgloss.Top,
			cell(st.Collection, statusColumns[0].width, plain),
			cell(string(r.display), statusColumns[1].width, stateStyle(r.display)),
			cell(fmt.Sprintf("%d/%d", st.SyncedFiles, st.TotalFiles), statusColumns[2].width, plain),
			cell(fmt.Sprint(st.FailedFiles), statusColumns[3].width, plain),
			cell(fmt.Sprint(st.ChunkCount), statusColumns[4].width, plain),
			cell(last, statusColumns[5].width, dimStyle),
		)
		fmt.Fprintln(w, line)
	}
}

// renderStatusDetail writes the full status of one collection
func renderStatusDetail(w io.Writer, r statusRow) {
	st := r.status
	fmt.Fprintln(w, titleStyle.Render(st.Collection))
	fmt.Fprintf(w, "  state:     %s\n", stateStyle(r.display).Render(string(r.display)))
	fmt.Fprintf(w, "  files:     %d synced, %d failed, %d total\n", st.SyncedFiles, st.FailedFiles, st.TotalFiles)
	fmt.Fprintf(w, "  chunks:    %d\n", st.ChunkCount)
	if st.RunID != "" {
		fmt.Fprintf(w, "  run:       %s\n", dimStyle.Render(st.RunID))
	}
	if !st.LastSyncTime.IsZero() {
		fmt.Fprintf(w, "  last sync: %s (%s)\n",
			st.LastSyncTime.Local().Format(time.RFC3339), st.LastSyncDuration.Round(time.Millisecond))
	}
	if st.Progress != nil {
		fmt.Fprintf(w, "  progress:  %s\n", progressLine(st.Progress))
	}
	if st.LastError != "" {
		fmt.Fprintf(w, "  error:     %s\n", errorStyle.Render(st.LastError))
	}
	for _, e := range st.Errors {
		fmt.Fprintf(w, "    %s %s\n", errorStyle.Render("✗"), e)
	}
	for _, warning := range st.Warnings {
		fmt.Fprintf(w, "    %s %s\n", warnStyle.Render("!"), warning)
	}
}

func progressLine(p *types.SyncProgress) string {
	line := fmt.Sprintf("%d/%d files (%d failed)", p.Attempted, p.Planned, p.Failed)
	if p.Current != "" {
		line += " " + dimStyle.Render(p.Current)
	}
	return line
}

// renderChanges writes a pending change set
func renderChanges(w io.Writer, collection string, cs detector.ChangeSet) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(collection), dimStyle.Render(fmt.Sprintf("%d pending, %d unchanged", cs.Pending(), len(cs.Unchanged))))
	for _, p := range cs.Added {
		fmt.Fprintf(w, "  %s %s\n", successStyle.Render("+"), p)
	}
	for _, p := range cs.Modified {
		fmt.Fprintf(w, "  %s %s\n", warnStyle.Render("~"), p)
	}
	for _, p := range cs.Deleted {
		fmt.Fprintf(w, "  %s %s\n", errorStyle.Render("-"), p)
	}
}

// searchMarkdown renders results as a markdown document
func searchMarkdown(query string, resp *searcher.SearchResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Results for %q\n\n", query)
	if len(resp.Results) == 0 {
		b.WriteString("_No matching chunks._\n")
		return b.String()
	}
	for _, r := range resp.Results {
		fmt.Fprintf(&b, "## %d. %s/%s #%d (%.3f)\n\n", r.Rank, r.Collection, r.Path, r.ChunkIndex, r.Score)
		if len(r.HeaderHierarchy) > 0 {
			fmt.Fprintf(&b, "_%s_\n\n", strings.Join(r.HeaderHierarchy, " › "))
		}
		body := strings.TrimSpace(r.Content)
		if r.ChunkType == types.ChunkCodeBlock && !strings.HasPrefix(body, "```") {
			body = "```" + r.Language + "\n" + body + "\n```"
		}
		b.WriteString(body)
		b.WriteString("\n\n---\n\n")
	}
	return b.String()
}

// renderSearch writes results through glamour, falling back to plain
// markdown when no renderer can be built
func renderSearch(w io.Writer, query string, resp *searcher.SearchResponse, width int, raw bool) error {
	md := searchMarkdown(query, resp)
	if raw {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		_, err = io.WriteString(w, md)
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		_, err = io.WriteString(w, md)
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
