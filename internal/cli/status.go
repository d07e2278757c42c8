package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/activitygraph/pkg/feed"
	"github.com/matzehuels/activitygraph/pkg/reltime"
)

// statusCommand prints the state of each configured feed.
func (c *CLI) statusCommand() *cobra.Command {
	var source sourceFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of each feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, &source)
			if err != nil {
				return err
			}
			a, err := c.openApp(cmd.Context(), cfg, nil, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			st := a.start(cmd.Context(), source.refresh)
			renderStatusTable(c.Stdout, feedRows(a, st), c.Now())
			return nil
		},
	}

	source.register(cmd)
	return cmd
}

// feedRow is one line of the status table.
type feedRow struct {
	provider  string
	identity  string
	items     int
	fetchedAt time.Time
	fromCache bool
	loading   bool
	err       string
}

func feedRows(a *app, st feed.Status) []feedRow {
	var rows []feedRow
	if a.dash.GitHub != nil {
		rows = append(rows, newFeedRow("github", a.cfg.GitHub.User, st.GitHub))
	}
	if a.dash.Npm != nil {
		rows = append(rows, newFeedRow("npm", a.cfg.Npm.Maintainer, st.Npm))
	}
	return rows
}

func newFeedRow[T any](provider, identity string, s feed.State[T]) feedRow {
	return feedRow{
		provider:  provider,
		identity:  identity,
		items:     len(s.Items),
		fetchedAt: s.FetchedAt,
		fromCache: s.FromCache,
		loading:   s.Loading,
		err:       s.Err,
	}
}

func (r feedRow) state() string {
	switch {
	case r.err != "":
		return "error: " + r.err
	case r.loading:
		return "revalidating"
	case r.fromCache:
		return iconCached
	default:
		return iconFresh
	}
}

func renderStatusTable(w io.Writer, rows []feedRow, now time.Time) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("PROVIDER", "IDENTITY", "ITEMS", "FETCHED", "STATE").
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == -1 {
				return style.Bold(true).Foreground(colorCyan)
			}
			if col == 4 && rows[row].err != "" {
				return style.Foreground(colorRed)
			}
			return style
		})

	for _, r := range rows {
		fetched := "never"
		if !r.fetchedAt.IsZero() {
			fetched = reltime.Format(r.fetchedAt, now)
		}
		t.Row(r.provider, r.identity, fmt.Sprint(r.items), fetched, r.state())
	}
	fmt.Fprintln(w, t.Render())
}
