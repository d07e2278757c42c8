package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/activitygraph/pkg/feed"
	"github.com/matzehuels/activitygraph/pkg/pipeline"
	"github.com/matzehuels/activitygraph/pkg/reltime"
	"github.com/matzehuels/activitygraph/pkg/render/sink"
)

// defaultWatchTick is how often the watch view redraws captions and
// revalidates stale feeds when feed.poll is unset.
const defaultWatchTick = 30 * time.Second

var (
	watchHelpStyle   = lipgloss.NewStyle().Foreground(colorDim)
	watchStatusStyle = lipgloss.NewStyle().Foreground(colorGray)
)

// watchCommand shows a live-updating graph.
func (c *CLI) watchCommand() *cobra.Command {
	var source sourceFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a live-updating activity graph",
		Long: `Show the activity graph full screen and keep it current.

Stale feeds are revalidated every feed.poll interval. Press r to refresh
now and q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, &source)
			if err != nil {
				return err
			}

			var program *tea.Program
			a, err := c.openApp(cmd.Context(), cfg, nil, func() {
				if program != nil {
					program.Send(feedChangedMsg{})
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			tick := cfg.Feed.Poll
			if tick <= 0 {
				tick = defaultWatchTick
			}
			m := newWatchModel(cmd.Context(), a, c.Now, tick, source.refresh)
			program = tea.NewProgram(m, tea.WithContext(cmd.Context()), tea.WithAltScreen(), tea.WithOutput(c.Stdout))
			_, err = program.Run()
			return err
		},
	}

	source.register(cmd)
	return cmd
}

// =============================================================================
// watchModel
// =============================================================================

type (
	// feedChangedMsg is sent by the feeds after every state transition.
	feedChangedMsg struct{}

	// loadedMsg carries the result of the initial load or a refresh.
	loadedMsg struct{ status feed.Status }

	// tickMsg triggers a redraw and a revalidation.
	tickMsg time.Time
)

// watchModel is the bubbletea model of the watch command.
type watchModel struct {
	ctx     context.Context
	app     *app
	now     func() time.Time
	tick    time.Duration
	refresh bool

	status feed.Status
	graph  string
	err    error
	loaded bool
}

func newWatchModel(ctx context.Context, a *app, now func() time.Time, tick time.Duration, refresh bool) watchModel {
	return watchModel{ctx: ctx, app: a, now: now, tick: tick, refresh: refresh}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.load(m.refresh), m.scheduleTick())
}

func (m watchModel) load(refresh bool) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{status: m.app.start(m.ctx, refresh)}
	}
}

func (m watchModel) scheduleTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.load(true)
		}
	case loadedMsg:
		m.loaded = true
		m.status = msg.status
		m = m.redraw()
	case feedChangedMsg:
		if m.loaded {
			m.status = m.app.dash.Status()
			m = m.redraw()
		}
	case tickMsg:
		m.app.dash.Revalidate()
		m = m.redraw()
		return m, m.scheduleTick()
	}
	return m, nil
}

// redraw lays out the current status and renders it for the terminal.
func (m watchModel) redraw() watchModel {
	now := m.now()
	events, err := m.app.runner.Aggregate(pipeline.SnapshotFromStatus(m.status, now), m.app.opts)
	if err != nil {
		m.err = err
		return m
	}
	g, err := m.app.runner.Layout(m.ctx, events, m.app.opts)
	if err != nil {
		m.err = err
		return m
	}
	var b strings.Builder
	if err := sink.RenderText(&b, g, sink.TextOptions{Now: now, ForceColor: true}); err != nil {
		m.err = err
		return m
	}
	m.err = nil
	m.graph = b.String()
	return m
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Activity"))
	b.WriteString("  ")
	b.WriteString(watchStatusStyle.Render(m.statusLine()))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(StyleError.Render(m.err.Error()))
		b.WriteString("\n")
	case !m.loaded:
		b.WriteString(StyleDim.Render("Loading..."))
		b.WriteString("\n")
	case m.graph == "":
		b.WriteString(StyleDim.Render("No activity"))
		b.WriteString("\n")
	default:
		b.WriteString(m.graph)
	}

	errs := m.status.Errors()
	for _, provider := range slices.Sorted(maps.Keys(errs)) {
		b.WriteString(StyleError.Render(fmt.Sprintf("%s: %s", provider, errs[provider])))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(watchHelpStyle.Render("r refresh  q quit"))
	return b.String()
}

func (m watchModel) statusLine() string {
	switch {
	case !m.loaded:
		return "loading"
	case m.status.Loading():
		return "refreshing..."
	}
	fetched := m.status.GitHub.FetchedAt
	if m.status.Npm.FetchedAt.After(fetched) {
		fetched = m.status.Npm.FetchedAt
	}
	if fetched.IsZero() {
		return "no data"
	}
	return "fetched " + reltime.Format(fetched, m.now())
}
