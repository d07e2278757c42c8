package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/activitygraph/pkg/cache"
	agerrors "github.com/matzehuels/activitygraph/pkg/errors"
)

var testNow = time.Date(2024, 5, 10, 13, 0, 0, 0, time.UTC)

const (
	githubFixture = `[
  {"id":"7","type":"PushEvent","actor":{"login":"octocat"},"repo":{"name":"octo/api"},
   "created_at":"2024-05-10T12:00:00Z","payload":{"ref":"refs/heads/main","size":1}},
  {"id":"8","type":"WatchEvent","actor":{"login":"octocat"},"repo":{"name":"octo/web"},
   "created_at":"2024-05-10T10:00:00Z","payload":{"action":"started"}}
]`
	npmFixture = `{"objects":[{"package":{"name":"octo-kit","version":"2.1.0","date":"2024-05-10T11:00:00Z"}}],"total":1}`
)

type providers struct {
	server *httptest.Server
	github atomic.Int32
}

func newProviders(t *testing.T) *providers {
	t.Helper()
	p := &providers{}
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat/events/public", func(w http.ResponseWriter, r *http.Request) {
		p.github.Add(1)
		io.WriteString(w, githubFixture)
	})
	mux.HandleFunc("/-/v1/search", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, npmFixture)
	})
	mux.HandleFunc("/downloads/point/last-week/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"downloads":42,"package":"octo-kit"}`)
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

// writeConfig writes a config pointing both providers at p and the file
// cache at a temporary directory. extra is appended verbatim.
func writeConfig(t *testing.T, p *providers, extra string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
[github]
user     = "octocat"
base_url = %q

[npm]
maintainer    = "octocat"
registry_url  = %q
downloads_url = %q

[cache]
backend = "file"
dir     = %q
%s`, p.server.URL, p.server.URL, p.server.URL, filepath.Join(dir, "cache"), extra)
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestCLI() (*CLI, *bytes.Buffer) {
	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.Stdout = &out
	c.Stderr = io.Discard
	c.Getenv = func(string) string { return "" }
	c.Now = func() time.Time { return testNow }
	return c, &out
}

func run(t *testing.T, c *CLI, args ...string) error {
	t.Helper()
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c, _ := newTestCLI()
	root := c.RootCommand()
	for _, name := range []string{"show", "render", "status", "watch", "serve", "cache", "completion"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestLoadConfigFlags(t *testing.T) {
	p := newProviders(t)
	c, _ := newTestCLI()
	c.configPath = writeConfig(t, p, "")

	var f sourceFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	if err := cmd.ParseFlags([]string{"--npm-maintainer", "sindresorhus", "--limit", "5", "--asc", "--kind", "push,star-given", "--max-lanes", "3", "--no-dates"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := c.loadConfig(cmd, &f)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.GitHub.User != "octocat" || cfg.Npm.Maintainer != "sindresorhus" {
		t.Errorf("identities = %q, %q", cfg.GitHub.User, cfg.Npm.Maintainer)
	}
	if cfg.GitHub.Limit != 5 || cfg.Npm.Limit != 5 {
		t.Errorf("limits = %d, %d", cfg.GitHub.Limit, cfg.Npm.Limit)
	}
	if cfg.Layout.Orientation != "asc" || cfg.Layout.MaxLanes != 3 || !cfg.Layout.NoDates {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if len(cfg.Layout.Kinds) != 2 || cfg.Layout.Kinds[1] != "star-given" {
		t.Errorf("kinds = %v", cfg.Layout.Kinds)
	}
}

func TestLoadConfigEnvAndNoCache(t *testing.T) {
	p := newProviders(t)
	c, _ := newTestCLI()
	c.configPath = writeConfig(t, p, "")
	env := map[string]string{"ACTIVITYGRAPH_GITHUB_USER": "hubot", "GITHUB_TOKEN": "secret"}
	c.Getenv = func(k string) string { return env[k] }

	var f sourceFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	if err := cmd.ParseFlags([]string{"--no-cache"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := c.loadConfig(cmd, &f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GitHub.User != "hubot" || cfg.GitHub.Token != "secret" {
		t.Errorf("github = %+v", cfg.GitHub)
	}
	if cfg.Cache.Backend != cache.BackendNone {
		t.Errorf("backend = %q, want none", cfg.Cache.Backend)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no identity", []string{"--github-user", "", "--npm-maintainer", ""}},
		{"bad user", []string{"--github-user=-octo"}},
		{"bad kind", []string{"--kind", "dance"}},
		{"bad limit", []string{"--limit", "0"}},
	}
	p := newProviders(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCLI()
			c.configPath = writeConfig(t, p, "")
			var f sourceFlags
			cmd := &cobra.Command{Use: "test"}
			f.register(cmd)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}
			_, err := c.loadConfig(cmd, &f)
			if !agerrors.Is(err, agerrors.ErrCodeInvalidConfig) {
				t.Errorf("error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestShowTranscript(t *testing.T) {
	p := newProviders(t)
	c, out := newTestCLI()
	if err := run(t, c, "--config", writeConfig(t, p, ""), "show", "--transcript"); err != nil {
		t.Fatalf("show: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("transcript has %d lines:\n%s", len(lines), out.String())
	}
	prefixes := []string{
		"2024-05-10T12:00:00Z – octo/api: Pushed",
		"2024-05-10T11:00:00Z – npm: Published octo-kit@2.1.0",
		"2024-05-10T10:00:00Z – octo/web: Starred octo/web",
	}
	for i, want := range prefixes {
		if !strings.HasPrefix(lines[i], want) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], want)
		}
	}
}

func TestShowServesFromCache(t *testing.T) {
	p := newProviders(t)
	cfg := writeConfig(t, p, "")

	for i := 0; i < 2; i++ {
		c, out := newTestCLI()
		if err := run(t, c, "--config", cfg, "show", "--no-color", "--kind", "push"); err != nil {
			t.Fatalf("show #%d: %v", i, err)
		}
		if !strings.Contains(out.String(), "Pushed") || strings.Contains(out.String(), "Starred") {
			t.Errorf("show #%d output:\n%s", i, out.String())
		}
	}
	if got := p.github.Load(); got != 1 {
		t.Errorf("github requests = %d, want 1", got)
	}

	c, _ := newTestCLI()
	if err := run(t, c, "--config", cfg, "show", "--refresh"); err != nil {
		t.Fatal(err)
	}
	if got := p.github.Load(); got != 2 {
		t.Errorf("github requests after --refresh = %d, want 2", got)
	}
}

func TestRenderWritesFiles(t *testing.T) {
	p := newProviders(t)
	c, _ := newTestCLI()
	base := filepath.Join(t.TempDir(), "out", "graph")
	if err := run(t, c, "--config", writeConfig(t, p, ""), "render", "-f", "svg,json,dot", "-o", base+".svg"); err != nil {
		t.Fatalf("render: %v", err)
	}

	for ext, prefix := range map[string]string{".svg": "<svg", ".json": "{", ".dot": "digraph activity"} {
		data, err := os.ReadFile(base + ext)
		if err != nil {
			t.Errorf("read %s: %v", ext, err)
			continue
		}
		if !strings.HasPrefix(string(data), prefix) {
			t.Errorf("%s starts with %.40q", ext, data)
		}
	}
}

func TestRenderStdout(t *testing.T) {
	p := newProviders(t)
	c, out := newTestCLI()
	if err := run(t, c, "--config", writeConfig(t, p, ""), "render", "-f", "txt", "-o", "-"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "2024-05-10T12:00:00Z") {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestRenderInvalidFormat(t *testing.T) {
	c, _ := newTestCLI()
	err := run(t, c, "render", "-f", "pdf")
	if !agerrors.Is(err, agerrors.ErrCodeInvalidFormat) {
		t.Errorf("error = %v, want INVALID_FORMAT", err)
	}
}

func TestStatusTable(t *testing.T) {
	p := newProviders(t)
	c, out := newTestCLI()
	c.Now = time.Now
	if err := run(t, c, "--config", writeConfig(t, p, ""), "status"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"PROVIDER", "github", "npm", "octocat", "fresh"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status output lacks %q:\n%s", want, out.String())
		}
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{"svg"}},
		{"svg", []string{"svg"}},
		{"svg, dot,json", []string{"svg", "dot", "json"}},
	}
	for _, tt := range tests {
		got := parseFormats(tt.input)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestBasePath(t *testing.T) {
	tests := map[string]string{
		"":                 "activity",
		"out":              "out",
		"out.svg":          "out",
		"out.graphviz.svg": "out",
		"dir/graph.json":   "dir/graph",
		"notes.md":         "notes.md",
	}
	for in, want := range tests {
		if got := basePath(in); got != want {
			t.Errorf("basePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayAddr(t *testing.T) {
	if got := displayAddr(":8080"); got != "localhost:8080" {
		t.Errorf("displayAddr(:8080) = %q", got)
	}
	if got := displayAddr("0.0.0.0:9000"); got != "0.0.0.0:9000" {
		t.Errorf("displayAddr = %q", got)
	}
}

func TestWatchModel(t *testing.T) {
	p := newProviders(t)
	c, _ := newTestCLI()
	c.configPath = writeConfig(t, p, "")
	cfg, err := c.loadBaseConfig()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	a, err := c.openApp(ctx, cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	m := newWatchModel(ctx, a, c.Now, time.Minute, false)
	if !strings.Contains(m.View(), "Loading...") {
		t.Errorf("initial view:\n%s", m.View())
	}

	msg := m.load(false)()
	next, _ := m.Update(msg)
	m = next.(watchModel)
	view := m.View()
	for _, want := range []string{"Published octo-kit@2.1.0", "fetched", "r refresh"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("r returned no command")
	}
	if st := cmd().(loadedMsg).status; len(st.GitHub.Items) != 2 {
		t.Errorf("refresh returned %d github items", len(st.GitHub.Items))
	}
	if got := p.github.Load(); got != 2 {
		t.Errorf("github requests = %d, want 2", got)
	}
}

func TestFeedRows(t *testing.T) {
	rows := []feedRow{
		{provider: "github", err: "boom"},
		{provider: "npm", loading: true},
		{provider: "npm", fromCache: true},
		{provider: "npm"},
	}
	want := []string{"error: boom", "revalidating", iconCached, iconFresh}
	for i, r := range rows {
		if got := r.state(); got != want[i] {
			t.Errorf("row %d state = %q, want %q", i, got, want[i])
		}
	}
	var buf bytes.Buffer
	renderStatusTable(&buf, []feedRow{{provider: "github", identity: "octocat", items: 3, fetchedAt: testNow.Add(-time.Hour)}}, testNow)
	if !strings.Contains(buf.String(), "1h ago") {
		t.Errorf("table:\n%s", buf.String())
	}
}
