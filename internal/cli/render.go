package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/activitygraph/pkg/pipeline"
)

// defaultOutput is the base path used when --output is not given.
const defaultOutput = "activity"

// extensions maps each output format to its file extension.
var extensions = map[string]string{
	pipeline.FormatSVG:      ".svg",
	pipeline.FormatDOT:      ".dot",
	pipeline.FormatGraphviz: ".graphviz.svg",
	pipeline.FormatJSON:     ".json",
	pipeline.FormatText:     ".txt",
	pipeline.FormatTerminal: ".ansi",
}

// byExtensionLength lists the formats longest extension first so
// ".graphviz.svg" is stripped before ".svg".
var byExtensionLength = []string{
	pipeline.FormatGraphviz,
	pipeline.FormatSVG,
	pipeline.FormatJSON,
	pipeline.FormatTerminal,
	pipeline.FormatDOT,
	pipeline.FormatText,
}

// renderOpts holds the flags of the render command.
type renderOpts struct {
	source  sourceFlags
	output  string
	formats []string
	theme   string
	title   string
	width   int
}

// renderCommand writes the graph to files.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		opts       renderOpts
		formatsStr string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the activity graph to SVG, DOT, JSON or text files",
		Long: `Render the activity graph to one or more files.

With a single format, --output names the file (use "-" for stdout). With
several formats, --output is a base path and each file gets the extension
of its format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			cfg, err := c.loadConfig(cmd, &opts.source)
			if err != nil {
				return err
			}
			a, err := c.openApp(cmd.Context(), cfg, nil, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			if cmd.Flags().Changed("theme") {
				a.opts.Theme = opts.theme
			}
			return c.runRender(cmd.Context(), a, &opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (several formats)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, graphviz, json, txt, term (comma-separated)")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "SVG theme: dark, light")
	cmd.Flags().StringVar(&opts.title, "title", "", "SVG title")
	cmd.Flags().IntVar(&opts.width, "text-width", 0, "width reserved for SVG captions in pixels")

	return cmd
}

// parseFormats parses the --format flag. An empty value selects svg.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// basePath strips a known format extension from output so several
// formats can share it. An empty output selects [defaultOutput].
func basePath(output string) string {
	if output == "" {
		return defaultOutput
	}
	for _, f := range byExtensionLength {
		if ext := extensions[f]; strings.HasSuffix(output, ext) {
			return strings.TrimSuffix(output, ext)
		}
	}
	return output
}

func (c *CLI) runRender(ctx context.Context, a *app, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	st := a.start(ctx, opts.source.refresh)
	warnFeedErrors(logger, st)

	po := a.opts
	po.Formats = opts.formats
	po.Title = opts.title
	po.TextWidth = opts.width

	res, err := a.runner.Execute(ctx, pipeline.SnapshotFromStatus(st, c.Now()), po)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d events", res.Stats.EventCount))

	if len(opts.formats) == 1 && opts.output == "-" {
		_, err := c.Stdout.Write(res.Artifacts[opts.formats[0]])
		return err
	}

	paths := make([]string, 0, len(opts.formats))
	for _, f := range opts.formats {
		path := basePath(opts.output) + extensions[f]
		if len(opts.formats) == 1 && opts.output != "" {
			path = opts.output
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}
		if err := os.WriteFile(path, res.Artifacts[f], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	printSuccess(c.Stderr, "Rendered activity graph")
	for _, p := range paths {
		printFile(c.Stderr, p)
	}
	printStats(c.Stderr, res.Stats.EventCount, res.Stats.LaneCount, res.CacheInfo.LayoutHit && res.CacheInfo.RenderHit)
	return nil
}
