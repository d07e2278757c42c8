package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/activitygraph/pkg/pipeline"
	"github.com/matzehuels/activitygraph/pkg/render/sink"
)

// showOpts holds the flags of the show command.
type showOpts struct {
	source     sourceFlags
	transcript bool
	noColor    bool
}

// showCommand prints the lane graph to the terminal.
func (c *CLI) showCommand() *cobra.Command {
	var opts showOpts

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the activity graph to the terminal",
		Long: `Print the merged GitHub and npm activity as a lane graph.

Cached data is shown immediately; if it is older than the feed TTL it is
revalidated after printing so the next run is fresh. Use --refresh to fetch
before printing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, &opts.source)
			if err != nil {
				return err
			}
			a, err := c.openApp(cmd.Context(), cfg, nil, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			return c.runShow(cmd.Context(), a, &opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().BoolVar(&opts.transcript, "transcript", false, "print one plain line per event instead of the graph")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colors")

	return cmd
}

func (c *CLI) runShow(ctx context.Context, a *app, opts *showOpts) error {
	logger := loggerFromContext(ctx)

	spin := newSpinnerWithContext(ctx, c.Stderr, "Fetching activity...")
	spin.Start()
	st := a.start(ctx, opts.source.refresh)
	spin.Stop()
	warnFeedErrors(logger, st)

	now := c.Now()
	events, err := a.runner.Aggregate(pipeline.SnapshotFromStatus(st, now), a.opts)
	if err != nil {
		return err
	}
	g, err := a.runner.Layout(ctx, events, a.opts)
	if err != nil {
		return err
	}

	if opts.transcript {
		_, err = c.Stdout.Write(sink.RenderTranscript(g))
	} else {
		err = sink.RenderText(c.Stdout, g, sink.TextOptions{Now: now, NoColor: opts.noColor})
	}
	if err != nil {
		return err
	}

	if st.Loading() {
		logger.Debug("revalidating stale data")
		a.dash.Wait()
	}
	return nil
}
