package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/activitygraph/internal/server"
	"github.com/matzehuels/activitygraph/pkg/observability/prom"
)

// serveCommand runs the HTTP API until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		source    sourceFlags
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the activity graph over HTTP",
		Long: `Serve the merged activity and its renderings over HTTP.

Feeds are revalidated every feed.poll interval. Prometheus metrics are
exposed at /metrics unless --no-metrics is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, &source)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics := prom.New(reg)

			a, err := c.openApp(cmd.Context(), cfg, metrics.Hooks(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			srvCfg := server.Config{
				Dashboard:      a.dash,
				Runner:         a.runner,
				Options:        a.opts,
				Logger:         c.Logger,
				PollInterval:   cfg.Feed.Poll,
				RequestTimeout: cfg.Server.RequestTimeout,
				Now:            c.Now,
			}
			if !noMetrics {
				srvCfg.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
			}

			printNextStep(c.Stderr, "Graph", "http://"+displayAddr(cfg.Server.Addr)+"/api/graph.svg")
			return server.New(srvCfg).Run(cmd.Context(), cfg.Server.Addr)
		},
	}

	source.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")

	return cmd
}

// displayAddr turns a listen address into something a browser can open.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
