// Command dragonctl is the CLI entry point: it builds Dragon scripts, runs
// the Dragon shell, and manages descriptor jobs.
package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chemkit/dragonctl/internal/application/descriptor"
	"github.com/chemkit/dragonctl/internal/dragon"
	"github.com/chemkit/dragonctl/internal/infrastructure/jobstore"
	"github.com/chemkit/dragonctl/internal/infrastructure/monitoring/logging"
	"github.com/chemkit/dragonctl/internal/infrastructure/monitoring/metrics"
	"github.com/chemkit/dragonctl/internal/infrastructure/storage/minio"
	"github.com/chemkit/dragonctl/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

// newJobService dials the job-store and archive backends.  Only the job
// subcommands pay this cost; script and dataset commands stay local.
func newJobService(cliCtx *cli.CLIContext) (*descriptor.Service, error) {
	cfg := cliCtx.Config
	log := cliCtx.Logger

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		serveMetrics(cfg.Metrics.Addr, log)
	}

	store, err := jobstore.New(context.Background(), cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	archive, err := minio.NewArchiveStore(cfg.MinIO, log)
	if err != nil {
		return nil, err
	}

	runner := dragon.NewRunner(cfg.Dragon.ShellPattern, log)
	return descriptor.NewService(runner, store, archive, m, cfg.Dragon.OutputDir, log), nil
}

// serveMetrics exposes the Prometheus endpoint in the background for the
// lifetime of the process.
func serveMetrics(addr string, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warn("metrics endpoint stopped", logging.Err(err))
		}
	}()
}

func main() {
	cli.Execute(cli.CommandDependencies{JobService: newJobService})
}
