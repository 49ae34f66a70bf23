/*

plcingest is a one-shot ingestion CLI: given one or more PLC/MCS log
files, detect each one's format, parse it concurrently, merge the
results, and report a summary. It runs once and exits; it is not an
interactive shell or a long-lived daemon.

*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/aggregate"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/batch"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/config"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/logging"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/metrics"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/parser"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/registry"
	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

const version = "0.1.0"

func main() {
	// A re-exec'd process worker never reaches the flag parser below: it
	// speaks a private stdin/stdout protocol with its parent.
	if batch.IsWorkerInvocation(os.Args) {
		os.Exit(batch.RunWorkerMain(os.Stdin, os.Stdout))
	}

	var (
		configPath     = pflag.StringP("config", "c", "", "Path to a TOML config file")
		workers        = pflag.IntP("workers", "w", 0, "Worker count (0 = auto)")
		useProcesses   = pflag.Bool("processes", false, "Use process-pool workers instead of threads")
		floatEnabled   = pflag.Bool("float", false, "Enable Float as a recognized signal type")
		inferOnFailure = pflag.Bool("infer-on-failure", false, "Fall back to raw text instead of failing a line on type mismatch")
		descriptorFile = pflag.String("parser-descriptors", "", "YAML file enabling a subset of built-in parsers")
		parserName     = pflag.String("parser", "", "Force a specific parser by name instead of auto-detecting")
		metricsAddr    = pflag.String("metrics-addr", "", "If set, serve Prometheus metrics on this address (e.g. :9090)")
		quiet          = pflag.BoolP("quiet", "q", false, "Suppress the progress bar")
		maxprocs       = pflag.Int("maxprocs", 0, "Override GOMAXPROCS (0 = leave at config/runtime default)")
		showVersion    = pflag.Bool("version", false, "Print version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.For("plcingest").LogError(err)
		os.Exit(1)
	}
	if *workers != 0 {
		cfg.Workers = *workers
	}
	cfg.UseProcesses = cfg.UseProcesses || *useProcesses
	cfg.FloatEnabled = cfg.FloatEnabled || *floatEnabled
	cfg.InferOnFailure = cfg.InferOnFailure || *inferOnFailure
	if *descriptorFile != "" {
		cfg.ParserDescriptorFile = *descriptorFile
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *maxprocs != 0 {
		cfg.Maxprocs = *maxprocs
	}
	if cfg.Maxprocs > 0 {
		runtime.GOMAXPROCS(cfg.Maxprocs)
	}

	paths := pflag.Args()
	if len(paths) == 0 {
		color.Red("plcingest: no input files given")
		pflag.Usage()
		os.Exit(2)
	}

	if err := metrics.Register(nil); err != nil {
		logging.For("plcingest").LogError(err)
	}
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	reg := buildRegistry(cfg)

	runID := uuid.New().String()
	log := logging.Entry("plcingest").WithField("run_id", runID)
	log.Infof("starting ingest of %d file(s)", len(paths))

	var bar *progressbar.ProgressBar
	if !*quiet {
		bar = progressbar.Default(int64(len(paths)), "parsing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := parser.Options{
		Workers:                cfg.Workers,
		UseProcesses:           cfg.UseProcesses,
		DisableChronoDetection: cfg.DisableChronoDetection,
		InferOnFailure:         cfg.InferOnFailure,
		FloatEnabled:           cfg.FloatEnabled,
	}

	start := time.Now()
	total := len(paths)
	results := make([]aggregate.FileResult, 0, total)
	for i, path := range paths {
		fileIdx := i
		opts.OnProgress = func(_, _ int, filePath string) {
			log.WithField("file", filePath).Debugf("progress %d/%d", fileIdx+1, total)
		}
		res := reg.ParseNamed(ctx, path, *parserName, opts)
		results = append(results, aggregate.FileResult{FilePath: path, Result: res})
		metrics.FilesParsedTotal.Inc()
		if len(res.Errors) > 0 {
			metrics.ParseErrorsTotal.WithLabelValues(detectedParserName(reg, path)).Add(float64(len(res.Errors)))
		}
		if bar != nil {
			_ = bar.Add(1)
		}
		log.WithField("file", path).Debugf("finished file %d/%d", fileIdx+1, total)
	}
	elapsed := time.Since(start)

	merged := aggregate.MergeParseResults(results)
	sessionSeconds := elapsed.Seconds()
	merged.ProcessingTimeSeconds = &sessionSeconds
	printSummary(merged, elapsed)
}

func detectedParserName(reg *registry.Registry, path string) string {
	if p, err := reg.Detect(path); err == nil && p != nil {
		return p.Name()
	}
	return "unknown"
}

func buildRegistry(cfg *config.Config) *registry.Registry {
	if cfg.ParserDescriptorFile != "" {
		descs, err := registry.LoadDescriptors(cfg.ParserDescriptorFile)
		if err == nil {
			return registry.BuildFromDescriptors(descs)
		}
		logging.For("plcingest").LogError(err)
	}
	return registry.BuildDefault(cfg.FloatEnabled, cfg.InferOnFailure)
}

func printSummary(result *signal.ParseResult, elapsed time.Duration) {
	if result.Data == nil {
		color.Yellow("no entries parsed")
	} else {
		color.Green("parsed %d entries across %d signal(s), %d device(s) in %s",
			len(result.Data.Entries), len(result.Data.Signals), len(result.Data.Devices), elapsed)
	}
	if len(result.Errors) > 0 {
		color.Red("%d parse error(s)", len(result.Errors))
		for i, e := range result.Errors {
			if i >= 10 {
				color.Red("  ... and %d more", len(result.Errors)-10)
				break
			}
			color.Red("  %s:%d: %s", e.FilePath, e.Line, e.Reason)
		}
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log := logging.For("metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.LogError(err)
	}
}
