// Package metrics exposes the optional Prometheus instrumentation
// surface: parse-error counts, chunk eviction counts, and resident
// chunk gauges. This package never opens a listening socket itself;
// cmd/plcingest decides whether to serve /metrics at all.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ParseErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plc_parse_errors_total",
		Help: "Total number of per-line parse errors encountered, by parser.",
	}, []string{"parser"})

	ChunksEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plc_chunks_evicted_total",
		Help: "Total number of chunks evicted from the resident LRU cache.",
	})

	ChunksResident = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plc_chunks_resident",
		Help: "Number of TimeChunks currently resident in memory.",
	})

	FilesParsedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plc_files_parsed_total",
		Help: "Total number of input files parsed to completion.",
	})
)

// Register adds every instrument to reg. Call once at startup; a nil
// reg registers against prometheus.DefaultRegisterer.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{ParseErrorsTotal, ChunksEvictedTotal, ChunksResident, FilesParsedTotal} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
