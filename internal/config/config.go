// Package config loads plcingest's TOML configuration file: a flat
// struct of defaults overlaid by whatever keys the file sets.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds the ingest-run tunables. cmd/plcingest applies its CLI
// flags (workers, processes, float, infer-on-failure, parser
// descriptors, metrics address, maxprocs) over the loaded values.
type Config struct {
	Maxprocs               int     `toml:"maxprocs"`
	Workers                int     `toml:"workers"`
	UseProcesses           bool    `toml:"use_processes"`
	FloatEnabled           bool    `toml:"float_enabled"`
	InferOnFailure         bool    `toml:"infer_on_failure"`
	DisableChronoDetection bool    `toml:"disable_chrono_detection"`
	ChunkDurationSeconds   float64 `toml:"chunk_duration_seconds"`
	MaxResidentChunks      int     `toml:"max_resident_chunks"`
	ParserDescriptorFile   string  `toml:"parser_descriptor_file"`
	MetricsAddr            string  `toml:"metrics_addr"`
	JournalDir             string  `toml:"journal_dir"`
}

// Default returns the stock configuration used when no TOML file is
// supplied.
func Default() *Config {
	return &Config{
		Maxprocs:             1,
		Workers:              0,
		ChunkDurationSeconds: 300.0,
		MaxResidentChunks:    5,
		JournalDir:           ".plcingest",
	}
}

// Load reads path as TOML, overlaying Default(). An empty path simply
// returns the defaults unchanged, treated the way an omitted --config
// flag would be.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
