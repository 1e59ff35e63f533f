package batch

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"
	"strings"
)

// ErrNoArchive is returned when neither an archive nor recalibration was requested.
var ErrNoArchive = errors.New("nothing to do: pass -archive and/or -recalibrate")

// Config holds one batch invocation.
type Config struct {
	Archive     string   // Path of the zip archive to ingest
	Force       bool     // Re-ingest an archive whose source version was already seen
	Recalibrate bool     // Compute a new weight set after ingestion
	WindowSize  int      // Seasons per calibration window, 0 for the engine default
	MinPlayers  int      // Minimum calibration population, 0 for the engine default
	Players     []string // Players whose focus is computed after calibration
	Workers     int      // Concurrent focus computations
	Output      string   // Report destination, stdout when empty
}

// ParseFlags reads a Config from command-line arguments. Usage and flag
// errors are written to out.
func ParseFlags(args []string, out io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("focus-batch", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { ShowHelp(out) }

	var (
		cfg     Config
		players string
	)
	fs.StringVar(&cfg.Archive, "archive", "", "Zip archive of DataGolf CSV exports to ingest")
	fs.BoolVar(&cfg.Force, "force", false, "Re-ingest even if the archive was already processed")
	fs.BoolVar(&cfg.Recalibrate, "recalibrate", false, "Compute and activate a new weight set")
	fs.IntVar(&cfg.WindowSize, "window", 0, "Calibration window in seasons (0 uses the configured default)")
	fs.IntVar(&cfg.MinPlayers, "min-players", 0, "Minimum calibration population (0 uses the configured default)")
	fs.StringVar(&players, "players", "", "Comma-separated player IDs to compute focus for")
	fs.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "Concurrent focus computations")
	fs.StringVar(&cfg.Output, "output", "", "Write the JSON report to this file instead of stdout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	for _, p := range strings.Split(players, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.Players = append(cfg.Players, p)
		}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Archive == "" && !cfg.Recalibrate && len(cfg.Players) == 0 {
		return nil, ErrNoArchive
	}
	return &cfg, nil
}

// ShowHelp prints usage information.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Focus Engine Batch Tool
=======================

Ingests a DataGolf export archive into the configured store, optionally
recalibrates component weights and computes focus for selected players.
The run is reported as JSON. Store settings come from the same FOCUS_*
environment and config file as the server.

Usage:
  focus-batch [options]

Options:
  -archive string
        Zip archive of DataGolf CSV exports to ingest
  -force
        Re-ingest even if the archive was already processed
  -recalibrate
        Compute and activate a new weight set
  -window int
        Calibration window in seasons (default: configured window_size)
  -min-players int
        Minimum calibration population (default: configured min_players)
  -players string
        Comma-separated player IDs to compute focus for
  -workers int
        Concurrent focus computations (default CPU cores)
  -output string
        Write the JSON report to this file instead of stdout

Examples:
  focus-batch -archive datagolf_2024.zip -recalibrate
  focus-batch -recalibrate -window 5 -players p1,p2 -output report.json
`)
}
