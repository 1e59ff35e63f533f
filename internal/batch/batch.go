// Package batch runs ingestion and recalibration outside the HTTP server.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/okian/focusengine/internal/domain/ingest"
	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/internal/domain/types"
	"github.com/okian/focusengine/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const directoryPermission = 0o750

// Engine is the part of the service a batch run drives.
type Engine interface {
	Ingest(ctx context.Context, data []byte, force bool) (ingest.Result, error)
	ComputeWeights(ctx context.Context, windowSize, minPlayers int) (model.ComponentWeightSet, error)
	PlayerFocus(ctx context.Context, playerID string, includeApproachDetail bool) (types.PlayerFocus, error)
}

// Report is the JSON document a run produces.
type Report struct {
	Ingest     *ingest.Result            `json:"ingest,omitempty"`
	Weights    *model.ComponentWeightSet `json:"weights,omitempty"`
	Focus      []types.PlayerFocus       `json:"focus,omitempty"`
	Errors     map[string]string         `json:"errors,omitempty"`
	StartedAt  time.Time                 `json:"startedAt"`
	DurationMS int64                     `json:"durationMs"`
	Success    bool                      `json:"success"`
}

func (r *Report) fail(step string, err error) {
	if r.Errors == nil {
		r.Errors = map[string]string{}
	}
	r.Errors[step] = err.Error()
}

// Run executes the steps cfg asks for in order: ingest, recalibrate, focus.
// Step failures are collected in the report; only a missing archive file or
// a cancelled context abort the run.
func Run(ctx context.Context, eng Engine, cfg *Config, log logger.Logger) (rep Report, err error) {
	if log == nil {
		log = logger.NamedOrNop("batch")
	}
	rep.StartedAt = time.Now().UTC()
	defer func() { rep.DurationMS = time.Since(rep.StartedAt).Milliseconds() }()

	if cfg.Archive != "" {
		data, err := os.ReadFile(cfg.Archive)
		if err != nil {
			return rep, fmt.Errorf("read archive: %w", err)
		}
		log.Info(ctx, "ingesting archive", logger.String("archive", cfg.Archive), logger.Int("bytes", len(data)))
		res, err := eng.Ingest(ctx, data, cfg.Force)
		switch {
		case err != nil:
			rep.fail("ingest", err)
		case !res.Success:
			rep.Ingest = &res
			rep.fail("ingest", errors.New("ingestion finished with errors"))
		default:
			rep.Ingest = &res
		}
	}

	if cfg.Recalibrate {
		set, err := eng.ComputeWeights(ctx, cfg.WindowSize, cfg.MinPlayers)
		if err != nil {
			rep.fail("weights", err)
		} else {
			rep.Weights = &set
			log.Info(ctx, "weights activated",
				logger.String("id", set.ID),
				logger.Int("windowStart", set.WindowStartSeason),
				logger.Int("windowEnd", set.WindowEndSeason),
				logger.Int("population", set.PopulationSize),
			)
		}
	}

	if len(cfg.Players) > 0 {
		focus, errs := computeFocus(ctx, eng, cfg.Players, cfg.Workers)
		rep.Focus = focus
		for id, err := range errs {
			rep.fail("focus:"+id, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	rep.Success = len(rep.Errors) == 0
	return rep, nil
}

// computeFocus fans out focus computations over a bounded pool. Results keep
// the order of ids.
func computeFocus(ctx context.Context, eng Engine, ids []string, workers int) ([]types.PlayerFocus, map[string]error) {
	results := make([]*types.PlayerFocus, len(ids))
	errs := map[string]error{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			f, err := eng.PlayerFocus(gctx, id, true)
			if err != nil {
				mu.Lock()
				errs[id] = err
				mu.Unlock()
				return nil
			}
			results[i] = &f
			return nil
		})
	}
	_ = g.Wait()

	out := make([]types.PlayerFocus, 0, len(ids))
	for _, f := range results {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out, errs
}

// WriteReport encodes rep as indented JSON to path, or to w when path is empty.
func WriteReport(w io.Writer, path string, rep Report) error {
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, directoryPermission); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// FailedSteps lists the steps that reported an error, sorted.
func (r Report) FailedSteps() []string {
	steps := make([]string, 0, len(r.Errors))
	for k := range r.Errors {
		steps = append(steps, k)
	}
	sort.Strings(steps)
	return steps
}
