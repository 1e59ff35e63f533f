// Package ingest loads decoded reference files into the fact store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/pkg/logger"
	"github.com/okian/focusengine/pkg/metrics"
)

// Writer is the part of the fact store the loader writes to.
type Writer interface {
	UpsertPlayerSeasons(ctx context.Context, rows []model.PlayerSeasonSkill) (int, error)
	UpsertApproachSkills(ctx context.Context, rows []model.ApproachSkillBucket) (int, error)
}

// Counts tallies rows written and files failed for one table.
type Counts struct {
	Upserted int `json:"upserted"`
	Errors   int `json:"errors"`
}

// Result summarizes one ingestion run.
type Result struct {
	Success        bool     `json:"success"`
	SourceVersion  string   `json:"sourceVersion"`
	FilesProcessed []string `json:"filesProcessed"`
	PlayerSeasons  Counts   `json:"playerSeasons"`
	ApproachSkills Counts   `json:"approachSkills"`
	Errors         []string `json:"errors"`
	RowsSkipped    int      `json:"rowsSkipped"`
	// Skipped is set when the archive was already ingested and the run was short-circuited.
	Skipped bool `json:"skipped"`
}

// Loader upserts decoded files into the fact store.
type Loader struct {
	store    Writer
	log      logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewLoader creates a loader writing to store.
func NewLoader(store Writer, opts ...Option) *Loader {
	l := &Loader{
		store:    store,
		log:      logger.NamedOrNop("ingest"),
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type seasonRow struct {
	PlayerName string `validate:"required,max=191"`
	Season     int    `validate:"gte=1900,lte=2100"`
}

type approachRow struct {
	PlayerName string `validate:"required,max=191"`
	Stat       string `validate:"oneof=sg_per_shot proximity_per_shot gir_rate good_shot_rate poor_shot_avoid_rate"`
}

// Ingest processes files in order. A file that fails is reported in the
// result and does not affect files before or after it.
func (l *Loader) Ingest(ctx context.Context, files []File, sourceVersion string) Result {
	res := Result{
		SourceVersion:  sourceVersion,
		FilesProcessed: []string{},
		Errors:         []string{},
	}
	ingestedAt := l.now().UTC()

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("ingestion interrupted: %v", err))
			break
		}

		info, err := classify(f.Name)
		if err != nil {
			l.fileFailed(ctx, &res, f.Name, "unknown", err)
			continue
		}

		switch info.kind {
		case KindPlayerSeason:
			n, skipped, err := l.loadSeasons(ctx, f, info.season, sourceVersion, ingestedAt)
			res.RowsSkipped += skipped
			if err != nil {
				res.PlayerSeasons.Errors++
				l.fileFailed(ctx, &res, f.Name, string(info.kind), err)
				continue
			}
			res.PlayerSeasons.Upserted += n
			metrics.RecordRowsUpserted(model.PlayerSeasonSkill{}.TableName(), n)
			l.log.Info(ctx, "player season file ingested",
				logger.String("file", f.Name), logger.Int("season", info.season), logger.Int("rows", n))

		case KindApproachSkill:
			n, skipped, err := l.loadApproach(ctx, f, info.stat, sourceVersion, ingestedAt)
			res.RowsSkipped += skipped
			if err != nil {
				res.ApproachSkills.Errors++
				l.fileFailed(ctx, &res, f.Name, string(info.kind), err)
				continue
			}
			res.ApproachSkills.Upserted += n
			metrics.RecordRowsUpserted(model.ApproachSkillBucket{}.TableName(), n)
			l.log.Info(ctx, "approach skill file ingested",
				logger.String("file", f.Name), logger.String("stat", info.stat), logger.Int("rows", n))
		}

		res.FilesProcessed = append(res.FilesProcessed, f.Name)
		metrics.RecordIngestFile(string(info.kind), "ok")
	}

	metrics.RecordRowsSkipped(res.RowsSkipped)
	res.Success = len(res.Errors) == 0
	return res
}

func (l *Loader) fileFailed(ctx context.Context, res *Result, name, kind string, err error) {
	fe := &fileError{name: name, err: err}
	res.Errors = append(res.Errors, fe.Error())
	metrics.RecordIngestFile(kind, "error")
	metrics.RecordErrorByComponent("ingest", "file_error")
	l.log.Warn(ctx, "file rejected", logger.String("file", name), logger.Error(fe))
}

func (l *Loader) loadSeasons(ctx context.Context, f File, season int, version string, at time.Time) (int, int, error) {
	if len(f.Header) == 0 || len(f.Rows) == 0 {
		return 0, 0, ErrEmptyFile
	}
	cols := newColumns(f.Header)
	if missing := cols.missing("player_name", "sg_ott", "sg_app", "sg_arg", "sg_putt"); len(missing) > 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	rows := make([]model.PlayerSeasonSkill, 0, len(f.Rows))
	index := make(map[string]int, len(f.Rows))
	skipped := 0
	for i, raw := range f.Rows {
		name := cols.cell(raw, "player_name")
		if err := l.validate.Struct(seasonRow{PlayerName: name, Season: season}); err != nil {
			skipped++
			l.log.Debug(ctx, "row skipped", logger.String("file", f.Name), logger.Int("row", i+1), logger.Error(err))
			continue
		}

		row := model.PlayerSeasonSkill{
			PlayerName:    name,
			Season:        season,
			SgOtt:         l.floatCell(ctx, f.Name, cols.cell(raw, "sg_ott")),
			SgApp:         l.floatCell(ctx, f.Name, cols.cell(raw, "sg_app")),
			SgArg:         l.floatCell(ctx, f.Name, cols.cell(raw, "sg_arg")),
			SgPutt:        l.floatCell(ctx, f.Name, cols.cell(raw, "sg_putt")),
			SgTotal:       l.floatCell(ctx, f.Name, cols.cell(raw, "sg_total")),
			Rounds:        l.intCell(ctx, f.Name, cols.cell(raw, "rounds")),
			Events:        l.intCell(ctx, f.Name, cols.cell(raw, "events")),
			Wins:          l.intCell(ctx, f.Name, cols.cell(raw, "wins")),
			SourceVersion: version,
			IngestedAt:    at,
		}
		if row.SgTotal == nil && row.SgOtt != nil && row.SgApp != nil && row.SgArg != nil && row.SgPutt != nil {
			total := *row.SgOtt + *row.SgApp + *row.SgArg + *row.SgPutt
			row.SgTotal = &total
		}

		// The last occurrence of a player wins within a file.
		if j, ok := index[name]; ok {
			rows[j] = row
			continue
		}
		index[name] = len(rows)
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return 0, skipped, nil
	}
	n, err := l.store.UpsertPlayerSeasons(ctx, rows)
	return n, skipped, err
}

func (l *Loader) loadApproach(ctx context.Context, f File, stat, version string, at time.Time) (int, int, error) {
	if len(f.Header) == 0 || len(f.Rows) == 0 {
		return 0, 0, ErrEmptyFile
	}
	cols := newColumns(f.Header)
	if missing := cols.missing("player_name"); len(missing) > 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	present := 0
	for _, b := range ApproachBuckets {
		if cols.has(b.Column+"_"+stat) || cols.has(b.Column+"_shot_count") {
			present++
		}
	}
	if present == 0 {
		return 0, 0, fmt.Errorf("%w: no %s bucket columns", ErrMissingColumns, stat)
	}

	var rows []model.ApproachSkillBucket
	index := make(map[model.BucketKey]int)
	skipped := 0
	for i, raw := range f.Rows {
		name := cols.cell(raw, "player_name")
		if err := l.validate.Struct(approachRow{PlayerName: name, Stat: stat}); err != nil {
			skipped++
			l.log.Debug(ctx, "row skipped", logger.String("file", f.Name), logger.Int("row", i+1), logger.Error(err))
			continue
		}
		for _, b := range ApproachBuckets {
			value := l.floatCell(ctx, f.Name, cols.cell(raw, b.Column+"_"+stat))
			count := l.intCell(ctx, f.Name, cols.cell(raw, b.Column+"_shot_count"))
			if value == nil && count == nil {
				continue
			}
			row := model.ApproachSkillBucket{
				PlayerName:    name,
				Bucket:        b.Label,
				Lie:           b.Lie,
				Stat:          stat,
				Value:         value,
				ShotCount:     count,
				SourceVersion: version,
				IngestedAt:    at,
			}
			if j, ok := index[row.Key()]; ok {
				rows[j] = row
				continue
			}
			index[row.Key()] = len(rows)
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return 0, skipped, nil
	}
	n, err := l.store.UpsertApproachSkills(ctx, rows)
	return n, skipped, err
}

// floatCell parses a cell, logging and nulling values that fail validation.
func (l *Loader) floatCell(ctx context.Context, file, s string) *float64 {
	v, err := parseFloat(s)
	if errors.Is(err, ErrValidation) {
		l.log.Debug(ctx, "value nulled", logger.String("file", file), logger.Error(err))
	}
	return v
}

func (l *Loader) intCell(ctx context.Context, file, s string) *int {
	v, err := parseInt(s)
	if errors.Is(err, ErrValidation) {
		l.log.Debug(ctx, "value nulled", logger.String("file", file), logger.Error(err))
	}
	return v
}
