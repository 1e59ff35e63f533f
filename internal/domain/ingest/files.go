package ingest

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/focusengine/internal/domain/model"
)

// File is one decoded CSV table. Header holds the column names as they
// appeared in the source; Rows holds the data rows.
type File struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Kind classifies a file by its name.
type Kind string

// File kinds.
const (
	KindPlayerSeason  Kind = "player_season"
	KindApproachSkill Kind = "approach_skill"
)

// Approach statistics accepted in approach_skill_<stat>.csv names.
var ApproachStats = []string{
	"sg_per_shot",
	"proximity_per_shot",
	"gir_rate",
	"good_shot_rate",
	"poor_shot_avoid_rate",
}

// ApproachBucket is a fixed distance/lie bucket and the column prefix that
// carries it in approach files.
type ApproachBucket struct {
	Column string
	Label  string
	Lie    string
}

// ApproachBuckets lists the six buckets in column order.
var ApproachBuckets = []ApproachBucket{
	{Column: "50_100_fw", Label: "50_100", Lie: model.LieFairway},
	{Column: "100_150_fw", Label: "100_150", Lie: model.LieFairway},
	{Column: "150_200_fw", Label: "150_200", Lie: model.LieFairway},
	{Column: "over_200_fw", Label: "over_200", Lie: model.LieFairway},
	{Column: "under_150_rgh", Label: "under_150", Lie: model.LieRough},
	{Column: "over_150_rgh", Label: "over_150", Lie: model.LieRough},
}

var (
	seasonPattern   = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)[0-9]{2})(?:[^0-9]|$)`)
	approachPattern = regexp.MustCompile(`approach_skill_([a-z_]+)$`)
)

// fileInfo is what a file name tells us about its contents.
type fileInfo struct {
	kind   Kind
	season int
	stat   string
}

func classify(name string) (fileInfo, error) {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	stem := strings.TrimSuffix(base, ".csv")

	switch {
	case strings.Contains(stem, "player_season"):
		m := seasonPattern.FindStringSubmatch(stem)
		if m == nil {
			return fileInfo{}, fmt.Errorf("%w: no season in %q", ErrFileName, base)
		}
		season, err := strconv.Atoi(m[1])
		if err != nil {
			return fileInfo{}, fmt.Errorf("%w: bad season in %q", ErrFileName, base)
		}
		return fileInfo{kind: KindPlayerSeason, season: season}, nil

	case strings.Contains(stem, "approach_skill"):
		m := approachPattern.FindStringSubmatch(stem)
		if m == nil {
			return fileInfo{}, fmt.Errorf("%w: no statistic in %q", ErrFileName, base)
		}
		for _, s := range ApproachStats {
			if m[1] == s {
				return fileInfo{kind: KindApproachSkill, stat: s}, nil
			}
		}
		return fileInfo{}, fmt.Errorf("%w: unknown statistic %q", ErrFileName, m[1])
	}
	return fileInfo{}, fmt.Errorf("%w: %q", ErrUnknownFile, base)
}

// columns maps lower-cased header names to their index.
type columns map[string]int

func newColumns(header []string) columns {
	c := make(columns, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := c[key]; !dup {
			c[key] = i
		}
	}
	return c
}

func (c columns) missing(required ...string) []string {
	var out []string
	for _, r := range required {
		if _, ok := c[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}

func (c columns) has(name string) bool {
	_, ok := c[name]
	return ok
}

// cell returns the trimmed value of column name in row, or "" when absent.
func (c columns) cell(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
