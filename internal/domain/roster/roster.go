// Package roster aggregates focus recommendations across a coach's players.
package roster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/internal/domain/scoring"
	"github.com/okian/focusengine/internal/domain/types"
	"github.com/okian/focusengine/pkg/logger"
	"github.com/okian/focusengine/pkg/metrics"
)

// Sources is what the aggregator reads.
type Sources interface {
	PlayersByCoach(ctx context.Context, coachID string) ([]model.Player, error)
	RecentTestResults(ctx context.Context, playerID string, limit int) ([]model.TestResult, error)
	TestMappings(ctx context.Context) ([]model.TestComponentMapping, error)
	CountEvents(ctx context.Context, playerID string, since time.Time, eventTypes []string, status string) (int, error)
}

// WeightSource yields the weights to score with.
type WeightSource interface {
	ActiveOrCompute(ctx context.Context) (model.ComponentWeightSet, error)
}

// trainingEventTypes count towards adherence.
var trainingEventTypes = []string{model.EventTypeTrainingSession, model.EventTypeStructuredSession}

// Aggregator builds the coach view.
type Aggregator struct {
	src         Sources
	weights     WeightSource
	scorer      *scoring.Scorer
	log         logger.Logger
	threshold   int
	window      time.Duration
	concurrency int
	now         func() time.Time
}

// NewAggregator creates an aggregator.
func NewAggregator(src Sources, weights WeightSource, scorer *scoring.Scorer, opts ...Option) *Aggregator {
	a := &Aggregator{
		src:         src,
		weights:     weights,
		scorer:      scorer,
		log:         logger.NamedOrNop("roster"),
		threshold:   DefaultAdherenceThreshold,
		window:      DefaultAdherenceWindow,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Adherence buckets a count of attended training events into a 0-100 score.
func Adherence(events int) int {
	switch {
	case events >= 6:
		return 100
	case events >= 4:
		return 75
	case events >= 2:
		return 50
	case events <= 0:
		return 0
	}
	return events * 20
}

type playerOutcome struct {
	player    model.Player
	focus     scoring.Output
	adherence int
}

// TeamFocus scores every player of coachID and summarizes the roster. An
// empty roster is not an error.
func (a *Aggregator) TeamFocus(ctx context.Context, coachID string) (types.TeamFocus, error) {
	start := time.Now()
	now := a.now().UTC()
	team := types.TeamFocus{
		CoachID:        coachID,
		Heatmap:        types.EmptyHeatmap(),
		TopReasonCodes: []string{},
		AtRiskPlayers:  []types.AtRiskPlayer{},
		ComputedAt:     now,
	}

	players, err := a.src.PlayersByCoach(ctx, coachID)
	if err != nil {
		return types.TeamFocus{}, fmt.Errorf("list players: %w", err)
	}
	if len(players) == 0 {
		return team, nil
	}

	set, err := a.weights.ActiveOrCompute(ctx)
	if err != nil {
		return types.TeamFocus{}, fmt.Errorf("weights: %w", err)
	}
	mappings, err := a.src.TestMappings(ctx)
	if err != nil {
		return types.TeamFocus{}, fmt.Errorf("test mappings: %w", err)
	}
	w := set.Values()
	since := now.Add(-a.window)

	outcomes := make([]playerOutcome, len(players))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, p := range players {
		g.Go(func() error {
			results, err := a.src.RecentTestResults(gctx, p.ID, a.scorer.MaxTestResults())
			if err != nil {
				return fmt.Errorf("test results for %s: %w", p.ID, err)
			}
			events, err := a.src.CountEvents(gctx, p.ID, since, trainingEventTypes, model.ParticipantConfirmed)
			if err != nil {
				return fmt.Errorf("calendar for %s: %w", p.ID, err)
			}
			outcomes[i] = playerOutcome{
				player:    p,
				focus:     a.scorer.Score(scoring.Input{Results: results, Mappings: mappings, Weights: w}),
				adherence: Adherence(events),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.RecordErrorByComponent("roster", "source_error")
		return types.TeamFocus{}, err
	}

	var codes []string
	for _, o := range outcomes {
		team.Heatmap[o.focus.FocusComponent]++
		codes = append(codes, o.focus.ReasonCodes...)
		if o.adherence < a.threshold {
			team.AtRiskPlayers = append(team.AtRiskPlayers, types.AtRiskPlayer{
				PlayerID:       o.player.ID,
				PlayerName:     o.player.FullName(),
				FocusComponent: o.focus.FocusComponent,
				Reason:         scoring.ReasonLowTrainingAdherence,
				AdherenceScore: o.adherence,
			})
		}
	}
	team.PlayerCount = len(players)
	team.TopReasonCodes = TopReasonCodes(codes, topReasonCodes)

	metrics.RecordTeamFocus(float64(time.Since(start).Microseconds())/1000, len(team.AtRiskPlayers))
	a.log.Info(ctx, "team focus computed",
		logger.String("coach_id", coachID),
		logger.Int("players", team.PlayerCount),
		logger.Int("at_risk", len(team.AtRiskPlayers)),
	)
	return team, nil
}

// TopReasonCodes returns up to n codes by descending frequency. Codes with
// equal counts keep the order they first appeared in.
func TopReasonCodes(codes []string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, c := range codes {
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	if order == nil {
		return []string{}
	}
	return order
}
