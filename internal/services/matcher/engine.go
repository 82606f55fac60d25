// Package matcher scores and ranks lenders against a complete loan profile.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"loan-matchmaker/internal/metrics"
	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/utils"
)

// DefaultPredictTimeout bounds one ML scoring pass over the catalog.
const DefaultPredictTimeout = 2 * time.Second

// Engine ranks the lender catalog for a profile. The rule scorer always runs;
// when an enabled Predictor is configured it replaces the final score, and any
// predictor failure reverts the whole run to rule scores.
type Engine struct {
	lenders        []models.Lender
	predictor      Predictor
	predictTimeout time.Duration
	logger         *zap.Logger
	metrics        *metrics.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithPredictor sets the ML predictor.
func WithPredictor(p Predictor) Option {
	return func(e *Engine) {
		if p != nil {
			e.predictor = p
		}
	}
}

// WithPredictTimeout bounds the ML scoring pass.
func WithPredictTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.predictTimeout = d
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = utils.OrNop(l) }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// NewEngine creates an engine over a copy of the lender catalog.
func NewEngine(lenders []models.Lender, opts ...Option) *Engine {
	e := &Engine{
		lenders:        append([]models.Lender{}, lenders...),
		predictor:      DisabledPredictor{},
		predictTimeout: DefaultPredictTimeout,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Lenders returns a copy of the catalog.
func (e *Engine) Lenders() []models.Lender {
	return append([]models.Lender{}, e.lenders...)
}

// Lender looks up a catalog entry by id.
func (e *Engine) Lender(id int64) (models.Lender, error) {
	for _, l := range e.lenders {
		if l.ID == id {
			return l, nil
		}
	}
	return models.Lender{}, fmt.Errorf("lender %d: %w", id, models.ErrLenderNotFound)
}

// Result is the outcome of one matching run.
type Result struct {
	Matches        []models.LenderMatch
	Method         models.ScoringMethod
	TotalLenders   int
	Excluded       int
	Waived         int
	FallbackReason string
	ProcessingTime time.Duration
}

// candidate is a lender that passed the gates, with its rule scores.
type candidate struct {
	match   models.LenderMatch
	margins int
}

// Match scores every lender for the profile and returns the ranked list.
// Excluded lenders are not part of the list.
func (e *Engine) Match(ctx context.Context, profile models.Profile) *Result {
	start := time.Now()
	result := &Result{
		Method:       models.ScoringRuleBased,
		TotalLenders: len(e.lenders),
	}

	candidates := make([]candidate, 0, len(e.lenders))
	for i := range e.lenders {
		c, ok := scoreLender(profile, &e.lenders[i])
		if !ok {
			result.Excluded++
			continue
		}
		if c.match.WaivedGate != "" {
			result.Waived++
		}
		candidates = append(candidates, c)
	}

	matches := make([]models.LenderMatch, len(candidates))
	for i, c := range candidates {
		matches[i] = c.match
	}

	if e.predictor.Enabled() && len(candidates) > 0 {
		mlMatches, err := e.scoreWithPredictor(ctx, profile, candidates)
		if err != nil {
			result.FallbackReason = fallbackReason(err)
			e.metrics.MLFallback(result.FallbackReason)
			e.logger.Warn("ML scoring failed, using rule scores",
				zap.String("reason", result.FallbackReason),
				zap.Error(err))
		} else {
			matches = mlMatches
			result.Method = models.ScoringML
		}
	}

	rankMatches(matches)
	result.Matches = matches
	result.ProcessingTime = time.Since(start)

	e.metrics.MatchRun(string(result.Method), result.ProcessingTime, len(matches))
	e.logger.Info("Matching complete",
		zap.String("scoring_method", string(result.Method)),
		zap.Int("lenders", result.TotalLenders),
		zap.Int("eligible", len(matches)),
		zap.Int("excluded", result.Excluded),
		zap.Int("waived", result.Waived),
		zap.Duration("duration", result.ProcessingTime),
	)

	return result
}

// ScoreLender scores a single lender with the rule path. ok is false when the
// lender is excluded by its gates.
func ScoreLender(profile models.Profile, lender models.Lender) (models.LenderMatch, bool) {
	c, ok := scoreLender(profile, &lender)
	return c.match, ok
}

func scoreLender(p models.Profile, l *models.Lender) (candidate, bool) {
	gates := evaluateGates(p, l)
	waived, eligible := resolveWaiver(gates, l)
	if !eligible {
		return candidate{}, false
	}

	elig := eligibilityScore(p, l)
	afford := affordabilityScore(p)
	spec := specializationScore(p, l)
	final := finalScore(elig, afford, spec)
	margins := marginsPassed(p, l, gates)

	return candidate{
		margins: margins,
		match: models.LenderMatch{
			Lender:              *l,
			EligibilityScore:    round2(elig),
			AffordabilityScore:  round2(afford),
			SpecializationScore: round2(spec),
			FinalScore:          round2(final),
			Reasons:             buildReasons(p, l, waived, afford),
			Confidence:          round2(confidence(final, margins)),
			ScoringMethod:       models.ScoringRuleBased,
			IsGoodMatch:         final > DecisionBoundary,
			WaivedGate:          waived,
			Gates:               gates,
		},
	}, true
}

// scoreWithPredictor asks the predictor for every candidate concurrently. The
// first failure cancels the rest and is returned.
func (e *Engine) scoreWithPredictor(ctx context.Context, p models.Profile, candidates []candidate) ([]models.LenderMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, e.predictTimeout)
	defer cancel()

	probs := make([]float64, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i := range candidates {
		lender := &candidates[i].match.Lender
		g.Go(func() error {
			prob, err := e.predict(gctx, Features(p, lender))
			if err != nil {
				return fmt.Errorf("lender %d: %w", lender.ID, err)
			}
			probs[i] = prob
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matches := make([]models.LenderMatch, len(candidates))
	for i, c := range candidates {
		prob := probs[i]
		m := c.match
		final := 100 * prob
		m.FinalScore = round2(final)
		m.Confidence = round2(confidence(final, c.margins))
		m.IsGoodMatch = prob > 0.5
		m.MatchProbability = &prob
		m.ScoringMethod = models.ScoringML
		matches[i] = m
	}
	return matches, nil
}

// predict runs one prediction and stops waiting when ctx is done, even if the
// predictor ignores cancellation.
func (e *Engine) predict(ctx context.Context, fv FeatureVector) (float64, error) {
	type outcome struct {
		prob float64
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		prob, err := e.predictor.Predict(ctx, fv)
		done <- outcome{prob, err}
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case o := <-done:
		if o.err != nil {
			return 0, fmt.Errorf("%w: %w", models.ErrCollaboratorUnavailable, o.err)
		}
		if err := validProbability(o.prob); err != nil {
			return 0, fmt.Errorf("%w: %v", models.ErrMalformedCollaboratorOutput, err)
		}
		return o.prob, nil
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, models.ErrMalformedCollaboratorOutput):
		return "malformed"
	default:
		return "error"
	}
}
