package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"brandevo/internal/config"
	"brandevo/internal/engagement"
	"brandevo/internal/evo"
	"brandevo/internal/metrics"
	"brandevo/internal/model"
	"brandevo/internal/storage"
)

var (
	// ErrEvolutionInProgress is returned immediately to a trigger that
	// collides with an evaluation already in flight.
	ErrEvolutionInProgress = errors.New("evolution in progress")
	ErrNotInitialized      = errors.New("controller is not initialized")
)

// improvementWindow bounds how many earlier best scores feed the improvement gate.
const improvementWindow = 10

type Outcome string

const (
	OutcomeEvolved Outcome = "evolved"
	OutcomeStalled Outcome = "stalled"
)

type StallReason string

const (
	ReasonInsufficientData StallReason = "insufficient_data"
	ReasonBelowImprovement StallReason = "below_improvement_threshold"
)

type Result struct {
	Status          Outcome                      `json:"status"`
	GenerationID    int                          `json:"generation_id"`
	NewGenerationID int                          `json:"new_generation_id,omitempty"`
	Reason          StallReason                  `json:"reason,omitempty"`
	Diagnostics     *model.GenerationDiagnostics `json:"diagnostics,omitempty"`
}

// Parameters is the serving view handed to the production side.
type Parameters struct {
	GenerationID int                    `json:"generation_id"`
	Ref          model.VectorRef        `json:"ref"`
	Vector       model.ParameterVector  `json:"vector"`
	Named        map[string]float64     `json:"named"`
	Status       model.GenerationStatus `json:"status"`
	Evolving     bool                   `json:"evolving"`
}

type TrendProvider interface {
	Latest() (model.TrendContext, bool)
}

type Option func(*Controller)

// WithRandomSource replaces the seeded per-generation random streams.
func WithRandomSource(factory evo.SourceFactory) Option {
	return func(c *Controller) {
		c.sources = factory
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithTrend(provider TrendProvider) Option {
	return func(c *Controller) {
		c.trend = provider
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func WithLedger(ledger *engagement.Ledger) Option {
	return func(c *Controller) {
		c.ledger = ledger
	}
}

// Controller drives the generation state machine. Evolve is exclusive per
// instance; reads go through the store's atomic head and never wait on it.
type Controller struct {
	cfg       config.Config
	store     storage.Store
	ledger    *engagement.Ledger
	evaluator evo.FitnessEvaluator
	breeder   *evo.Breeder
	sources   evo.SourceFactory
	trend     TrendProvider
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	evolveMu    sync.Mutex
	evolving    atomic.Bool
	initialized atomic.Bool
}

func NewController(cfg config.Config, store storage.Store, opts ...Option) (*Controller, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	c := &Controller{
		cfg:       cfg,
		store:     store,
		evaluator: evo.NewFitnessEvaluator(cfg.Fitness),
		sources:   evo.SeededSourceFactory(cfg.Evolution.Seed),
		logger:    slog.Default(),
		tracer:    otel.Tracer("brandevo"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	base := c.logger
	c.logger = base.With("component", "controller")
	if c.ledger == nil {
		c.ledger = engagement.NewLedger(base)
	}
	c.breeder = evo.NewBreeder(cfg.Evolution, base)
	return c, nil
}

// Init opens the store and seeds generation 0 when the log is empty. An
// existing log is resumed from its head.
func (c *Controller) Init(ctx context.Context) error {
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	genesis := model.Generation{
		ID:         0,
		Status:     model.StatusSeeding,
		Population: c.breeder.Seed(c.sources(0)),
		CreatedAt:  c.now().UTC(),
	}
	genesis.ActivatedRef = model.VectorRef{GenerationID: 0, Index: 0}
	genesis.ActivatedVector = genesis.Population[0].Vector
	genesis.Status = model.StatusActive

	head, created, err := c.store.Bootstrap(ctx, genesis)
	if err != nil {
		return fmt.Errorf("bootstrap generation log: %w", err)
	}
	if len(head.Population) != c.cfg.Evolution.PopulationSize || head.ActivatedVector.Len() != len(c.cfg.Evolution.Dimensions) {
		return fmt.Errorf("%w: stored generation %d does not match configured population or dimensions", config.ErrInvalidConfiguration, head.ID)
	}

	c.ledger.Open(head)
	c.initialized.Store(true)
	metrics.CurrentGeneration.Set(float64(head.ID))
	if created {
		c.logger.Info("seeded generation 0", "population", len(head.Population))
	} else {
		c.logger.Info("resumed generation log", "generation", head.ID, "stalls", head.StallCount)
	}
	return nil
}

// Current returns the committed head. It never blocks on Evolve.
func (c *Controller) Current() (model.Head, bool) {
	return c.store.Current()
}

func (c *Controller) CurrentParameters() (Parameters, error) {
	head, ok := c.store.Current()
	if !ok {
		return Parameters{}, ErrNotInitialized
	}
	return Parameters{
		GenerationID: head.GenerationID,
		Ref:          head.ActivatedRef,
		Vector:       head.ActivatedVector,
		Named:        c.cfg.Evolution.Dimensions.Named(head.ActivatedVector),
		Status:       head.Status,
		Evolving:     c.evolving.Load(),
	}, nil
}

func (c *Controller) Evolving() bool {
	return c.evolving.Load()
}

func (c *Controller) Dimensions() model.Dimensions {
	return c.cfg.Evolution.Dimensions
}

// SubmitEngagement records obs against the active generation. Malformed
// observations are dropped and reported with engagement.ErrMalformedObservation.
// While Evolve is scoring, the call waits for the pass to finish and is then
// checked against the generation that is active afterwards.
func (c *Controller) SubmitEngagement(ctx context.Context, obs model.EngagementObservation) (model.EngagementObservation, error) {
	if !c.initialized.Load() {
		return obs, ErrNotInitialized
	}
	return c.ledger.Submit(ctx, obs)
}

// Evolve runs one evaluating pass over the active generation. It either
// commits a successor, records a stall, or leaves the store untouched and
// returns the error.
func (c *Controller) Evolve(ctx context.Context) (Result, error) {
	if !c.initialized.Load() {
		return Result{}, ErrNotInitialized
	}
	if !c.evolveMu.TryLock() {
		metrics.EvolutionsTotal.WithLabelValues("busy").Inc()
		return Result{}, ErrEvolutionInProgress
	}
	defer c.evolveMu.Unlock()
	c.evolving.Store(true)
	defer c.evolving.Store(false)

	ctx, span := c.tracer.Start(ctx, "platform.Controller.Evolve")
	defer span.End()
	started := time.Now()

	result, err := c.evolve(ctx, span)
	metrics.EvolutionDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.EvolutionsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "evolution failed")
		c.logger.Error("evolution failed", "error", err)
		return Result{}, err
	}
	metrics.EvolutionsTotal.WithLabelValues(string(result.Status)).Inc()
	span.SetAttributes(attribute.String("outcome", string(result.Status)))
	span.SetStatus(codes.Ok, string(result.Status))
	return result, nil
}

func (c *Controller) evolve(ctx context.Context, span trace.Span) (Result, error) {
	active, ok, err := c.store.LatestGeneration(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load active generation: %w", err)
	}
	if !ok {
		return Result{}, ErrNotInitialized
	}
	span.SetAttributes(attribute.Int("generation", active.ID))

	evaluating := active.Clone()
	evaluating.Status = model.StatusEvaluating
	// Submits wait from here until the commit reopens the ledger on the
	// successor or the deferred Release reopens it after a stall or error.
	observations := c.ledger.Seal(active.ID)
	defer c.ledger.Release()
	c.logger.Debug("evaluating generation", "generation", active.ID, "observations", len(observations))

	scored, scoreErr := c.evaluator.ScorePopulation(evaluating.Population, observations)
	diagnostics := evo.Summarize(scored, min(c.cfg.Evolution.EliteCount, scored.ScoredCount()))
	metrics.ScoredIndividuals.Set(float64(diagnostics.ScoredCount))
	if errors.Is(scoreErr, evo.ErrInsufficientData) {
		return c.stall(ctx, active, ReasonInsufficientData, diagnostics)
	}
	if scoreErr != nil {
		return Result{}, scoreErr
	}

	if c.cfg.Evolution.MinImprovementRatio > 0 {
		previous, err := c.previousBest(ctx)
		if err != nil {
			return Result{}, err
		}
		if !evo.ImprovementReached(diagnostics.BestFitness, previous, c.cfg.Evolution.MinImprovementRatio) {
			return c.stall(ctx, active, ReasonBelowImprovement, diagnostics)
		}
	}

	successorID := active.ID + 1
	offspring, err := c.breeder.NextGeneration(scored, c.sources(successorID), c.trendBias())
	if err != nil {
		return Result{}, fmt.Errorf("breed generation %d: %w", successorID, err)
	}

	now := c.now().UTC()
	evaluated := evaluating
	evaluated.Status = model.StatusEvolved
	evaluated.Population = scored
	evaluated.EliteIndices = offspring.EliteIndices
	evaluated.SuccessorID = &successorID
	evaluated.Diagnostics = &diagnostics
	evaluated.EvaluatedAt = now

	successor := model.Generation{
		ID:               successorID,
		Status:           model.StatusActive,
		Population:       offspring.Population,
		ActivatedRef:     model.VectorRef{GenerationID: successorID, Index: 0},
		ActivatedVector:  offspring.Elite,
		TrendConditioned: offspring.TrendConditioned,
		CreatedAt:        now,
	}
	if err := c.store.CommitEvolution(ctx, evaluated, successor); err != nil {
		return Result{}, fmt.Errorf("commit generation %d: %w", successorID, err)
	}
	c.ledger.Open(successor)

	metrics.CurrentGeneration.Set(float64(successorID))
	metrics.BestFitness.Set(diagnostics.BestFitness)
	c.logger.Info("generation evolved",
		"generation", active.ID,
		"successor", successorID,
		"best_fitness", diagnostics.BestFitness,
		"scored", diagnostics.ScoredCount,
		"elites", offspring.EliteIndices,
		"trend_conditioned", offspring.TrendConditioned,
	)
	return Result{
		Status:          OutcomeEvolved,
		GenerationID:    active.ID,
		NewGenerationID: successorID,
		Diagnostics:     &diagnostics,
	}, nil
}

// stall leaves the active generation Active with no successor and bumps its
// stall bookkeeping.
func (c *Controller) stall(ctx context.Context, active model.Generation, reason StallReason, diagnostics model.GenerationDiagnostics) (Result, error) {
	stalled := active.Clone()
	stalled.StallCount++
	stalled.LastStalledAt = c.now().UTC()
	stalled.Diagnostics = &diagnostics
	if err := c.store.RecordStall(ctx, stalled); err != nil {
		return Result{}, fmt.Errorf("record stall for generation %d: %w", active.ID, err)
	}
	c.logger.Info("generation stalled",
		"generation", active.ID,
		"reason", reason,
		"stalls", stalled.StallCount,
		"scored", diagnostics.ScoredCount,
	)
	return Result{
		Status:       OutcomeStalled,
		GenerationID: active.ID,
		Reason:       reason,
		Diagnostics:  &diagnostics,
	}, nil
}

func (c *Controller) previousBest(ctx context.Context) ([]float64, error) {
	history, err := c.store.ListGenerations(ctx, improvementWindow+1)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	best := make([]float64, 0, len(history))
	for _, g := range history {
		if g.Status == model.StatusEvolved && g.Diagnostics != nil {
			best = append(best, g.Diagnostics.BestFitness)
		}
	}
	return best, nil
}

func (c *Controller) trendBias() []float64 {
	if !c.cfg.Trend.Enabled || c.trend == nil {
		return nil
	}
	latest, ok := c.trend.Latest()
	if !ok {
		return nil
	}
	return evo.TrendBias(c.cfg.Evolution.Dimensions, &latest, c.cfg.Trend.Influence)
}

// ActiveGeneration returns the full record of the generation currently
// collecting engagement.
func (c *Controller) ActiveGeneration(ctx context.Context) (model.Generation, error) {
	active, ok, err := c.store.LatestGeneration(ctx)
	if err != nil {
		return model.Generation{}, err
	}
	if !ok {
		return model.Generation{}, ErrNotInitialized
	}
	return active, nil
}

func (c *Controller) Generation(ctx context.Context, id int) (model.Generation, bool, error) {
	return c.store.GetGeneration(ctx, id)
}

func (c *Controller) History(ctx context.Context, limit int) ([]model.Generation, error) {
	return c.store.ListGenerations(ctx, limit)
}

// PendingObservations counts observations recorded for the active generation.
func (c *Controller) PendingObservations() int {
	head, ok := c.store.Current()
	if !ok {
		return 0
	}
	return c.ledger.Count(head.GenerationID)
}
