// Package brandevo is the embeddable entry point of the parameter optimizer.
// It resolves configuration, the generation store, the trend cache and the
// background tasks behind one Client.
package brandevo

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"brandevo/internal/config"
	"brandevo/internal/model"
	"brandevo/internal/platform"
	"brandevo/internal/storage"
	"brandevo/internal/trend"
)

type (
	Config                = config.Config
	Parameters            = platform.Parameters
	Result                = platform.Result
	Generation            = model.Generation
	EngagementObservation = model.EngagementObservation
	VectorRef             = model.VectorRef
)

var (
	ErrEvolutionInProgress = platform.ErrEvolutionInProgress
	ErrNotInitialized      = platform.ErrNotInitialized
)

type Options struct {
	// ConfigPath is read when Config is nil. Empty means defaults.
	ConfigPath string
	Config     *config.Config
	Logger     *slog.Logger
	// TrendSource overrides the HTTP source built from the trend endpoint.
	TrendSource trend.Source
}

type Client struct {
	cfg        config.Config
	store      storage.Store
	controller *platform.Controller
	trend      *trend.Cache
	supervisor *platform.Supervisor
	scheduler  *platform.Scheduler
	logger     *slog.Logger

	mu      sync.Mutex
	started bool
}

func New(opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg config.Config
	if opts.Config != nil {
		cfg = *opts.Config
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	} else {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	store, err := storage.NewStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	controllerOpts := []platform.Option{platform.WithLogger(logger)}
	var cache *trend.Cache
	if cfg.Trend.Enabled {
		source := opts.TrendSource
		if source == nil {
			source = trend.HTTPSource{Endpoint: cfg.Trend.Endpoint}
		}
		cache = trend.NewCache(source, cfg.Trend.EmbeddingDim, logger)
		controllerOpts = append(controllerOpts, platform.WithTrend(cache))
	}

	controller, err := platform.NewController(cfg, store, controllerOpts...)
	if err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}

	supervisor := platform.NewSupervisor(platform.SupervisorPolicy{}, logger)
	return &Client{
		cfg:        cfg,
		store:      store,
		controller: controller,
		trend:      cache,
		supervisor: supervisor,
		scheduler:  platform.NewScheduler(controller, cfg.Evolution.Interval, supervisor, logger),
		logger:     logger,
	}, nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.controller.Init(ctx)
}

// Start launches the scheduled evolution cycle and, when trend conditioning
// is enabled, the trend refresh loop. Both run under the supervisor.
func (c *Client) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	if c.trend != nil {
		if err := c.supervisor.Start(platform.TaskTrendRefresh, c.trend.Loop(c.cfg.Trend.RefreshInterval)); err != nil {
			return err
		}
	}
	if err := c.scheduler.Start(); err != nil {
		c.supervisor.StopAll()
		return err
	}
	c.started = true
	return nil
}

func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supervisor.StopAll()
	c.started = false
}

func (c *Client) Close() error {
	c.Stop()
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Config() config.Config { return c.cfg }

// Controller exposes the state machine for adapters such as the HTTP API.
func (c *Client) Controller() *platform.Controller { return c.controller }

func (c *Client) Tasks() []platform.TaskStatus { return c.supervisor.Children() }

func (c *Client) Parameters() (Parameters, error) {
	return c.controller.CurrentParameters()
}

func (c *Client) Evolve(ctx context.Context) (Result, error) {
	return c.controller.Evolve(ctx)
}

func (c *Client) SubmitEngagement(ctx context.Context, obs EngagementObservation) (EngagementObservation, error) {
	return c.controller.SubmitEngagement(ctx, obs)
}

func (c *Client) History(ctx context.Context, limit int) ([]Generation, error) {
	return c.controller.History(ctx, limit)
}

func (c *Client) Generation(ctx context.Context, id int) (Generation, error) {
	g, ok, err := c.controller.Generation(ctx, id)
	if err != nil {
		return Generation{}, err
	}
	if !ok {
		return Generation{}, ErrGenerationNotFound
	}
	return g, nil
}

var ErrGenerationNotFound = errors.New("generation not found")
