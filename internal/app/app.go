// Package app builds the shared object graph used by the HTTP server and the
// Lambda entry points.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"loan-matchmaker/internal/catalog"
	"loan-matchmaker/internal/config"
	"loan-matchmaker/internal/metrics"
	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/services/cache"
	"loan-matchmaker/internal/services/conversation"
	"loan-matchmaker/internal/services/database"
	"loan-matchmaker/internal/services/gemini"
	"loan-matchmaker/internal/services/matcher"
	"loan-matchmaker/internal/services/params"
	s3service "loan-matchmaker/internal/services/s3"
	"loan-matchmaker/internal/services/ses"
	"loan-matchmaker/internal/utils"
)

// App holds the wired services for one process.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Registry     *prometheus.Registry
	Metrics      *metrics.Recorder
	Engine       *matcher.Engine
	Conversation *conversation.Service
	Mailer       *ses.Service

	db    *database.DB
	redis *redis.Client
}

// New wires every dependency from cfg. Optional backends (PostgreSQL, Redis,
// Gemini, SES, the ML model) are used only when configured.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = utils.OrNop(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  metrics.New(reg),
	}

	var (
		sessions conversation.SessionStore = conversation.NewMemorySessionStore()
		paramSt  params.Store              = params.NewMemoryStore()
		results  matcher.ResultStore       = matcher.NewMemoryResultStore()
		locker   conversation.Locker
	)

	if cfg.DatabaseEnabled() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.db = db
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		sessions, paramSt, results = db.Sessions(), db.Parameters(), db.Matches()
		locker = db.SessionLocks()
		logger.Info("Using PostgreSQL stores", zap.String("host", cfg.DBHost))
	}

	if cfg.RedisEnabled() {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = rdb
		results = cache.NewResultStore(rdb, results, cfg.MatchCacheTTL, logger.Named("cache"))
		logger.Info("Caching match results in Redis", zap.Duration("ttl", cfg.MatchCacheTTL))
	}

	lenders, err := a.loadLenders(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	predictor, err := loadPredictor(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Engine = matcher.NewEngine(lenders,
		matcher.WithPredictor(predictor),
		matcher.WithPredictTimeout(cfg.MLTimeout),
		matcher.WithLogger(logger.Named("matcher")),
		matcher.WithMetrics(a.Metrics),
	)

	extractor, advisor, err := newCollaborators(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Conversation = conversation.NewService(conversation.Deps{
		Sessions:            sessions,
		Tracker:             params.NewTracker(paramSt, logger.Named("params"), a.Metrics),
		Engine:              a.Engine,
		Results:             results,
		Locker:              locker,
		Extractor:           extractor,
		Advisor:             advisor,
		CollaboratorTimeout: cfg.CollaboratorTimeout,
		Logger:              logger.Named("conversation"),
		Metrics:             a.Metrics,
	})

	if cfg.SESFromEmail != "" {
		mailer, err := ses.NewService(ctx, cfg.AWSRegion, cfg.SESFromEmail, logger.Named("ses"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Mailer = mailer
	}

	logger.Info("Application initialized",
		zap.Int("lenders", len(lenders)),
		zap.Bool("ml_enabled", predictor.Enabled()),
		zap.Bool("database", a.db != nil),
		zap.Bool("redis", a.redis != nil),
		zap.Bool("email", a.Mailer != nil),
	)
	return a, nil
}

// loadLenders reads the configured catalog. With a database, the lenders table
// is seeded from the catalog on first start and read back from then on.
func (a *App) loadLenders(ctx context.Context) ([]models.Lender, error) {
	lenders, err := catalog.Load(a.Config.LenderCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load lender catalog: %w", err)
	}
	if a.db == nil {
		return lenders, nil
	}

	stored, err := a.db.Lenders().List(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		if err := catalog.Validate(stored); err != nil {
			return nil, fmt.Errorf("lenders table: %w", err)
		}
		return stored, nil
	}

	n, err := a.db.Lenders().Upsert(ctx, lenders)
	if err != nil {
		return nil, err
	}
	a.Logger.Info("Seeded lenders table", zap.Int("lenders", n))
	return lenders, nil
}

func loadPredictor(ctx context.Context, cfg *config.Config, logger *zap.Logger) (matcher.Predictor, error) {
	if !cfg.MLEnabled {
		return matcher.DisabledPredictor{}, nil
	}

	var (
		model *matcher.Model
		err   error
	)
	if cfg.MLModelPath != "" {
		model, err = matcher.LoadModelFile(cfg.MLModelPath)
	} else {
		var store *s3service.Service
		store, err = s3service.NewService(ctx, cfg.AWSRegion, cfg.MLModelS3Bucket, logger.Named("s3"))
		if err == nil {
			model, err = store.LoadModel(ctx, cfg.MLModelS3Key)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring model: %w", err)
	}

	logger.Info("Loaded scoring model", zap.Int("version", model.Version), zap.Int("layers", len(model.Layers)))
	return matcher.NewMLPPredictor(model), nil
}

func newCollaborators(ctx context.Context, cfg *config.Config, logger *zap.Logger) (conversation.Extractor, conversation.Advisor, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; conversational turns will report the advisor as unavailable")
		return unavailable{}, unavailable{}, nil
	}

	gen, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Using Gemini collaborators", zap.String("model", gen.Model()))
	return gemini.NewExtractor(gen, logger.Named("extractor")), gemini.NewAdvisor(gen), nil
}

// unavailable stands in for the language model when none is configured.
type unavailable struct{}

var errNoModel = fmt.Errorf("%w: no language model configured", models.ErrCollaboratorUnavailable)

func (unavailable) Extract(context.Context, conversation.ExtractionRequest) (*conversation.Extraction, error) {
	return nil, errNoModel
}

func (unavailable) Respond(context.Context, conversation.AdvisorRequest) (string, error) {
	return "", errNoModel
}

// HealthStatus reports backend connectivity.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Lenders   int               `json:"lenders"`
	Backends  map[string]string `json:"backends"`
}

// Health pings the configured backends.
func (a *App) Health(ctx context.Context) HealthStatus {
	h := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Lenders:   len(a.Engine.Lenders()),
		Backends:  map[string]string{},
	}

	check := func(name string, enabled bool, ping func(context.Context) error) {
		if !enabled {
			h.Backends[name] = "not configured"
			return
		}
		if err := ping(ctx); err != nil {
			h.Backends[name] = "disconnected"
			h.Status = "degraded"
			return
		}
		h.Backends[name] = "connected"
	}

	check("database", a.db != nil, func(ctx context.Context) error { return a.db.HealthCheck(ctx) })
	check("redis", a.redis != nil, func(ctx context.Context) error { return a.redis.Ping(ctx).Err() })
	return h
}

// ErrNoDatabase is returned by operations that need PostgreSQL when none is
// configured.
var ErrNoDatabase = errors.New("database not configured")

// Stats aggregates stored sessions and match lists.
type Stats struct {
	Sessions map[models.SessionState]int `json:"sessions"`
	Lenders  []database.LenderStats      `json:"lenders"`
}

// Stats reads usage counters from the database.
func (a *App) Stats(ctx context.Context) (*Stats, error) {
	if a.db == nil {
		return nil, ErrNoDatabase
	}
	sessions, err := a.db.Sessions().CountByState(ctx)
	if err != nil {
		return nil, err
	}
	lenders, err := a.db.Matches().StatsByLender(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Sessions: sessions, Lenders: lenders}, nil
}

// Close releases backend connections.
func (a *App) Close() {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		a.db.Close()
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("Error while closing backends", zap.Error(err))
	}
}
