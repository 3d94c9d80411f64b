package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/ai-product-council/config"
	"github.com/upb/ai-product-council/internal/fallback"
	"github.com/upb/ai-product-council/internal/tokens"
	"github.com/upb/ai-product-council/repositories"
	"github.com/upb/ai-product-council/repositories/postgres"
	"github.com/upb/ai-product-council/repositories/sqlite"
	"github.com/upb/ai-product-council/services/agents"
	"github.com/upb/ai-product-council/services/providers"
	"github.com/upb/ai-product-council/services/providers/anthropic"
	"github.com/upb/ai-product-council/services/providers/gemini"
	"github.com/upb/ai-product-council/services/providers/openai"
	"github.com/upb/ai-product-council/services/ratelimit"
	"github.com/upb/ai-product-council/services/refinement"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     repositories.Database
	Logger *zap.Logger

	// Repositories
	Sessions repositories.SessionRepository

	// Models
	ProviderRegistry *providers.Registry
	OpenAICredential *providers.Credential
	Tokens           *tokens.Counter

	// Fallback system
	Catalog      *fallback.Catalog
	Fallbacks    *fallback.Registry
	Orchestrator *fallback.Orchestrator

	// Services
	Refinement  *refinement.Service
	RateLimiter *ratelimit.RateLimitService

	primary   fallback.Generator
	secondary providers.Model
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
		Tokens: tokens.NewCounter(),
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initProviders(ctx, cfg); err != nil {
		_ = deps.DB.Close()
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initFallback(cfg); err != nil {
		_ = deps.DB.Close()
		return nil, fmt.Errorf("failed to initialize fallback system: %w", err)
	}

	deps.initServices(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("primary_provider", cfg.Providers.Primary),
		zap.Strings("providers", deps.ProviderRegistry.List()))
	return deps, nil
}

// initDatabase opens the session store and creates its schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	var repos *repositories.Repositories

	switch cfg.Database.Driver() {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.SQLitePath(), d.Logger)
		if err != nil {
			return err
		}
		d.DB = db
		repos = db.NewRepositories()
	default:
		factory, err := postgres.NewRepositoryFactory(cfg.Database, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.DB = factory.GetDB()
		repos = factory.NewRepositories()
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		_ = d.DB.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Sessions = repos.Sessions

	d.Logger.Info("session store ready",
		zap.String("connection", cfg.Database.LogString()))
	return nil
}

// initProviders builds the primary model and the OpenAI secondary model
func (d *Dependencies) initProviders(ctx context.Context, cfg *config.Config) error {
	registry := providers.NewRegistry()
	pc := cfg.Providers

	primaryCfg := cfg.PrimaryModel()
	primaryConfig := providers.ProviderConfig{
		APIKey:      primaryCfg.APIKey,
		BaseURL:     primaryCfg.BaseURL,
		Model:       primaryCfg.Model,
		MaxTokens:   pc.MaxTokens,
		Temperature: pc.Temperature,
		Timeout:     primaryCfg.Timeout,
	}

	var primary providers.Model
	var err error
	switch pc.Primary {
	case config.ProviderAnthropic:
		primary, err = anthropic.NewAnthropicAdapter(primaryConfig)
	default:
		primary, err = gemini.NewGeminiAdapter(ctx, primaryConfig)
	}

	if err != nil {
		// The council still answers through the fallbacks.
		d.Logger.Warn("primary provider unavailable, requests will fail over",
			zap.String("provider", pc.Primary),
			zap.Error(err))
		d.primary = unavailablePrimary(pc.Primary, err)
	} else {
		if err := registry.Register(primary); err != nil {
			return err
		}
		d.primary = agents.NewAnalyst(primary, agents.AnalystConfig{
			ModelName:   primaryCfg.Model,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
		}, d.Tokens, d.Logger.Named("primary"))
	}

	d.OpenAICredential = providers.NewCredential(pc.OpenAI.APIKey)
	secondary := openai.NewOpenAIAdapter(providers.ProviderConfig{
		BaseURL:     pc.OpenAI.BaseURL,
		Model:       pc.OpenAI.Model,
		MaxTokens:   pc.MaxTokens,
		Temperature: pc.Temperature,
		Timeout:     pc.OpenAI.Timeout,
	}, d.OpenAICredential)
	if err := registry.Register(secondary); err != nil {
		return err
	}
	d.secondary = secondary
	if !d.OpenAICredential.Present() {
		d.Logger.Warn("openai api key not configured, external fallback unavailable")
	}

	d.ProviderRegistry = registry
	return nil
}

// initFallback builds the strategy registry, the detector and the orchestrator
func (d *Dependencies) initFallback(cfg *config.Config) error {
	fc := cfg.Fallback

	catalog, err := loadCatalog(fc.CatalogPath)
	if err != nil {
		return err
	}
	d.Catalog = catalog

	analyst := agents.NewAnalyst(d.secondary, agents.AnalystConfig{
		ModelName:   cfg.Providers.OpenAI.Model,
		MaxTokens:   cfg.Providers.MaxTokens,
		Temperature: cfg.Providers.Temperature,
	}, d.Tokens, d.Logger.Named("external"))

	registry := fallback.NewRegistry(fc.DegradationFactor, fc.HybridMaxSources)
	strategies := []struct {
		name     string
		strategy fallback.Strategy
	}{
		{fallback.NameExternal, fallback.NewExternalStrategy(analyst, d.OpenAICredential.Present)},
		{fallback.NameTemplate, fallback.NewTemplateStrategy(catalog)},
		{fallback.NameCached, fallback.NewCachedStrategy(catalog)},
	}
	for _, s := range strategies {
		if err := registry.Register(s.name, s.strategy); err != nil {
			return fmt.Errorf("failed to register %s: %w", s.name, err)
		}
	}
	d.Fallbacks = registry

	detector := fallback.NewDetector(fallback.DetectorConfig{
		Window:    fc.FailureWindow,
		Threshold: fc.FailureThreshold,
		Cooldown:  fc.RecoveryCooldown,
	})

	d.Orchestrator = fallback.NewOrchestrator(d.primary, registry, detector, fallback.Config{
		DegradationFactor: fc.DegradationFactor,
		PrimaryTimeout:    fc.PrimaryTimeout,
		FallbackTimeout:   fc.FallbackTimeout,
		HybridMinSources:  fc.HybridMinSources,
	}, d.Logger.Named("fallback"))

	d.Logger.Info("fallback system initialized",
		zap.Int("strategies", len(registry.Entries())),
		zap.Int("available", len(registry.Available())))
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) {
	d.Refinement = refinement.NewService(d.Orchestrator, d.Sessions, refinement.Config{
		AgentConcurrency: cfg.Refinement.AgentConcurrency,
		SessionTimeout:   cfg.Refinement.SessionTimeout,
	}, d.Logger.Named("refinement"))

	d.RateLimiter = ratelimit.NewRateLimitService(cfg.RateLimit.Requests, cfg.RateLimit.Window, d.Logger)
}

func loadCatalog(path string) (*fallback.Catalog, error) {
	if path == "" {
		return fallback.DefaultCatalog()
	}
	catalog, err := fallback.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load fallback catalog: %w", err)
	}
	return catalog, nil
}

// unavailablePrimary stands in for a primary model that could not be built.
// Its failures qualify, so the orchestrator degrades to the fallbacks.
func unavailablePrimary(name string, cause error) fallback.Generator {
	return fallback.GeneratorFunc(func(ctx context.Context, req *fallback.Request) (*fallback.Answer, error) {
		return nil, providers.NewProviderError(name, providers.KindConnection, 0, "provider not configured", cause)
	})
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Finish or cancel background refinements before the store goes away
	if d.Refinement != nil {
		if err := d.Refinement.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to drain refinements: %w", err))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
