package app

import (
	"context"
	"fmt"
	"strings"

	"careerpilot/pkg/ai"
	"careerpilot/pkg/domain"
	"careerpilot/pkg/store"
)

// Revalidator publishes a cache-invalidation signal for a view path after
// a successful mutation. Implementations are best-effort; failures are
// logged and never fail the mutation.
type Revalidator interface {
	Publish(ctx context.Context, path string) error
}

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL  string
	Store        store.Store
	Generator    ai.TextGenerator
	GeminiAPIKey string
	GeminiModel  string
	Revalidator  Revalidator
}

// App is the core application service wiring storage, AI generation, and
// the insight refresh engine.
type App struct {
	store       store.Store
	gen         ai.TextGenerator
	revalidator Revalidator
}

// New constructs the application with database-backed storage.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	gen := cfg.Generator
	if gen == nil {
		var err error
		gen, err = ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
	}
	return &App{
		store:       dataStore,
		gen:         gen,
		revalidator: cfg.Revalidator,
	}, nil
}

// resolveUser maps a caller identity to its user row. A blank identity is
// unauthorized; a missing row is not found.
func (a *App) resolveUser(externalID string) (domain.User, error) {
	if strings.TrimSpace(externalID) == "" {
		return domain.User{}, ErrUnauthorized
	}
	user, ok, err := a.store.GetUserByExternalID(externalID)
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}
