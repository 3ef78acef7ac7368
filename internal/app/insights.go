package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"careerpilot/pkg/ai"
	"careerpilot/pkg/domain"
)

// insightTTL is how long a generated insight stays current.
const insightTTL = 7 * 24 * time.Hour

// RefreshMode selects the write path for an insight refresh.
type RefreshMode int

const (
	// CreateIfMissing inserts a new row; used by the lazy first-touch path.
	CreateIfMissing RefreshMode = iota
	// UpdateExisting replaces an existing row's fields; used by the sweep,
	// which assumes every industry it sees was seeded lazily first.
	UpdateExisting
)

// insightPayload is the JSON shape the model is prompted to return.
type insightPayload struct {
	SalaryRanges      []domain.SalaryRange `json:"salaryRanges"`
	GrowthRate        float64              `json:"growthRate"`
	DemandLevel       domain.DemandLevel   `json:"demandLevel"`
	TopSkills         []string             `json:"topSkills"`
	MarketOutlook     domain.MarketOutlook `json:"marketOutlook"`
	KeyTrends         []string             `json:"keyTrends"`
	RecommendedSkills []string             `json:"recommendedSkills"`
}

// generateInsight asks the model for a fresh snapshot of one industry and
// parses it. No write happens here.
func (a *App) generateInsight(ctx context.Context, industry string) (domain.IndustryInsight, error) {
	raw, err := a.gen.GenerateText(ctx, insightPrompt(industry))
	if err != nil {
		return domain.IndustryInsight{}, fmt.Errorf("generate insights for %s: %w", industry, err)
	}
	var payload insightPayload
	if err := ai.DecodeJSON(raw, &payload); err != nil {
		return domain.IndustryInsight{}, fmt.Errorf("parse insights for %s: %w", industry, err)
	}
	now := time.Now().UTC()
	return domain.IndustryInsight{
		Industry:          industry,
		SalaryRanges:      payload.SalaryRanges,
		GrowthRate:        payload.GrowthRate,
		DemandLevel:       payload.DemandLevel,
		TopSkills:         payload.TopSkills,
		MarketOutlook:     payload.MarketOutlook,
		KeyTrends:         payload.KeyTrends,
		RecommendedSkills: payload.RecommendedSkills,
		LastUpdated:       now,
		NextUpdate:        now.Add(insightTTL),
	}, nil
}

// refreshInsight generates a fresh insight for one industry and writes it
// back according to mode. Both the lazy path and the sweep go through
// here so prompt building and parsing stay single-sourced.
func (a *App) refreshInsight(ctx context.Context, industry string, mode RefreshMode) (domain.IndustryInsight, error) {
	insight, err := a.generateInsight(ctx, industry)
	if err != nil {
		return domain.IndustryInsight{}, err
	}
	switch mode {
	case CreateIfMissing:
		err = a.store.CreateInsight(insight)
	case UpdateExisting:
		err = a.store.UpdateInsight(insight)
	default:
		err = fmt.Errorf("unknown refresh mode %d", mode)
	}
	if err != nil {
		return domain.IndustryInsight{}, fmt.Errorf("persist insights for %s: %w", industry, err)
	}
	return insight, nil
}

// GetIndustryInsights returns the caller's industry insight, generating
// and persisting it on first touch. An existing row is returned as-is;
// staleness is only re-evaluated by the scheduled sweep.
func (a *App) GetIndustryInsights(ctx context.Context, externalID string) (domain.IndustryInsight, error) {
	user, err := a.resolveUser(externalID)
	if err != nil {
		return domain.IndustryInsight{}, err
	}
	if user.Industry == "" {
		return domain.IndustryInsight{}, fmt.Errorf("%w: user has no industry set", ErrUserNotFound)
	}
	insight, ok, err := a.store.GetInsightByIndustry(user.Industry)
	if err != nil {
		return domain.IndustryInsight{}, fmt.Errorf("load insight: %w", err)
	}
	if ok {
		return insight, nil
	}
	return a.refreshInsight(ctx, user.Industry, CreateIfMissing)
}

// RefreshAllInsights refreshes every known industry unconditionally, one
// at a time in storage order. A failure for one industry is logged and
// does not abort the rest. Returns how many industries were refreshed.
func (a *App) RefreshAllInsights(ctx context.Context) (int, error) {
	industries, err := a.store.ListIndustries()
	if err != nil {
		return 0, fmt.Errorf("list industries: %w", err)
	}
	refreshed := 0
	for _, industry := range industries {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if _, err := a.refreshInsight(ctx, industry, UpdateExisting); err != nil {
			slog.Error("insight refresh failed", "industry", industry, "err", err)
			continue
		}
		refreshed++
		slog.Info("insight refreshed", "industry", industry)
	}
	return refreshed, nil
}
