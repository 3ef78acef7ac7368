package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"careerpilot/pkg/domain"
	"careerpilot/pkg/store"
)

// ProfileInput carries the onboarding/profile form fields.
type ProfileInput struct {
	Industry   string   `json:"industry"`
	Experience int      `json:"experience"`
	Bio        string   `json:"bio"`
	Skills     []string `json:"skills"`
}

// ProfileResult is the outcome of a successful profile update.
type ProfileResult struct {
	User    domain.User            `json:"user"`
	Insight domain.IndustryInsight `json:"industryInsight"`
}

// UpdateProfile sets the user's industry, experience, bio, and skills,
// ensuring the industry's insight row exists first. The insight is
// generated before the write transaction opens so the transaction only
// covers the two writes; both persist or neither does.
func (a *App) UpdateProfile(ctx context.Context, externalID string, input ProfileInput) (ProfileResult, error) {
	user, err := a.resolveUser(externalID)
	if err != nil {
		return ProfileResult{}, err
	}
	industry := strings.TrimSpace(input.Industry)
	if industry == "" {
		return ProfileResult{}, fmt.Errorf("%w: industry is required", ErrProfileUpdateFailed)
	}

	insight, exists, err := a.store.GetInsightByIndustry(industry)
	if err != nil {
		return ProfileResult{}, fmt.Errorf("%w: %v", ErrProfileUpdateFailed, err)
	}
	var newInsight *domain.IndustryInsight
	if !exists {
		generated, err := a.generateInsight(ctx, industry)
		if err != nil {
			return ProfileResult{}, fmt.Errorf("%w: %v", ErrProfileUpdateFailed, err)
		}
		insight = generated
		newInsight = &generated
	}

	updated, err := a.store.ApplyProfileUpdate(user.ID, store.ProfileUpdate{
		Industry:   industry,
		Experience: input.Experience,
		Bio:        input.Bio,
		Skills:     input.Skills,
	}, newInsight)
	if err != nil {
		return ProfileResult{}, fmt.Errorf("%w: %v", ErrProfileUpdateFailed, err)
	}

	a.revalidate(ctx, "/profile")
	return ProfileResult{User: updated, Insight: insight}, nil
}

// GetOnboardingStatus reports whether the caller has completed onboarding.
// A user counts as onboarded once an industry is set.
func (a *App) GetOnboardingStatus(_ context.Context, externalID string) (bool, error) {
	user, err := a.resolveUser(externalID)
	if err != nil {
		return false, err
	}
	return user.Industry != "", nil
}

// revalidate signals view caches that a path changed. Best-effort only.
func (a *App) revalidate(ctx context.Context, path string) {
	if a.revalidator == nil {
		return
	}
	if err := a.revalidator.Publish(ctx, path); err != nil {
		slog.Warn("revalidate signal failed", "path", path, "err", err)
	}
}
