package app

import (
	"context"
	"fmt"
	"strings"

	"careerpilot/pkg/ai"
	"careerpilot/pkg/domain"
)

// SaveResume creates or replaces the caller's resume content.
func (a *App) SaveResume(ctx context.Context, externalID, content string) (domain.Resume, error) {
	user, err := a.resolveUser(externalID)
	if err != nil {
		return domain.Resume{}, err
	}
	resume, err := a.store.UpsertResume(user.ID, content)
	if err != nil {
		return domain.Resume{}, fmt.Errorf("save resume: %w", err)
	}
	a.revalidate(ctx, "/resume")
	return resume, nil
}

// GetResume returns the caller's resume if one has been saved.
func (a *App) GetResume(_ context.Context, externalID string) (domain.Resume, bool, error) {
	user, err := a.resolveUser(externalID)
	if err != nil {
		return domain.Resume{}, false, err
	}
	return a.store.GetResumeByUser(user.ID)
}

// ImproveWithAI rewrites one resume entry description in the voice of an
// expert resume writer for the caller's industry.
func (a *App) ImproveWithAI(ctx context.Context, externalID, current, entryType string) (string, error) {
	user, err := a.resolveUser(externalID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(current) == "" {
		return "", fmt.Errorf("content required")
	}
	if entryType == "" {
		entryType = "experience"
	}
	raw, err := a.gen.GenerateText(ctx, improveResumePrompt(user.Industry, entryType, current))
	if err != nil {
		return "", fmt.Errorf("improve content: %w", err)
	}
	return strings.TrimSpace(ai.CleanResponse(raw)), nil
}
