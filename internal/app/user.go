package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"careerpilot/pkg/domain"
)

// SyncUser provisions a user row for the caller on first authenticated
// contact. An existing row is returned unchanged.
func (a *App) SyncUser(_ context.Context, externalID, email, name string) (domain.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return domain.User{}, ErrUnauthorized
	}
	user, ok, err := a.store.GetUserByExternalID(externalID)
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if ok {
		return user, nil
	}
	now := time.Now().UTC()
	user = domain.User{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		Email:      strings.TrimSpace(email),
		Name:       strings.TrimSpace(name),
		Skills:     []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.store.CreateUser(user); err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
