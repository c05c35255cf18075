package services

import (
	"context"
	"fmt"

	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/user"

	"github.com/google/uuid"
)

type UserService struct {
	store store.UserStore
}

func NewUserService(s store.UserStore) *UserService {
	return &UserService{store: s}
}

// ResolveUser maps an external identity (Clerk subject or demo id) to the
// internal user, creating the user on first sight.
func (s *UserService) ResolveUser(ctx context.Context, externalID string) (*user.User, error) {
	if externalID == "" {
		return nil, fmt.Errorf("%w: empty user identity", ErrValidation)
	}
	u, err := s.store.EnsureUser(ctx, externalID, defaultUsername(externalID))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, req *user.UpdateProfileRequest) (*user.User, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	u, err := s.store.UpdateUsername(ctx, id, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return u, nil
}

func (s *UserService) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.store.ListUserIDs(ctx)
}

func defaultUsername(externalID string) string {
	name := "pal_" + externalID
	if len(name) > 30 {
		name = name[:30]
	}
	return name
}
