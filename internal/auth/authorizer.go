package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/adilet-k/bazarly/internal/listing/domain"
)

// Service is the owner-or-admin authorization oracle backed by the user
// store. An unknown caller is unauthorized, not an error.
type Service struct {
	users domain.UserRepository
}

func NewService(users domain.UserRepository) *Service {
	return &Service{users: users}
}

func (s *Service) IsOwnerOrAdmin(ctx context.Context, userID string, listing *domain.Listing) (bool, error) {
	if listing == nil {
		return false, nil
	}
	if listing.OwnerID == userID {
		return true, nil
	}
	return s.IsAdmin(ctx, userID)
}

func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	isAdmin, err := s.users.IsAdmin(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("admin lookup for user %s: %w", userID, err)
	}
	return isAdmin, nil
}
