package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"habitLoopAPI/internal/apperr"
	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/types/user"
)

type UserService struct {
	store store.UserStore
}

func NewUserService(s store.UserStore) *UserService {
	return &UserService{store: s}
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	if strings.TrimSpace(req.ClerkID) == "" {
		return nil, apperr.Validation("clerkId", "is required")
	}
	if req.Username == "" {
		req.Username = usernameFallback(req.FirstName, req.LastName, req.Email)
	}

	u, err := s.store.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, notFoundAs(err, "user")
	}
	return u, nil
}

func (s *UserService) UpdateUserByClerkID(ctx context.Context, clerkID string, req *user.UpdateUserRequest) (*user.User, error) {
	u, err := s.store.UpdateUserByClerkID(ctx, clerkID, req)
	if err != nil {
		return nil, notFoundAs(err, "user")
	}
	return u, nil
}

// SyncUser creates the user, or updates it when Clerk redelivers a creation
// for a user that already exists.
func (s *UserService) SyncUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	u, err := s.CreateUser(ctx, req)
	if !errors.Is(err, apperr.ErrConflict) {
		return u, err
	}

	return s.UpdateUserByClerkID(ctx, req.ClerkID, &user.UpdateUserRequest{
		Email:     &req.Email,
		Username:  &req.Username,
		FirstName: &req.FirstName,
		LastName:  &req.LastName,
		ImageURL:  req.ImageURL,
	})
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	if err := s.store.DeleteUserByClerkID(ctx, clerkID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user")
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func usernameFallback(firstName, lastName, email string) string {
	if name := strings.ToLower(firstName + lastName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
