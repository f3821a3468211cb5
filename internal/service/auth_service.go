package service

import (
	"context"
	"fmt"

	"parley/internal/models"
	"parley/internal/repository"
	"parley/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// defaultStatus is the status line given to new accounts.
const defaultStatus = "Hey there! I am using Parley."

// AuthService manages the local account directory and the current-user
// session key. There is no token auth; credentials only gate the local
// profile switch.
type AuthService struct {
	userRepo repository.UserRepository
}

// RegisterInput is the input for registering an account.
type RegisterInput struct {
	Username string
	Password string
	Email    string
}

// NewAuthService returns a new AuthService.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// Register creates a new account and signs it in. Usernames are unique
// case-insensitively; the profile ID is derived from the username and never
// changes afterwards.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.RegisteredUser, error) {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.RegisteredUser{
		Username:     in.Username,
		PasswordHash: string(hash),
		Email:        in.Email,
		Profile: models.User{
			ID:        models.DeriveUserID(in.Username),
			Name:      in.Username,
			AvatarURL: fmt.Sprintf("https://api.dicebear.com/9.x/initials/svg?seed=%s", in.Username),
			Status:    defaultStatus,
		},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.userRepo.SetCurrent(ctx, &user.Profile); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials and switches the current user.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid username or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid username or password")
	}
	if err := s.userRepo.SetCurrent(ctx, &user.Profile); err != nil {
		return nil, err
	}
	return &user.Profile, nil
}

// Logout clears the current user.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.userRepo.ClearCurrent(ctx)
}

// CurrentUser returns the signed-in profile, or nil when signed out.
func (s *AuthService) CurrentUser(ctx context.Context) (*models.User, error) {
	return s.userRepo.Current(ctx)
}
