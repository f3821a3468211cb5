package repository

import (
	"context"
	"strings"

	"parley/internal/models"
	"parley/internal/observability"
	"parley/internal/storage"
)

// UserRepository handles persistence for the registered-user directory and
// the current-user session key.
type UserRepository interface {
	List(ctx context.Context) ([]models.RegisteredUser, error)
	GetByID(ctx context.Context, id string) (*models.RegisteredUser, error)
	GetByUsername(ctx context.Context, username string) (*models.RegisteredUser, error)
	// FindByNameOrUsername resolves a user by exact username or display-name
	// match, case-insensitively.
	FindByNameOrUsername(ctx context.Context, name string) (*models.RegisteredUser, error)
	Create(ctx context.Context, user *models.RegisteredUser) error
	Update(ctx context.Context, user *models.RegisteredUser) error
	Current(ctx context.Context) (*models.User, error)
	SetCurrent(ctx context.Context, user *models.User) error
	ClearCurrent(ctx context.Context) error
}

type kvUserRepository struct {
	kv  storage.KV
	log *observability.RepoLogger
}

// NewUserRepository returns a KV-backed UserRepository.
func NewUserRepository(kv storage.KV) UserRepository {
	return &kvUserRepository{
		kv:  kv,
		log: observability.NewRepoLogger("users"),
	}
}

func (r *kvUserRepository) List(_ context.Context) ([]models.RegisteredUser, error) {
	var users []models.RegisteredUser
	if _, err := loadJSON(r.kv, keyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *kvUserRepository) GetByID(ctx context.Context, id string) (*models.RegisteredUser, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Profile.ID == id {
			return &users[i], nil
		}
	}
	return nil, models.NewNotFoundError("User", id)
}

func (r *kvUserRepository) GetByUsername(ctx context.Context, username string) (*models.RegisteredUser, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Username, username) {
			return &users[i], nil
		}
	}
	return nil, models.NewNotFoundError("User", username)
}

func (r *kvUserRepository) FindByNameOrUsername(ctx context.Context, name string) (*models.RegisteredUser, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Username, name) || strings.EqualFold(users[i].Profile.Name, name) {
			return &users[i], nil
		}
	}
	return nil, models.NewNotFoundError("User", name)
}

func (r *kvUserRepository) Create(ctx context.Context, user *models.RegisteredUser) error {
	users, err := r.List(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if strings.EqualFold(users[i].Username, user.Username) {
			return models.NewConflictError("Username is already taken")
		}
	}
	users = append(users, *user)
	if err := saveJSON(r.kv, keyUsers, users); err != nil {
		return err
	}
	r.log.LogWrite(ctx, map[string]interface{}{"user_id": user.Profile.ID})
	return nil
}

func (r *kvUserRepository) Update(ctx context.Context, user *models.RegisteredUser) error {
	users, err := r.List(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Profile.ID == user.Profile.ID {
			users[i] = *user
			if err := saveJSON(r.kv, keyUsers, users); err != nil {
				return err
			}
			r.log.LogWrite(ctx, map[string]interface{}{"user_id": user.Profile.ID})
			return nil
		}
	}
	return models.NewNotFoundError("User", user.Profile.ID)
}

func (r *kvUserRepository) Current(_ context.Context) (*models.User, error) {
	var user models.User
	found, err := loadJSON(r.kv, keyCurrentUser, &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

func (r *kvUserRepository) SetCurrent(_ context.Context, user *models.User) error {
	return saveJSON(r.kv, keyCurrentUser, user)
}

func (r *kvUserRepository) ClearCurrent(_ context.Context) error {
	if err := r.kv.Delete(keyCurrentUser); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
