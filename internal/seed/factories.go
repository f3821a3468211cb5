package seed

import (
	"context"
	"fmt"
	"strings"

	"parley/internal/models"
	"parley/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds demo accounts through the regular registration path so
// every seeded record satisfies the same invariants as a real one.
type Factory struct {
	auth *service.AuthService
	opts Options
}

// NewFactory creates a new Factory.
func NewFactory(auth *service.AuthService, opts Options) *Factory {
	gofakeit.Seed(0)
	return &Factory{auth: auth, opts: opts}
}

// CreateUser registers an account with the given username.
func (f *Factory) CreateUser(ctx context.Context, username string) (*models.RegisteredUser, error) {
	user, err := f.auth.Register(ctx, service.RegisterInput{
		Username: username,
		Password: f.opts.Password,
		Email:    fmt.Sprintf("%s@example.com", strings.ToLower(username)),
	})
	if err != nil {
		return nil, fmt.Errorf("seed user %s: %w", username, err)
	}
	return user, nil
}

// CreateRandomUser registers an account with a generated identity, retrying
// on the rare username collision.
func (f *Factory) CreateRandomUser(ctx context.Context) (*models.RegisteredUser, error) {
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		username := strings.ToLower(gofakeit.FirstName()) + fmt.Sprintf("%d", gofakeit.Number(10, 99))
		user, err := f.CreateUser(ctx, username)
		if err == nil {
			return user, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
