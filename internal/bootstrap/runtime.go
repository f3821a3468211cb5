// Package bootstrap assembles the store from configuration: storage backend,
// repositories, and services. Callers hold an App and nothing else; the
// three collections are owned exclusively by the services inside it.
package bootstrap

import (
	"fmt"
	"time"

	"parley/internal/config"
	"parley/internal/repository"
	"parley/internal/service"
	"parley/internal/storage"
)

// App bundles the store's services over one storage backend.
type App struct {
	Auth       *service.AuthService
	Chats      *service.ChatService
	Users      *service.UserService
	SmartReply *service.SmartReplyService

	UserRepo repository.UserRepository

	kv storage.KV
}

// InitRuntime opens the configured storage backend and wires the services.
func InitRuntime(cfg *config.Config) (*App, error) {
	kv, err := openStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage initialization failed: %w", err)
	}

	userRepo := repository.NewUserRepository(kv)
	chatRepo := repository.NewChatRepository(kv)
	msgRepo := repository.NewMessageRepository(kv)

	return &App{
		Auth:  service.NewAuthService(userRepo),
		Chats: service.NewChatService(chatRepo, msgRepo, userRepo, cfg.AllowRerequestAfterReject),
		Users: service.NewUserService(userRepo, chatRepo, msgRepo),
		SmartReply: service.NewSmartReplyService(
			service.LocalSuggester{},
			time.Duration(cfg.SuggestDebounceMS)*time.Millisecond,
			cfg.SuggestionCount,
		),
		UserRepo: userRepo,
		kv:       kv,
	}, nil
}

// Close releases the storage backend.
func (a *App) Close() error {
	return a.kv.Close()
}

func openStorage(cfg *config.Config) (storage.KV, error) {
	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemory(), nil
	case "sqlite":
		return storage.OpenSQLite(cfg.StoragePath)
	case "pebble":
		return storage.OpenPebble(cfg.StoragePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
