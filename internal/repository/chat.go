package repository

import (
	"context"

	"parley/internal/models"
	"parley/internal/observability"
	"parley/internal/storage"
)

// ChatRepository handles persistence for the chat list.
type ChatRepository interface {
	List(ctx context.Context) ([]models.Chat, error)
	ListForUser(ctx context.Context, userID string) ([]models.Chat, error)
	GetByID(ctx context.Context, id string) (*models.Chat, error)
	// Save inserts or replaces the chat with the same ID.
	Save(ctx context.Context, chat *models.Chat) error
	Delete(ctx context.Context, id string) error
	// ReplaceAll overwrites the entire collection. Used by multi-chat
	// cascades (profile propagation) so all chats land in one write.
	ReplaceAll(ctx context.Context, chats []models.Chat) error
}

type kvChatRepository struct {
	kv  storage.KV
	log *observability.RepoLogger
}

// NewChatRepository returns a KV-backed ChatRepository.
func NewChatRepository(kv storage.KV) ChatRepository {
	return &kvChatRepository{
		kv:  kv,
		log: observability.NewRepoLogger("chats"),
	}
}

func (r *kvChatRepository) List(_ context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	if _, err := loadJSON(r.kv, keyChats, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *kvChatRepository) ListForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	chats, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Chat, 0, len(chats))
	for _, c := range chats {
		if c.IsParticipant(userID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *kvChatRepository) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	chats, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		if chats[i].ID == id {
			return &chats[i], nil
		}
	}
	return nil, models.NewNotFoundError("Chat", id)
}

func (r *kvChatRepository) Save(ctx context.Context, chat *models.Chat) error {
	chats, err := r.List(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range chats {
		if chats[i].ID == chat.ID {
			chats[i] = *chat
			replaced = true
			break
		}
	}
	if !replaced {
		chats = append(chats, *chat)
	}
	if err := saveJSON(r.kv, keyChats, chats); err != nil {
		return err
	}
	r.log.LogWrite(ctx, map[string]interface{}{"chat_id": chat.ID})
	return nil
}

func (r *kvChatRepository) Delete(ctx context.Context, id string) error {
	chats, err := r.List(ctx)
	if err != nil {
		return err
	}
	out := chats[:0]
	for _, c := range chats {
		if c.ID != id {
			out = append(out, c)
		}
	}
	if err := saveJSON(r.kv, keyChats, out); err != nil {
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"chat_id": id})
	return nil
}

func (r *kvChatRepository) ReplaceAll(ctx context.Context, chats []models.Chat) error {
	if err := saveJSON(r.kv, keyChats, chats); err != nil {
		return err
	}
	r.log.LogWrite(ctx, map[string]interface{}{"count": len(chats)})
	return nil
}
