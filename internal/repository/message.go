package repository

import (
	"context"

	"parley/internal/models"
	"parley/internal/observability"
	"parley/internal/storage"
)

// MessageRepository handles persistence for per-chat message lists. Each
// chat's messages live under their own key so clearing or deleting one chat
// never rewrites another's history.
type MessageRepository interface {
	ListByChat(ctx context.Context, chatID string) ([]models.Message, error)
	Append(ctx context.Context, msg *models.Message) error
	Update(ctx context.Context, msg *models.Message) error
	Delete(ctx context.Context, chatID, messageID string) error
	// ReplaceAllForChat overwrites a chat's message list. Used by cascades
	// that rewrite denormalized sender names.
	ReplaceAllForChat(ctx context.Context, chatID string, msgs []models.Message) error
	DeleteAllForChat(ctx context.Context, chatID string) error
}

type kvMessageRepository struct {
	kv  storage.KV
	log *observability.RepoLogger
}

// NewMessageRepository returns a KV-backed MessageRepository.
func NewMessageRepository(kv storage.KV) MessageRepository {
	return &kvMessageRepository{
		kv:  kv,
		log: observability.NewRepoLogger("messages"),
	}
}

func (r *kvMessageRepository) ListByChat(_ context.Context, chatID string) ([]models.Message, error) {
	var msgs []models.Message
	if _, err := loadJSON(r.kv, messagesKey(chatID), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *kvMessageRepository) Append(ctx context.Context, msg *models.Message) error {
	msgs, err := r.ListByChat(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	msgs = append(msgs, *msg)
	if err := saveJSON(r.kv, messagesKey(msg.ChatID), msgs); err != nil {
		return err
	}
	r.log.LogWrite(ctx, map[string]interface{}{"chat_id": msg.ChatID, "message_id": msg.ID})
	return nil
}

func (r *kvMessageRepository) Update(ctx context.Context, msg *models.Message) error {
	msgs, err := r.ListByChat(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	for i := range msgs {
		if msgs[i].ID == msg.ID {
			msgs[i] = *msg
			if err := saveJSON(r.kv, messagesKey(msg.ChatID), msgs); err != nil {
				return err
			}
			r.log.LogWrite(ctx, map[string]interface{}{"chat_id": msg.ChatID, "message_id": msg.ID})
			return nil
		}
	}
	return models.NewNotFoundError("Message", msg.ID)
}

func (r *kvMessageRepository) Delete(ctx context.Context, chatID, messageID string) error {
	msgs, err := r.ListByChat(ctx, chatID)
	if err != nil {
		return err
	}
	out := msgs[:0]
	found := false
	for _, m := range msgs {
		if m.ID == messageID {
			found = true
			continue
		}
		out = append(out, m)
	}
	if !found {
		return models.NewNotFoundError("Message", messageID)
	}
	if err := saveJSON(r.kv, messagesKey(chatID), out); err != nil {
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"chat_id": chatID, "message_id": messageID})
	return nil
}

func (r *kvMessageRepository) ReplaceAllForChat(ctx context.Context, chatID string, msgs []models.Message) error {
	if err := saveJSON(r.kv, messagesKey(chatID), msgs); err != nil {
		return err
	}
	r.log.LogWrite(ctx, map[string]interface{}{"chat_id": chatID, "count": len(msgs)})
	return nil
}

func (r *kvMessageRepository) DeleteAllForChat(ctx context.Context, chatID string) error {
	if err := r.kv.Delete(messagesKey(chatID)); err != nil {
		return models.NewInternalError(err)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"chat_id": chatID})
	return nil
}
