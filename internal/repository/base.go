// Package repository provides persistence for the store's three collections:
// registered users, chats, and per-chat message lists. Each collection is a
// JSON value under a fixed key, matching the in-memory types exactly; there
// is no schema versioning.
package repository

import (
	"encoding/json"

	"parley/internal/models"
	"parley/internal/storage"
)

// Persisted storage keys.
const (
	keyCurrentUser = "parley:current-user"
	keyUsers       = "parley:users"
	keyChats       = "parley:chats"
	msgKeyPrefix   = "parley:messages:"
)

func messagesKey(chatID string) string {
	return msgKeyPrefix + chatID
}

// loadJSON reads key into out. A missing key leaves out untouched and
// reports found=false.
func loadJSON(kv storage.KV, key string, out interface{}) (bool, error) {
	raw, found, err := kv.Get(key)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, models.NewInternalError(err)
	}
	return true, nil
}

func saveJSON(kv storage.KV, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := kv.Set(key, raw); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
