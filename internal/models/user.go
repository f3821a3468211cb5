// Package models contains data structures for the application's domain models.
package models

import "strings"

// User is the public profile referenced by chats and messages. ID is derived
// from the username at registration and never changes; Name, AvatarURL and
// Status may be edited and are denormalized into chats and messages.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Status    string `json:"status"`
}

// RegisteredUser is an account in the local directory. Username is unique
// case-insensitively.
type RegisteredUser struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Email        string `json:"email"`
	Profile      User   `json:"profile"`
}

// DeriveUserID maps a username to its immutable user ID. The mapping is
// deterministic: lowercase, with interior whitespace collapsed to a single
// underscore. Uniqueness follows from case-insensitive username uniqueness.
func DeriveUserID(username string) string {
	id := strings.ToLower(strings.TrimSpace(username))
	return strings.Join(strings.Fields(id), "_")
}
