package models

import "sort"

// ChatType distinguishes direct chats from group chats.
type ChatType string

const (
	// ChatTypeDirect is a two-participant chat gated by the request flow.
	ChatTypeDirect ChatType = "direct"
	// ChatTypeGroup is a multi-participant chat owned by its creator.
	ChatTypeGroup ChatType = "group"
)

// RequestState is the request-lifecycle state of a direct chat.
type RequestState string

const (
	// RequestNone means the request flow has concluded (or never applied,
	// as for groups).
	RequestNone RequestState = "none"
	// RequestPending means the chat awaits a decision from Request.UserID.
	RequestPending RequestState = "pending"
	// RequestRejected means Request.UserID declined the chat.
	RequestRejected RequestState = "rejected"
)

// DirectRequest is the tagged request-lifecycle variant for a direct chat.
// UserID is the user the state refers to: the pending approver, or the
// rejecter. Modeling state and actor together keeps pending+rejected
// unrepresentable.
type DirectRequest struct {
	State  RequestState `json:"state"`
	UserID string       `json:"user_id,omitempty"`
}

// ChatStatus is the effective presentation status of a chat. Blocking is an
// overlay independent of the request lifecycle and takes precedence.
type ChatStatus string

const (
	StatusActive   ChatStatus = "active"
	StatusPending  ChatStatus = "pending"
	StatusRejected ChatStatus = "rejected"
	StatusBlocked  ChatStatus = "blocked"
)

// Chat is a conversation between two or more users. Name and AvatarURL are
// only meaningful for groups; for direct chats the UI shows the counterpart's
// profile, which the store keeps denormalized in Participants.
type Chat struct {
	ID               string           `json:"id"`
	Type             ChatType         `json:"type"`
	Participants     []User           `json:"participants"`
	Name             string           `json:"name,omitempty"`
	AvatarURL        string           `json:"avatar_url,omitempty"`
	Request          DirectRequest    `json:"request"`
	BlockedBy        string           `json:"blocked_by,omitempty"`
	RequestTimestamp int64            `json:"request_timestamp,omitempty"`
	LastMessage      string           `json:"last_message,omitempty"`
	LastMessageTime  int64            `json:"last_message_time,omitempty"`
	LastReadBy       map[string]int64 `json:"last_read_by"`
	ClearedAt        map[string]int64 `json:"cleared_at"`
	CreatedByUserID  string           `json:"created_by_user_id,omitempty"`
}

// DirectChatID returns the canonical chat ID for an unordered pair of user
// IDs. Sorting makes creation idempotent: at most one direct chat can exist
// per pair.
func DirectChatID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return "direct_" + ids[0] + "_" + ids[1]
}

// Status resolves the effective status of the chat. Precedence: blocked,
// then pending, then rejected, then active. Groups are always active.
func (c *Chat) Status() ChatStatus {
	if c.Type == ChatTypeGroup {
		return StatusActive
	}
	if c.BlockedBy != "" {
		return StatusBlocked
	}
	switch c.Request.State {
	case RequestPending:
		return StatusPending
	case RequestRejected:
		return StatusRejected
	}
	return StatusActive
}

// IsParticipant reports whether userID is a current participant.
func (c *Chat) IsParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the counterpart of userID in a direct chat, or nil
// if userID is not a participant or the chat is a group.
func (c *Chat) OtherParticipant(userID string) *User {
	if c.Type != ChatTypeDirect {
		return nil
	}
	for i := range c.Participants {
		if c.Participants[i].ID != userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// UnreadCount derives the number of unread messages for userID from the raw
// message list. A message counts when it was sent by someone else after the
// user's last-read mark and after any per-user clear point. Nothing is
// cached; correctness rests on LastReadBy updates alone.
func (c *Chat) UnreadCount(msgs []Message, userID string) int {
	lastRead := c.LastReadBy[userID]
	cleared := c.ClearedAt[userID]
	n := 0
	for _, m := range msgs {
		if m.SenderID == userID {
			continue
		}
		if m.Timestamp > lastRead && m.Timestamp > cleared {
			n++
		}
	}
	return n
}
