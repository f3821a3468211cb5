package models

// SystemSenderID is the reserved sender for store-generated notices
// (request accepted, member left, member removed).
const SystemSenderID = "system"

// Message is a single chat message. SenderName is denormalized and kept in
// sync on profile edits. Only Content, IsEdited and Timestamp change after
// creation, and only through an edit by the sender.
type Message struct {
	ID         string `json:"id"`
	ChatID     string `json:"chat_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	Timestamp  int64  `json:"timestamp"`
	IsEdited   bool   `json:"is_edited,omitempty"`

	// Reply context, denormalized from the quoted message at send time.
	ReplyToID      string `json:"reply_to_id,omitempty"`
	ReplyToSender  string `json:"reply_to_sender,omitempty"`
	ReplyToContent string `json:"reply_to_content,omitempty"`
}

// IsSystem reports whether the message is a store-generated notice.
func (m *Message) IsSystem() bool {
	return m.SenderID == SystemSenderID
}
