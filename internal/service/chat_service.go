// Package service provides the store's business logic (chats, auth, users,
// reply suggestions). All state mutation flows through these services; the
// presentation layer holds only references to them and renders the results.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parley/internal/models"
	"parley/internal/repository"

	"github.com/google/uuid"
)

// ChatService owns the chat and message collections and enforces the
// direct-chat request lifecycle and group membership rules.
type ChatService struct {
	chatRepo repository.ChatRepository
	msgRepo  repository.MessageRepository
	userRepo repository.UserRepository

	// allowRerequest lets a requester re-open a rejected direct chat,
	// returning it to pending.
	allowRerequest bool

	now func() int64
}

// SendMessageInput is the input for sending a message.
type SendMessageInput struct {
	UserID    string
	ChatID    string
	Content   string
	ReplyToID string
}

// CreateGroupInput is the input for creating a group chat.
type CreateGroupInput struct {
	AdminID     string
	Name        string
	AvatarURL   string
	MemberNames []string
}

// NewChatService returns a new ChatService.
func NewChatService(
	chatRepo repository.ChatRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	allowRerequest bool,
) *ChatService {
	return &ChatService{
		chatRepo:       chatRepo,
		msgRepo:        msgRepo,
		userRepo:       userRepo,
		allowRerequest: allowRerequest,
		now:            func() int64 { return time.Now().UnixMilli() },
	}
}

// RequestDirect starts (or returns) the direct chat between requester and
// target. Creation is idempotent: the chat ID is derived from the sorted
// user pair, so a second request from either side returns the existing chat
// with its current status.
func (s *ChatService) RequestDirect(ctx context.Context, requesterID, targetID string) (*models.Chat, error) {
	if requesterID == targetID {
		return nil, models.NewValidationError("Cannot start a chat with yourself")
	}
	requester, err := s.userRepo.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	chatID := models.DirectChatID(requesterID, targetID)
	existing, err := s.chatRepo.GetByID(ctx, chatID)
	if err == nil {
		if s.allowRerequest && existing.BlockedBy == "" &&
			existing.Request.State == models.RequestRejected && existing.Request.UserID == targetID {
			existing.Request = models.DirectRequest{State: models.RequestPending, UserID: targetID}
			existing.RequestTimestamp = s.now()
			existing.LastReadBy[requesterID] = s.now()
			if saveErr := s.chatRepo.Save(ctx, existing); saveErr != nil {
				return nil, saveErr
			}
		}
		return existing, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	now := s.now()
	chat := &models.Chat{
		ID:               chatID,
		Type:             models.ChatTypeDirect,
		Participants:     []models.User{requester.Profile, target.Profile},
		Request:          models.DirectRequest{State: models.RequestPending, UserID: targetID},
		RequestTimestamp: now,
		LastReadBy:       map[string]int64{requesterID: now, targetID: 0},
		ClearedAt:        map[string]int64{requesterID: 0, targetID: 0},
	}
	if err := s.chatRepo.Save(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// AcceptRequest accepts a pending direct-chat request. Only the user the
// request is addressed to may accept.
func (s *ChatService) AcceptRequest(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.pendingChatFor(ctx, userID, chatID, "accept")
	if err != nil {
		return nil, err
	}

	chat.Request = models.DirectRequest{State: models.RequestNone}
	notice, err := s.postSystemMessage(ctx, chat, "Chat request accepted")
	if err != nil {
		return nil, err
	}
	chat.LastMessage = notice.Content
	chat.LastMessageTime = notice.Timestamp
	chat.LastReadBy[userID] = s.now()
	if err := s.chatRepo.Save(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// RejectRequest rejects a pending direct-chat request. Only the user the
// request is addressed to may reject. The chat is kept, marked rejected, so
// the requester still sees it and can delete it.
func (s *ChatService) RejectRequest(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.pendingChatFor(ctx, userID, chatID, "reject")
	if err != nil {
		return nil, err
	}

	chat.Request = models.DirectRequest{State: models.RequestRejected, UserID: userID}
	if err := s.chatRepo.Save(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) pendingChatFor(ctx context.Context, userID, chatID, verb string) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Type != models.ChatTypeDirect {
		return nil, models.NewValidationError("Group chats have no request flow")
	}
	if chat.Request.State != models.RequestPending {
		return nil, models.NewValidationError("Chat request is not pending")
	}
	if chat.Request.UserID != userID {
		return nil, models.NewUnauthorizedError(fmt.Sprintf("Only the requested user can %s", verb))
	}
	return chat, nil
}

// Block sets the block flag on a direct chat. Either participant may block;
// the flag records who, because only the blocker may clear it.
func (s *ChatService) Block(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.directChatWithParticipant(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.BlockedBy == userID {
		return chat, nil
	}
	if chat.BlockedBy != "" {
		return nil, models.NewConflictError("Chat is already blocked by the other participant")
	}
	chat.BlockedBy = userID
	if err := s.chatRepo.Save(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// Unblock clears the block flag. Only the user who set it may clear it.
func (s *ChatService) Unblock(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.directChatWithParticipant(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.BlockedBy == "" {
		return nil, models.NewValidationError("Chat is not blocked")
	}
	if chat.BlockedBy != userID {
		return nil, models.NewUnauthorizedError("Only the user who blocked can unblock")
	}
	chat.BlockedBy = ""
	if err := s.chatRepo.Save(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) directChatWithParticipant(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Type != models.ChatTypeDirect {
		return nil, models.NewValidationError("Operation only applies to direct chats")
	}
	if !chat.IsParticipant(userID) {
		return nil, models.NewUnauthorizedError("You are not a participant of this chat")
	}
	return chat, nil
}

// SendMessage appends a message to a chat after checking eligibility. For
// direct chats sending is refused while the chat is blocked (by either
// side), pending, or rejected. The sender's read mark advances with the
// message so their own unread count stays at zero.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Message content is required")
	}

	chat, err := s.chatRepo.GetByID(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(in.UserID) {
		return nil, models.NewUnauthorizedError("You are not a participant of this chat")
	}
	if chat.Type == models.ChatTypeDirect {
		switch chat.Status() {
		case models.StatusBlocked:
			return nil, models.NewForbiddenError("Cannot message a blocked contact")
		case models.StatusPending:
			return nil, models.NewForbiddenError("Chat request has not been accepted yet")
		case models.StatusRejected:
			return nil, models.NewForbiddenError("Chat request was rejected")
		}
	}

	senderName := in.UserID
	for _, p := range chat.Participants {
		if p.ID == in.UserID {
			senderName = p.Name
			break
		}
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		ChatID:     chat.ID,
		SenderID:   in.UserID,
		SenderName: senderName,
		Content:    content,
		Timestamp:  s.now(),
	}
	if in.ReplyToID != "" {
		quoted, err := s.findMessage(ctx, chat.ID, in.ReplyToID)
		if err != nil {
			return nil, err
		}
		msg.ReplyToID = quoted.ID
		msg.ReplyToSender = quoted.SenderName
		msg.ReplyToContent = quoted.Content
	}

	if err := s.msgRepo.Append(ctx, msg); err != nil {
		return nil, err
	}
	chat.LastMessage = msg.Content
	chat.LastMessageTime = msg.Timestamp
	chat.LastReadBy[in.UserID] = msg.Timestamp
	if err := s.chatRepo.Save(ctx, chat); err != nil {
		return nil, err
	}
	return msg, nil
}

// EditMessage replaces a message's content. Only the sender may edit, and
// only while they are still a participant of the chat.
func (s *ChatService) EditMessage(ctx context.Context, userID, chatID, messageID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(userID) {
		return nil, models.NewUnauthorizedError("You are not a participant of this chat")
	}
	msg, err := s.findMessage(ctx, chatID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, models.NewUnauthorizedError("You can only edit your own messages")
	}

	msg.Content = content
	msg.IsEdited = true
	msg.Timestamp = s.now()
	if err := s.msgRepo.Update(ctx, msg); err != nil {
		return nil, err
	}

	// Keep the chat preview in sync when the newest message was edited.
	if err := s.refreshLastMessage(ctx, chatID); err != nil {
		return nil, err
	}
	return msg, nil
}

// DeleteMessage removes a message. Only the sender may delete, and only
// while they are still a participant of the chat.
func (s *ChatService) DeleteMessage(ctx context.Context, userID, chatID, messageID string) error {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsParticipant(userID) {
		return models.NewUnauthorizedError("You are not a participant of this chat")
	}
	msg, err := s.findMessage(ctx, chatID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return models.NewUnauthorizedError("You can only delete your own messages")
	}
	if err := s.msgRepo.Delete(ctx, chatID, messageID); err != nil {
		return err
	}
	return s.refreshLastMessage(ctx, chatID)
}

func (s *ChatService) refreshLastMessage(ctx context.Context, chatID string) error {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	msgs, err := s.msgRepo.ListByChat(ctx, chatID)
	if err != nil {
		return err
	}
	chat.LastMessage = ""
	chat.LastMessageTime = 0
	for _, m := range msgs {
		if m.Timestamp >= chat.LastMessageTime {
			chat.LastMessage = m.Content
			chat.LastMessageTime = m.Timestamp
		}
	}
	return s.chatRepo.Save(ctx, chat)
}

func (s *ChatService) findMessage(ctx context.Context, chatID, messageID string) (*models.Message, error) {
	msgs, err := s.msgRepo.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].ID == messageID {
			return &msgs[i], nil
		}
	}
	return nil, models.NewNotFoundError("Message", messageID)
}

// OpenChat marks the chat read for the user. The unread count is derived
// from the read mark, so opening resets it to zero immediately.
func (s *ChatService) OpenChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(userID) {
		return nil, models.NewUnauthorizedError("You are not a participant of this chat")
	}
	chat.LastReadBy[userID] = s.now()
	if err := s.chatRepo.Save(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// ClearMessages hides the chat's history for the user by advancing their
// clear point. The other participants keep their history.
func (s *ChatService) ClearMessages(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(userID) {
		return nil, models.NewUnauthorizedError("You are not a participant of this chat")
	}
	now := s.now()
	chat.ClearedAt[userID] = now
	chat.LastReadBy[userID] = now
	if err := s.chatRepo.Save(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// Messages returns the chat's messages visible to the user, honoring their
// clear point.
func (s *ChatService) Messages(ctx context.Context, userID, chatID string) ([]models.Message, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(userID) {
		return nil, models.NewUnauthorizedError("You are not a participant of this chat")
	}
	msgs, err := s.msgRepo.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	cleared := chat.ClearedAt[userID]
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Timestamp > cleared {
			out = append(out, m)
		}
	}
	return out, nil
}

// UnreadCount derives the user's unread count for the chat from the raw
// message list.
func (s *ChatService) UnreadCount(ctx context.Context, userID, chatID string) (int, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return 0, err
	}
	msgs, err := s.msgRepo.ListByChat(ctx, chatID)
	if err != nil {
		return 0, err
	}
	return chat.UnreadCount(msgs, userID), nil
}

// ListChats returns every chat the user participates in.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	return s.chatRepo.ListForUser(ctx, userID)
}

// DeleteChat permanently removes a chat and all of its messages. Direct
// chats may be deleted by either participant; groups only by their admin.
func (s *ChatService) DeleteChat(ctx context.Context, userID, chatID string) error {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsParticipant(userID) {
		return models.NewUnauthorizedError("You are not a participant of this chat")
	}
	if chat.Type == models.ChatTypeGroup && chat.CreatedByUserID != userID {
		return models.NewUnauthorizedError("Only the group admin can delete the group")
	}
	if err := s.msgRepo.DeleteAllForChat(ctx, chatID); err != nil {
		return err
	}
	return s.chatRepo.Delete(ctx, chatID)
}

func (s *ChatService) postSystemMessage(ctx context.Context, chat *models.Chat, content string) (*models.Message, error) {
	msg := &models.Message{
		ID:         uuid.NewString(),
		ChatID:     chat.ID,
		SenderID:   models.SystemSenderID,
		SenderName: models.SystemSenderID,
		Content:    content,
		Timestamp:  s.now(),
	}
	if err := s.msgRepo.Append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func isNotFound(err error) bool {
	appErr, ok := err.(*models.AppError)
	return ok && appErr.Code == "NOT_FOUND"
}
