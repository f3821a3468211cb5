package service

import (
	"context"
	"fmt"
	"strings"

	"parley/internal/models"

	"github.com/google/uuid"
)

// CreateGroup creates a group chat. Every candidate name is validated before
// anything is written, and all invalid candidates are reported together in a
// single MemberValidationError rather than one per attempt.
func (s *ChatService) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Chat, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Group name is required")
	}
	admin, err := s.userRepo.GetByID(ctx, in.AdminID)
	if err != nil {
		return nil, err
	}

	members := []models.User{admin.Profile}
	var failures []models.MemberFailure
	for _, candidate := range in.MemberNames {
		profile, failure := s.validateCandidate(ctx, in.AdminID, candidate, members)
		if failure != nil {
			failures = append(failures, *failure)
			continue
		}
		members = append(members, *profile)
	}
	if len(failures) > 0 {
		return nil, &models.MemberValidationError{Failures: failures}
	}
	if len(members) < 2 {
		return nil, models.NewValidationError("A group needs at least one other member")
	}

	now := s.now()
	chat := &models.Chat{
		ID:              "group_" + uuid.NewString(),
		Type:            models.ChatTypeGroup,
		Participants:    members,
		Name:            name,
		AvatarURL:       in.AvatarURL,
		Request:         models.DirectRequest{State: models.RequestNone},
		CreatedByUserID: in.AdminID,
		LastReadBy:      map[string]int64{},
		ClearedAt:       map[string]int64{},
	}
	for _, m := range members {
		chat.LastReadBy[m.ID] = 0
		chat.ClearedAt[m.ID] = 0
	}
	chat.LastReadBy[in.AdminID] = now

	if err := s.chatRepo.Save(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// AddMember adds a user to a group. Only the admin may add, and only users
// the admin has an active direct chat with are eligible.
func (s *ChatService) AddMember(ctx context.Context, adminID, chatID, candidate string) (*models.Chat, error) {
	chat, err := s.groupChatFor(ctx, adminID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.CreatedByUserID != adminID {
		return nil, models.NewUnauthorizedError("Only the group admin can add members")
	}

	profile, failure := s.validateCandidate(ctx, adminID, candidate, chat.Participants)
	if failure != nil {
		return nil, &models.MemberValidationError{Failures: []models.MemberFailure{*failure}}
	}

	chat.Participants = append(chat.Participants, *profile)
	chat.LastReadBy[profile.ID] = 0
	chat.ClearedAt[profile.ID] = 0
	if err := s.noticeAndSave(ctx, chat, fmt.Sprintf("%s was added to the group", profile.Name)); err != nil {
		return nil, err
	}
	return chat, nil
}

// RemoveMember removes a member from a group. Only the admin may remove,
// and not themselves (the admin leaves like anyone else).
func (s *ChatService) RemoveMember(ctx context.Context, adminID, chatID, memberID string) (*models.Chat, error) {
	chat, err := s.groupChatFor(ctx, adminID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.CreatedByUserID != adminID {
		return nil, models.NewUnauthorizedError("Only the group admin can remove members")
	}
	if memberID == adminID {
		return nil, models.NewValidationError("The admin cannot remove themselves; leave the group instead")
	}

	removed := s.dropParticipant(chat, memberID)
	if removed == nil {
		return nil, models.NewNotFoundError("Member", memberID)
	}
	if err := s.noticeAndSave(ctx, chat, fmt.Sprintf("%s was removed from the group", removed.Name)); err != nil {
		return nil, err
	}
	return chat, nil
}

// LeaveGroup removes the caller from a group. When the last member leaves,
// the group and its messages are deleted entirely; otherwise a system
// notice records the departure.
func (s *ChatService) LeaveGroup(ctx context.Context, userID, chatID string) error {
	chat, err := s.groupChatFor(ctx, userID, chatID)
	if err != nil {
		return err
	}

	left := s.dropParticipant(chat, userID)
	if left == nil {
		return models.NewNotFoundError("Member", userID)
	}
	if len(chat.Participants) == 0 {
		if err := s.msgRepo.DeleteAllForChat(ctx, chatID); err != nil {
			return err
		}
		return s.chatRepo.Delete(ctx, chatID)
	}
	return s.noticeAndSave(ctx, chat, fmt.Sprintf("%s left the group", left.Name))
}

func (s *ChatService) groupChatFor(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Type != models.ChatTypeGroup {
		return nil, models.NewValidationError("Operation only applies to group chats")
	}
	if !chat.IsParticipant(userID) {
		return nil, models.NewUnauthorizedError("You are not a member of this group")
	}
	return chat, nil
}

// dropParticipant removes userID from the chat's participants and read maps,
// returning the removed profile or nil.
func (s *ChatService) dropParticipant(chat *models.Chat, userID string) *models.User {
	for i := range chat.Participants {
		if chat.Participants[i].ID == userID {
			removed := chat.Participants[i]
			chat.Participants = append(chat.Participants[:i], chat.Participants[i+1:]...)
			delete(chat.LastReadBy, userID)
			delete(chat.ClearedAt, userID)
			return &removed
		}
	}
	return nil
}

func (s *ChatService) noticeAndSave(ctx context.Context, chat *models.Chat, content string) error {
	notice, err := s.postSystemMessage(ctx, chat, content)
	if err != nil {
		return err
	}
	chat.LastMessage = notice.Content
	chat.LastMessageTime = notice.Timestamp
	return s.chatRepo.Save(ctx, chat)
}

// validateCandidate applies the group-membership gate for one candidate
// name: the candidate must resolve in the directory, must not already be a
// member, and must have an active (accepted, unblocked, unrejected) direct
// chat with the admin.
func (s *ChatService) validateCandidate(ctx context.Context, adminID, candidate string, current []models.User) (*models.User, *models.MemberFailure) {
	name := strings.TrimSpace(candidate)
	if name == "" {
		return nil, &models.MemberFailure{Name: candidate, Reason: "empty name"}
	}

	reg, err := s.userRepo.FindByNameOrUsername(ctx, name)
	if err != nil {
		return nil, &models.MemberFailure{Name: name, Reason: "user not found"}
	}
	for _, p := range current {
		if p.ID == reg.Profile.ID {
			return nil, &models.MemberFailure{Name: name, Reason: "already a member"}
		}
	}

	direct, err := s.chatRepo.GetByID(ctx, models.DirectChatID(adminID, reg.Profile.ID))
	if err != nil {
		return nil, &models.MemberFailure{Name: name, Reason: "must start a direct chat and have it accepted first"}
	}
	switch direct.Status() {
	case models.StatusBlocked:
		return nil, &models.MemberFailure{Name: name, Reason: "chat is blocked"}
	case models.StatusPending:
		return nil, &models.MemberFailure{Name: name, Reason: "chat request is still pending"}
	case models.StatusRejected:
		return nil, &models.MemberFailure{Name: name, Reason: "chat request was rejected"}
	}
	profile := reg.Profile
	return &profile, nil
}
