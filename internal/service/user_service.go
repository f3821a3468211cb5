package service

import (
	"context"

	"parley/internal/models"
	"parley/internal/repository"
	"parley/internal/validation"
)

// UserService manages profile edits and their propagation into the
// denormalized copies held by chats and messages.
type UserService struct {
	userRepo repository.UserRepository
	chatRepo repository.ChatRepository
	msgRepo  repository.MessageRepository
}

// UpdateProfileInput is the input for a profile edit. Empty fields are left
// unchanged.
type UpdateProfileInput struct {
	UserID    string
	Name      string
	AvatarURL string
	Status    string
}

// NewUserService returns a new UserService.
func NewUserService(
	userRepo repository.UserRepository,
	chatRepo repository.ChatRepository,
	msgRepo repository.MessageRepository,
) *UserService {
	return &UserService{userRepo: userRepo, chatRepo: chatRepo, msgRepo: msgRepo}
}

// ListUsers returns the registered-user directory.
func (s *UserService) ListUsers(ctx context.Context) ([]models.RegisteredUser, error) {
	return s.userRepo.List(ctx)
}

// GetUserByID returns one registered user.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.RegisteredUser, error) {
	return s.userRepo.GetByID(ctx, id)
}

// UpdateProfile edits the user's display name, avatar or status and cascades
// the change into every denormalized copy: the registered-user record, each
// chat's participant entry, each message's sender name, and the current-user
// key. All collections are rewritten in this one call; nothing is deferred.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		if err := validation.ValidateDisplayName(in.Name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Profile.Name = in.Name
	}
	if in.AvatarURL != "" {
		user.Profile.AvatarURL = in.AvatarURL
	}
	if in.Status != "" {
		user.Profile.Status = in.Status
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	chats, err := s.chatRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		for j := range chats[i].Participants {
			if chats[i].Participants[j].ID == in.UserID {
				chats[i].Participants[j] = user.Profile
			}
		}
	}
	if err := s.chatRepo.ReplaceAll(ctx, chats); err != nil {
		return nil, err
	}

	// Messages outlive membership: a user who left a group keeps their old
	// messages there, so the sender-name rewrite visits every chat.
	for i := range chats {
		msgs, err := s.msgRepo.ListByChat(ctx, chats[i].ID)
		if err != nil {
			return nil, err
		}
		changed := false
		for j := range msgs {
			if msgs[j].SenderID == in.UserID {
				msgs[j].SenderName = user.Profile.Name
				changed = true
			}
		}
		if changed {
			if err := s.msgRepo.ReplaceAllForChat(ctx, chats[i].ID, msgs); err != nil {
				return nil, err
			}
		}
	}

	current, err := s.userRepo.Current(ctx)
	if err != nil {
		return nil, err
	}
	if current != nil && current.ID == in.UserID {
		if err := s.userRepo.SetCurrent(ctx, &user.Profile); err != nil {
			return nil, err
		}
	}

	return &user.Profile, nil
}
