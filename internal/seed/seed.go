// Package seed creates demo accounts and conversations in a chosen storage
// backend. It exists for development only: the application simulates its
// users with local mock accounts, and this is what fills them in.
package seed

import (
	"context"
	"fmt"

	"parley/internal/models"
	"parley/internal/repository"
	"parley/internal/service"
)

// Options controls what gets seeded.
type Options struct {
	// ExtraUsers is how many random accounts to create beyond the fixed
	// demo pair.
	ExtraUsers int
	// Password is the shared plaintext password for every seeded account.
	Password string
}

// DefaultOptions seeds a small, readable demo set.
func DefaultOptions() Options {
	return Options{ExtraUsers: 3, Password: "correct-horse-battery"}
}

// Run populates the store: a fixed alice/bob pair with an accepted chat and
// some traffic, one pending request, and a group, plus random extras.
func Run(
	ctx context.Context,
	auth *service.AuthService,
	chats *service.ChatService,
	userRepo repository.UserRepository,
	opts Options,
) error {
	f := NewFactory(auth, opts)

	alice, err := f.CreateUser(ctx, "alice")
	if err != nil {
		return err
	}
	bob, err := f.CreateUser(ctx, "bob")
	if err != nil {
		return err
	}
	extras := make([]*models.RegisteredUser, 0, opts.ExtraUsers)
	for i := 0; i < opts.ExtraUsers; i++ {
		u, err := f.CreateRandomUser(ctx)
		if err != nil {
			return err
		}
		extras = append(extras, u)
	}

	// alice <-> bob: accepted, with a short exchange.
	chat, err := chats.RequestDirect(ctx, alice.Profile.ID, bob.Profile.ID)
	if err != nil {
		return err
	}
	if _, err := chats.AcceptRequest(ctx, bob.Profile.ID, chat.ID); err != nil {
		return err
	}
	for i, line := range []string{"hey bob!", "hey alice, what's up?", "not much, coffee later?"} {
		sender := alice.Profile.ID
		if i%2 == 1 {
			sender = bob.Profile.ID
		}
		if _, err := chats.SendMessage(ctx, service.SendMessageInput{
			UserID:  sender,
			ChatID:  chat.ID,
			Content: line,
		}); err != nil {
			return err
		}
	}

	// Extras: first one stays pending towards alice, the rest get accepted
	// so a group is possible.
	groupMembers := []string{bob.Username}
	for i, extra := range extras {
		c, err := chats.RequestDirect(ctx, alice.Profile.ID, extra.Profile.ID)
		if err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		if _, err := chats.AcceptRequest(ctx, extra.Profile.ID, c.ID); err != nil {
			return err
		}
		groupMembers = append(groupMembers, extra.Username)
	}

	if len(groupMembers) > 1 {
		group, err := chats.CreateGroup(ctx, service.CreateGroupInput{
			AdminID:     alice.Profile.ID,
			Name:        "demo crew",
			MemberNames: groupMembers,
		})
		if err != nil {
			return err
		}
		if _, err := chats.SendMessage(ctx, service.SendMessageInput{
			UserID:  alice.Profile.ID,
			ChatID:  group.ID,
			Content: "welcome everyone",
		}); err != nil {
			return err
		}
	}

	// Leave the demo signed in as alice.
	if err := userRepo.SetCurrent(ctx, &alice.Profile); err != nil {
		return err
	}
	fmt.Printf("seeded %d users\n", 2+len(extras))
	return nil
}
