package service

import (
	"context"
	"testing"

	"parley/internal/models"
	"parley/internal/repository"
	"parley/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock returns a strictly increasing millisecond clock so read marks
// and message timestamps never collide within a test.
func testClock() func() int64 {
	var t int64 = 1_700_000_000_000
	return func() int64 {
		t++
		return t
	}
}

type testKit struct {
	users repository.UserRepository
	chats repository.ChatRepository
	msgs  repository.MessageRepository
	chat  *ChatService
	user  *UserService
}

func newTestKit(t *testing.T, usernames ...string) *testKit {
	t.Helper()
	kv := storage.NewMemory()
	users := repository.NewUserRepository(kv)
	chats := repository.NewChatRepository(kv)
	msgs := repository.NewMessageRepository(kv)

	for _, name := range usernames {
		reg := &models.RegisteredUser{
			Username: name,
			Email:    name + "@example.com",
			Profile: models.User{
				ID:   models.DeriveUserID(name),
				Name: name,
			},
		}
		require.NoError(t, users.Create(context.Background(), reg))
	}

	chatSvc := NewChatService(chats, msgs, users, false)
	chatSvc.now = testClock()
	return &testKit{
		users: users,
		chats: chats,
		msgs:  msgs,
		chat:  chatSvc,
		user:  NewUserService(users, chats, msgs),
	}
}

// activeDirect requests a chat from a to b, accepts it as b, and marks it
// read for both so later unread assertions start from zero.
func (k *testKit) activeDirect(t *testing.T, a, b string) *models.Chat {
	t.Helper()
	ctx := context.Background()
	chat, err := k.chat.RequestDirect(ctx, a, b)
	require.NoError(t, err)
	_, err = k.chat.AcceptRequest(ctx, b, chat.ID)
	require.NoError(t, err)
	_, err = k.chat.OpenChat(ctx, a, chat.ID)
	require.NoError(t, err)
	chat, err = k.chat.OpenChat(ctx, b, chat.ID)
	require.NoError(t, err)
	return chat
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestChatService_RequestDirect_Idempotent(t *testing.T) {
	kit := newTestKit(t, "alice", "bob")
	ctx := context.Background()

	first, err := kit.chat.RequestDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "direct_alice_bob", first.ID)
	assert.Equal(t, models.StatusPending, first.Status())
	assert.Equal(t, "bob", first.Request.UserID)

	// The reverse request resolves to the same chat and creates nothing.
	second, err := kit.chat.RequestDirect(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := kit.chats.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestChatService_RequestDirect_Validation(t *testing.T) {
	kit := newTestKit(t, "alice")
	ctx := context.Background()

	t.Run("Self target", func(t *testing.T) {
		_, err := kit.chat.RequestDirect(ctx, "alice", "alice")
		assert.Equal(t, "VALIDATION_ERROR", appCode(t, err))
	})

	t.Run("Unknown target", func(t *testing.T) {
		_, err := kit.chat.RequestDirect(ctx, "alice", "mallory")
		assert.Equal(t, "NOT_FOUND", appCode(t, err))
	})
}

func TestChatService_AcceptRequest(t *testing.T) {
	kit := newTestKit(t, "alice", "bob")
	ctx := context.Background()

	chat, err := kit.chat.RequestDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	t.Run("Requester cannot accept", func(t *testing.T) {
		_, err := kit.chat.AcceptRequest(ctx, "alice", chat.ID)
		assert.Equal(t, "UNAUTHORIZED", appCode(t, err))
	})

	t.Run("Target accepts", func(t *testing.T) {
		accepted, err := kit.chat.AcceptRequest(ctx, "bob", chat.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, accepted.Status())
		assert.Equal(t, "Chat request accepted", accepted.LastMessage)

		msgs, err := kit.msgs.ListByChat(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.True(t, msgs[0].IsSystem())
	})

	t.Run("Accept twice", func(t *testing.T) {
		_, err := kit.chat.AcceptRequest(ctx, "bob", chat.ID)
		assert.Equal(t, "VALIDATION_ERROR", appCode(t, err))
	})
}

func TestChatService_RejectRequest(t *testing.T) {
	kit := newTestKit(t, "alice", "bob")
	ctx := context.Background()

	chat, err := kit.chat.RequestDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = kit.chat.RejectRequest(ctx, "alice", chat.ID)
	assert.Equal(t, "UNAUTHORIZED", appCode(t, err))

	rejected, err := kit.chat.RejectRequest(ctx, "bob", chat.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status())
	assert.Equal(t, "bob", rejected.Request.UserID)

	// Rejection keeps the chat visible to the requester.
	forAlice, err := kit.chat.ListChats(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, forAlice, 1)

	for _, user := range []string{"alice", "bob"} {
		_, err := kit.chat.SendMessage(ctx, SendMessageInput{UserID: user, ChatID: chat.ID, Content: "hi"})
		assert.Equal(t, "FORBIDDEN", appCode(t, err))
	}
}

func TestChatService_RerequestPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled keeps rejection", func(t *testing.T) {
		kit := newTestKit(t, "alice", "bob")
		chat, err := kit.chat.RequestDirect(ctx, "alice", "bob")
		require.NoError(t, err)
		_, err = kit.chat.RejectRequest(ctx, "bob", chat.ID)
		require.NoError(t, err)

		again, err := kit.chat.RequestDirect(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, again.Status())
	})

	t.Run("Enabled returns to pending", func(t *testing.T) {
		kit := newTestKit(t, "alice", "bob")
		kit.chat.allowRerequest = true
		chat, err := kit.chat.RequestDirect(ctx, "alice", "bob")
		require.NoError(t, err)
		_, err = kit.chat.RejectRequest(ctx, "bob", chat.ID)
		require.NoError(t, err)

		again, err := kit.chat.RequestDirect(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, again.Status())
		assert.Equal(t, "bob", again.Request.UserID)
	})
}

func TestChatService_SendMessage_RequestGating(t *testing.T) {
	kit := newTestKit(t, "alice", "bob")
	ctx := context.Background()

	chat, err := kit.chat.RequestDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	for _, user := range []string{"alice", "bob"} {
		_, err := kit.chat.SendMessage(ctx, SendMessageInput{UserID: user, ChatID: chat.ID, Content: "hi"})
		assert.Equal(t, "FORBIDDEN", appCode(t, err))
	}

	_, err = kit.chat.AcceptRequest(ctx, "bob", chat.ID)
	require.NoError(t, err)

	for _, user := range []string{"alice", "bob"} {
		_, err := kit.chat.SendMessage(ctx, SendMessageInput{UserID: user, ChatID: chat.ID, Content: "hi"})
		assert.NoError(t, err)
	}
}

func TestChatService_BlockUnblock(t *testing.T) {
	kit := newTestKit(t, "alice", "bob")
	ctx := context.Background()
	chat := kit.activeDirect(t, "alice", "bob")

	_, err := kit.chat.Block(ctx, "alice", chat.ID)
	require.NoError(t, err)

	// Blocking gates sending for both sides.
	_, err = kit.chat.SendMessage(ctx, SendMessageInput{UserID: "alice", ChatID: chat.ID, Content: "hi"})
	assert.Equal(t, "FORBIDDEN", appCode(t, err))
	_, err = kit.chat.SendMessage(ctx, SendMessageInput{UserID: "bob", ChatID: chat.ID, Content: "hi"})
	require.Error(t, err)
	assert.Equal(t, "Cannot message a blocked contact", err.(*models.AppError).Message)

	t.Run("Only blocker unblocks", func(t *testing.T) {
		_, err := kit.chat.Unblock(ctx, "bob", chat.ID)
		assert.Equal(t, "UNAUTHORIZED", appCode(t, err))

		_, err = kit.chat.Unblock(ctx, "alice", chat.ID)
		require.NoError(t, err)
		_, err = kit.chat.SendMessage(ctx, SendMessageInput{UserID: "bob", ChatID: chat.ID, Content: "hi"})
		assert.NoError(t, err)
	})

	t.Run("Second blocker conflicts", func(t *testing.T) {
		_, err := kit.chat.Block(ctx, "bob", chat.ID)
		require.NoError(t, err)
		_, err = kit.chat.Block(ctx, "alice", chat.ID)
		assert.Equal(t, "CONFLICT", appCode(t, err))
	})
}

func TestChatService_UnreadDerivation(t *testing.T) {
	kit := newTestKit(t, "alice", "bob")
	ctx := context.Background()
	chat := kit.activeDirect(t, "alice", "bob")

	for _, content := range []string{"one", "two"} {
		_, err := kit.chat.SendMessage(ctx, SendMessageInput{UserID: "bob", ChatID: chat.ID, Content: content})
		require.NoError(t, err)
	}

	unread, err := kit.chat.UnreadCount(ctx, "alice", chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	// The sender's own messages never count as unread for them.
	unread, err = kit.chat.UnreadCount(ctx, "bob", chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	// Opening the chat resets the count immediately.
	_, err = kit.chat.OpenChat(ctx, "alice", chat.ID)
	require.NoError(t, err)
	unread, err = kit.chat.UnreadCount(ctx, "alice", chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	_, err = kit.chat.SendMessage(ctx, SendMessageInput{UserID: "bob", ChatID: chat.ID, Content: "three"})
	require.NoError(t, err)
	unread, err = kit.chat.UnreadCount(ctx, "alice", chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestChatService_ClearMessages(t *testing.T) {
	kit := newTestKit(t, "alice", "bob")
	ctx := context.Background()
	chat := kit.activeDirect(t, "alice", "bob")

	_, err := kit.chat.SendMessage(ctx, SendMessageInput{UserID: "bob", ChatID: chat.ID, Content: "before clear"})
	require.NoError(t, err)

	_, err = kit.chat.ClearMessages(ctx, "alice", chat.ID)
	require.NoError(t, err)

	// Alice's view is empty; bob keeps his history.
	forAlice, err := kit.chat.Messages(ctx, "alice", chat.ID)
	require.NoError(t, err)
	assert.Empty(t, forAlice)

	forBob, err := kit.chat.Messages(ctx, "bob", chat.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, forBob)

	unread, err := kit.chat.UnreadCount(ctx, "alice", chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
}

func TestChatService_EditAndDeleteMessage(t *testing.T) {
	kit := newTestKit(t, "alice", "bob")
	ctx := context.Background()
	chat := kit.activeDirect(t, "alice", "bob")

	msg, err := kit.chat.SendMessage(ctx, SendMessageInput{UserID: "alice", ChatID: chat.ID, Content: "draft"})
	require.NoError(t, err)

	t.Run("Only sender edits", func(t *testing.T) {
		_, err := kit.chat.EditMessage(ctx, "bob", chat.ID, msg.ID, "hijacked")
		assert.Equal(t, "UNAUTHORIZED", appCode(t, err))
	})

	t.Run("Edit updates preview", func(t *testing.T) {
		edited, err := kit.chat.EditMessage(ctx, "alice", chat.ID, msg.ID, "final")
		require.NoError(t, err)
		assert.True(t, edited.IsEdited)

		reloaded, err := kit.chats.GetByID(ctx, chat.ID)
		require.NoError(t, err)
		assert.Equal(t, "final", reloaded.LastMessage)
	})

	t.Run("Delete recomputes preview", func(t *testing.T) {
		require.NoError(t, kit.chat.DeleteMessage(ctx, "alice", chat.ID, msg.ID))

		reloaded, err := kit.chats.GetByID(ctx, chat.ID)
		require.NoError(t, err)
		// The accept notice is all that remains.
		assert.Equal(t, "Chat request accepted", reloaded.LastMessage)
	})
}

func TestChatService_EditAndDeleteMessage_RequireMembership(t *testing.T) {
	kit := newTestKit(t, "alice", "bob", "carol")
	ctx := context.Background()

	kit.activeDirect(t, "alice", "bob")
	kit.activeDirect(t, "alice", "carol")
	group, err := kit.chat.CreateGroup(ctx, CreateGroupInput{
		AdminID:     "alice",
		Name:        "trio",
		MemberNames: []string{"bob", "carol"},
	})
	require.NoError(t, err)

	msg, err := kit.chat.SendMessage(ctx, SendMessageInput{UserID: "carol", ChatID: group.ID, Content: "mine"})
	require.NoError(t, err)
	require.NoError(t, kit.chat.LeaveGroup(ctx, "carol", group.ID))

	// Having left the group, carol can no longer touch her old messages.
	_, err = kit.chat.EditMessage(ctx, "carol", group.ID, msg.ID, "rewritten")
	assert.Equal(t, "UNAUTHORIZED", appCode(t, err))
	err = kit.chat.DeleteMessage(ctx, "carol", group.ID, msg.ID)
	assert.Equal(t, "UNAUTHORIZED", appCode(t, err))

	reloaded, err := kit.msgs.ListByChat(ctx, group.ID)
	require.NoError(t, err)
	kept := false
	for _, m := range reloaded {
		if m.ID == msg.ID {
			kept = true
			assert.Equal(t, "mine", m.Content)
		}
	}
	assert.True(t, kept)
}

func TestChatService_SendMessage_Reply(t *testing.T) {
	kit := newTestKit(t, "alice", "bob")
	ctx := context.Background()
	chat := kit.activeDirect(t, "alice", "bob")

	original, err := kit.chat.SendMessage(ctx, SendMessageInput{UserID: "alice", ChatID: chat.ID, Content: "lunch?"})
	require.NoError(t, err)

	reply, err := kit.chat.SendMessage(ctx, SendMessageInput{
		UserID:    "bob",
		ChatID:    chat.ID,
		Content:   "sure",
		ReplyToID: original.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, original.ID, reply.ReplyToID)
	assert.Equal(t, "alice", reply.ReplyToSender)
	assert.Equal(t, "lunch?", reply.ReplyToContent)

	_, err = kit.chat.SendMessage(ctx, SendMessageInput{
		UserID:    "bob",
		ChatID:    chat.ID,
		Content:   "sure",
		ReplyToID: "missing",
	})
	assert.Equal(t, "NOT_FOUND", appCode(t, err))
}

func TestChatService_DeleteChat(t *testing.T) {
	kit := newTestKit(t, "alice", "bob", "carol")
	ctx := context.Background()
	chat := kit.activeDirect(t, "alice", "bob")

	_, err := kit.chat.SendMessage(ctx, SendMessageInput{UserID: "alice", ChatID: chat.ID, Content: "hi"})
	require.NoError(t, err)

	t.Run("Non participant", func(t *testing.T) {
		err := kit.chat.DeleteChat(ctx, "carol", chat.ID)
		assert.Equal(t, "UNAUTHORIZED", appCode(t, err))
	})

	t.Run("Either participant", func(t *testing.T) {
		require.NoError(t, kit.chat.DeleteChat(ctx, "bob", chat.ID))

		_, err := kit.chats.GetByID(ctx, chat.ID)
		assert.Equal(t, "NOT_FOUND", appCode(t, err))
		msgs, err := kit.msgs.ListByChat(ctx, chat.ID)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}

// The walkthrough from the project brief: register, request, accept, block.
func TestChatService_AliceBobWalkthrough(t *testing.T) {
	kit := newTestKit(t, "alice", "bob")
	ctx := context.Background()

	chat, err := kit.chat.RequestDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, "direct_alice_bob", chat.ID)
	require.Equal(t, "bob", chat.Request.UserID)

	_, err = kit.chat.AcceptRequest(ctx, "bob", chat.ID)
	require.NoError(t, err)
	_, err = kit.chat.SendMessage(ctx, SendMessageInput{UserID: "alice", ChatID: chat.ID, Content: "hi bob"})
	require.NoError(t, err)
	_, err = kit.chat.SendMessage(ctx, SendMessageInput{UserID: "bob", ChatID: chat.ID, Content: "hi alice"})
	require.NoError(t, err)

	_, err = kit.chat.Block(ctx, "alice", chat.ID)
	require.NoError(t, err)
	_, err = kit.chat.SendMessage(ctx, SendMessageInput{UserID: "bob", ChatID: chat.ID, Content: "hello?"})
	require.Error(t, err)
	assert.Equal(t, "Cannot message a blocked contact", err.(*models.AppError).Message)
}

func TestChatService_StatusPrecedence(t *testing.T) {
	kit := newTestKit(t, "alice", "bob")
	ctx := context.Background()

	chat, err := kit.chat.RequestDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	// Blocking while pending: the block overlay wins for presentation and
	// sending, and survives independent of the request state.
	_, err = kit.chat.Block(ctx, "alice", chat.ID)
	require.NoError(t, err)

	reloaded, err := kit.chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBlocked, reloaded.Status())
	assert.Equal(t, models.RequestPending, reloaded.Request.State)
}
