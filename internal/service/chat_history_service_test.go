package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aquanova-auth/internal/domain"
)

func newChatFixture(t *testing.T) (*ChatHistoryService, *mockChatHistoryRepo, *time.Time) {
	t.Helper()
	repo := newMockChatHistoryRepo()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewChatHistoryService(zap.NewNop(), repo)
	svc.now = func() time.Time { return now }
	return svc, repo, &now
}

func tankMessages() []domain.ChatMessage {
	return []domain.ChatMessage{{Role: "user", Content: "How often should I change water?"}}
}

func TestChatHistoryCreateAndGet(t *testing.T) {
	svc, _, _ := newChatFixture(t)
	ctx := context.Background()

	conv, err := svc.Create(ctx, "acc-1", ConversationInput{Title: "  Water changes ", Messages: tankMessages()})
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "Water changes", conv.Title)
	assert.Equal(t, conv.CreatedAt, conv.UpdatedAt)

	got, err := svc.Get(ctx, "acc-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, tankMessages(), got.Messages)
}

func TestChatHistoryCreateRequiresTitleAndMessages(t *testing.T) {
	svc, repo, _ := newChatFixture(t)
	ctx := context.Background()

	cases := map[string]ConversationInput{
		"missing title":    {Messages: tankMessages()},
		"blank title":      {Title: "   ", Messages: tankMessages()},
		"missing messages": {Title: "Water changes"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, "acc-1", input)
			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Contains(t, err.Error(), "Title and messages are required")
		})
	}
	assert.Empty(t, repo.convs)

	_, err := svc.Create(ctx, "acc-1", ConversationInput{Title: "Empty", Messages: []domain.ChatMessage{}})
	assert.NoError(t, err, "an empty message list is still a list")
}

func TestChatHistoryScopedByAccount(t *testing.T) {
	svc, _, _ := newChatFixture(t)
	ctx := context.Background()

	conv, err := svc.Create(ctx, "acc-1", ConversationInput{Title: "Mine", Messages: tankMessages()})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "acc-2", conv.ID)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	assert.ErrorIs(t, svc.Update(ctx, "acc-2", conv.ID, ConversationInput{Title: "Theirs", Messages: tankMessages()}), domain.ErrConversationNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "acc-2", conv.ID), domain.ErrConversationNotFound)

	list, err := svc.List(ctx, "acc-2")
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := svc.Get(ctx, "acc-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Title)
}

func TestChatHistoryUpdateMovesConversationToTop(t *testing.T) {
	svc, _, now := newChatFixture(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "acc-1", ConversationInput{Title: "First", Messages: tankMessages()})
	require.NoError(t, err)
	*now = now.Add(time.Minute)
	second, err := svc.Create(ctx, "acc-1", ConversationInput{Title: "Second", Messages: tankMessages()})
	require.NoError(t, err)

	list, err := svc.List(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	*now = now.Add(time.Minute)
	require.NoError(t, svc.Update(ctx, "acc-1", first.ID, ConversationInput{Title: "First, edited", Messages: []domain.ChatMessage{}}))

	list, err = svc.List(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, "First, edited", list[0].Title)
}

func TestChatHistoryMalformedIDIsNotFound(t *testing.T) {
	svc, repo, _ := newChatFixture(t)
	repo.err = errors.New("invalid input syntax for type uuid")
	ctx := context.Background()

	_, err := svc.Get(ctx, "acc-1", "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "acc-1", "42"), domain.ErrConversationNotFound)
	assert.ErrorIs(t, svc.Update(ctx, "acc-1", "42", ConversationInput{Title: "x", Messages: tankMessages()}), domain.ErrConversationNotFound)
}

func TestChatHistoryStorageErrors(t *testing.T) {
	svc, repo, _ := newChatFixture(t)
	repo.err = errors.New("connection reset")
	ctx := context.Background()

	_, err := svc.List(ctx, "acc-1")
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
	_, err = svc.Create(ctx, "acc-1", ConversationInput{Title: "x", Messages: tankMessages()})
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
	_, err = svc.Get(ctx, "acc-1", "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d")
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
}
