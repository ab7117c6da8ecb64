package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRollsBack(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	err := repos.Transaction(func(tx *repository.Repositories) error {
		require.NoError(t, tx.Message.Create(ctx, &model.Message{Uuid: 1, ConversationId: "C1", SenderId: "P1"}))
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = repos.Message.FindByUuid(ctx, 1)
	require.True(t, errorx.IsNotFound(err))
}

func TestRollbackKeepsWritesOutsideTransaction(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- repos.Transaction(func(tx *repository.Repositories) error {
			require.NoError(t, tx.Message.Create(ctx, &model.Message{Uuid: 9, ConversationId: "C1", SenderId: "A"}))
			close(entered)
			<-release
			return errors.New("quota exceeded")
		})
	}()
	<-entered

	claimed := make(chan bool, 1)
	go func() {
		ok, err := repos.Delivery.Claim(ctx, &model.MessageDelivery{RootMessageId: 7, RecipientId: "B", MessageId: 7})
		assert.NoError(t, err)
		claimed <- ok
	}()

	// 事务未结束前，事务外的写入必须等待
	select {
	case <-claimed:
		t.Fatal("claim finished while the transaction was still open")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	require.Error(t, <-txDone)
	require.True(t, <-claimed)

	notified, err := repos.Delivery.NotifiedRecipients(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, notified)

	_, err = repos.Message.FindByUuid(ctx, 9)
	require.True(t, errorx.IsNotFound(err))
}

func TestNestedTransactionReusesOuter(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()

	err := repos.Transaction(func(tx *repository.Repositories) error {
		return tx.Transaction(func(inner *repository.Repositories) error {
			return inner.Message.Create(ctx, &model.Message{Uuid: 3, ConversationId: "C1", SenderId: "A"})
		})
	})
	require.NoError(t, err)
	_, err = repos.Message.FindByUuid(ctx, 3)
	require.NoError(t, err)
}

func TestRelationshipBothDirectionsConflict(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	require.NoError(t, repos.Relationship.Create(ctx, &model.Relationship{Uuid: "R1", SenderId: "A", ReceiverId: "B", Status: model.RelationshipPending}))
	err := repos.Relationship.Create(ctx, &model.Relationship{Uuid: "R2", SenderId: "B", ReceiverId: "A", Status: model.RelationshipPending})
	require.True(t, errorx.IsConflict(err))
	require.Equal(t, 1, store.RelationshipCount())

	ok, err := repos.Relationship.CompareAndSetStatus(ctx, "R1", model.RelationshipAccepted, model.RelationshipBlocked)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPrivateConversationPairUnique(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()
	key := model.PairKey("A", "B")

	require.NoError(t, repos.Conversation.Create(ctx, &model.Conversation{Uuid: "C1", RoomType: model.RoomPrivate, PairKey: &key}, []string{"A", "B"}))
	err := repos.Conversation.Create(ctx, &model.Conversation{Uuid: "C2", RoomType: model.RoomPrivate, PairKey: &key}, []string{"B", "A"})
	require.True(t, errorx.IsConflict(err))

	found, err := repos.Conversation.FindPrivateByPair(ctx, "B", "A")
	require.NoError(t, err)
	require.Equal(t, "C1", found.Uuid)
	require.Equal(t, []string{"A", "B"}, found.Profiles)
}
