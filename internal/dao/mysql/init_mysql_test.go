package mysql

import (
	"context"
	"os"
	"sync"
	"testing"

	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/infrastructure/identity"
	"gated_chat_server/internal/infrastructure/mq"
	"gated_chat_server/internal/model"
	"gated_chat_server/internal/service/fanout"
	"gated_chat_server/internal/service/guard"
	"gated_chat_server/internal/service/message"
	"gated_chat_server/internal/service/relationship"
	"gated_chat_server/pkg/errorx"
	"gated_chat_server/pkg/util/random"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// 需要真实 MySQL：GATED_TEST_MYSQL_DSN="root:pwd@tcp(127.0.0.1:3306)/gated_test?parseTime=True"
func openTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	dsn := os.Getenv("GATED_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("GATED_TEST_MYSQL_DSN not set")
	}
	db, err := Open(dsn)
	require.NoError(t, err)
	return repository.NewRepositories(db)
}

func TestClaimIcebreakerOnlyOnce(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	a, b := random.PrefixedID("P", 10), random.PrefixedID("P", 10)
	key := model.PairKey(a, b)
	conv := &model.Conversation{Uuid: random.PrefixedID("C", 10), RoomType: model.RoomPrivate, PairKey: &key}
	require.NoError(t, repos.Conversation.Create(ctx, conv, []string{a, b}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repos.Conversation.ClaimIcebreaker(ctx, conv.Uuid)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)

	got, err := repos.Conversation.FindByUuid(ctx, conv.Uuid)
	require.NoError(t, err)
	require.Equal(t, 1, got.MessageLimit)
	require.ElementsMatch(t, []string{a, b}, got.Profiles)
}

// 走完整的发送事务：FOR UPDATE 锁会话行后再做破冰计数
func TestConcurrentFirstMessagesClaimQuotaOnce(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	lg := zaptest.NewLogger(t)
	a, b := random.PrefixedID("P", 10), random.PrefixedID("P", 10)
	for _, id := range []string{a, b} {
		require.NoError(t, repos.Profile.Upsert(ctx, &model.Profile{Uuid: id}))
	}
	key := model.PairKey(a, b)
	conv := &model.Conversation{Uuid: random.PrefixedID("C", 10), RoomType: model.RoomPrivate, PairKey: &key}
	require.NoError(t, repos.Conversation.Create(ctx, conv, []string{a, b}))

	queue := mq.NewChannelQueue(64, 1, lg)
	defer queue.Close()
	rel := relationship.NewService(repos, identity.NewFollowDirectory(repos.Follow), lg)
	messages := message.NewService(repos, guard.New(lg), rel, fanout.NewDispatcher(repos, queue, lg), lg)

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		denied   int
	)
	for i := 0; i < n; i++ {
		sender := a
		if i%2 == 1 {
			sender = b
		}
		wg.Add(1)
		go func(sender string) {
			defer wg.Done()
			_, err := messages.Send(ctx, message.SendInput{SenderId: sender, ConversationId: conv.Uuid, Content: "first"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if errorx.IsPermissionDenied(err) {
				denied++
			} else {
				t.Errorf("unexpected send error: %v", err)
			}
		}(sender)
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, n-1, denied)
	stored, err := repos.Conversation.FindByUuid(ctx, conv.Uuid)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.MessageLimit)
	fromA, err := repos.Message.ExistsBySender(ctx, conv.Uuid, a)
	require.NoError(t, err)
	fromB, err := repos.Message.ExistsBySender(ctx, conv.Uuid, b)
	require.NoError(t, err)
	assert.True(t, fromA != fromB, "exactly one first message is stored")
}

func TestRelationshipPairIsUnique(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	a, b := random.PrefixedID("P", 10), random.PrefixedID("P", 10)

	first := &model.Relationship{Uuid: random.PrefixedID("R", 10), SenderId: a, ReceiverId: b, Status: model.RelationshipPending}
	require.NoError(t, repos.Relationship.Create(ctx, first))

	reverse := &model.Relationship{Uuid: random.PrefixedID("R", 10), SenderId: b, ReceiverId: a, Status: model.RelationshipPending}
	err := repos.Relationship.Create(ctx, reverse)
	require.True(t, errorx.IsConflict(err), "got %v", err)

	found, err := repos.Relationship.FindBetween(ctx, b, a)
	require.NoError(t, err)
	require.Equal(t, first.Uuid, found.Uuid)
}

func TestDeliveryClaim(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	recipient := random.PrefixedID("P", 10)

	ok, err := repos.Delivery.Claim(ctx, &model.MessageDelivery{RootMessageId: 42, RecipientId: recipient, MessageId: 42})
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repos.Delivery.Claim(ctx, &model.MessageDelivery{RootMessageId: 42, RecipientId: recipient, MessageId: 43})
	require.NoError(t, err)
	require.False(t, ok)
}
