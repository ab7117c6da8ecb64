package guard

import (
	"context"
	"sync/atomic"
	"testing"

	"gated_chat_server/internal/dao/memory"
	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	guard *Guard
	repos *repository.Repositories
	conv  *model.Conversation
}

func newFixture(t *testing.T, status model.RelationshipStatus) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.NewRepositories()
	key := model.PairKey("A", "B")
	conv := &model.Conversation{Uuid: "C1", RoomType: model.RoomPrivate, PairKey: &key}
	require.NoError(t, repos.Conversation.Create(ctx, conv, []string{"A", "B"}))
	require.NoError(t, repos.Settings.EnsureDefaults(ctx, "C1", []string{"A", "B"}))
	if status != "" {
		require.NoError(t, repos.Relationship.Create(ctx, &model.Relationship{Uuid: "R1", SenderId: "A", ReceiverId: "B", Status: status}))
	}
	return &fixture{guard: New(zaptest.NewLogger(t)), repos: repos, conv: conv}
}

func (f *fixture) sendAs(t *testing.T, sender string) error {
	t.Helper()
	ctx := context.Background()
	conv, err := f.repos.Conversation.FindByUuid(ctx, f.conv.Uuid)
	require.NoError(t, err)
	if _, err := f.guard.Check(ctx, f.repos, sender, conv); err != nil {
		return err
	}
	if err := f.guard.ClaimIcebreaker(ctx, f.repos, conv); err != nil {
		return err
	}
	return f.repos.Message.Create(ctx, &model.Message{Uuid: nextID(), ConversationId: conv.Uuid, SenderId: sender, Content: "hi"})
}

var seq atomic.Int64

func nextID() int64 {
	return seq.Add(1)
}

func TestPendingAllowsExactlyOneMessage(t *testing.T) {
	f := newFixture(t, model.RelationshipPending)
	require.NoError(t, f.sendAs(t, "A"))

	err := f.sendAs(t, "A")
	assert.ErrorIs(t, err, errorx.ErrPendingLimit)
	assert.True(t, errorx.IsPermissionDenied(err))
}

func TestHiddenAllowsExactlyOneMessage(t *testing.T) {
	f := newFixture(t, model.RelationshipHidden)
	require.NoError(t, f.sendAs(t, "A"))
	assert.ErrorIs(t, f.sendAs(t, "A"), errorx.ErrHiddenLimit)
}

func TestBlockedAlwaysRejects(t *testing.T) {
	f := newFixture(t, model.RelationshipBlocked)
	ctx := context.Background()
	require.NoError(t, f.repos.Conversation.SetApproved(ctx, "C1", true))

	for _, sender := range []string{"A", "B"} {
		assert.ErrorIs(t, f.sendAs(t, sender), errorx.ErrRelationshipBlocked)
	}
}

func TestSettingsBlockOrder(t *testing.T) {
	f := newFixture(t, model.RelationshipAccepted)
	ctx := context.Background()
	yes := true
	for _, id := range []string{"A", "B"} {
		s, err := f.repos.Settings.Find(ctx, id, "C1")
		require.NoError(t, err)
		s.Apply(model.SettingsPatch{IsBlocked: &yes}, s.CreatedAt)
		require.NoError(t, f.repos.Settings.Save(ctx, s))
	}

	// 先检查对方设置
	assert.ErrorIs(t, f.sendAs(t, "A"), errorx.ErrPeerBlockedConversation)

	no := false
	s, err := f.repos.Settings.Find(ctx, "B", "C1")
	require.NoError(t, err)
	s.Apply(model.SettingsPatch{IsBlocked: &no}, s.CreatedAt)
	require.NoError(t, f.repos.Settings.Save(ctx, s))

	assert.ErrorIs(t, f.sendAs(t, "A"), errorx.ErrSelfBlockedConversation)
}

func TestQuotaUntilApproved(t *testing.T) {
	f := newFixture(t, model.RelationshipAccepted)
	ctx := context.Background()

	require.NoError(t, f.sendAs(t, "A"))
	conv, err := f.repos.Conversation.FindByUuid(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, 1, conv.MessageLimit)

	assert.ErrorIs(t, f.sendAs(t, "B"), errorx.ErrQuotaExceeded)

	require.NoError(t, f.repos.Conversation.SetApproved(ctx, "C1", true))
	assert.NoError(t, f.sendAs(t, "B"))
	assert.NoError(t, f.sendAs(t, "A"))
}

func TestCheckRejectsOutsiderAndMalformedRoom(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	_, err := f.guard.Check(ctx, f.repos, "Z", f.conv)
	assert.ErrorIs(t, err, errorx.ErrNotParticipant)

	broken := &model.Conversation{Uuid: "C9", RoomType: model.RoomPrivate, Profiles: []string{"A", "B", "C"}}
	_, err = f.guard.Check(ctx, f.repos, "A", broken)
	assert.Equal(t, errorx.KindValidation, errorx.KindOf(err))
}

func TestCheckResolvesReceiver(t *testing.T) {
	f := newFixture(t, model.RelationshipAccepted)
	conv, err := f.repos.Conversation.FindByUuid(context.Background(), "C1")
	require.NoError(t, err)

	d, err := f.guard.Check(context.Background(), f.repos, "A", conv)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, d.Receivers)
	assert.Equal(t, "R1", d.Relationship.Uuid)
}

func TestGroupRoomSkipsRelationshipChecks(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	conv := &model.Conversation{Uuid: "G1", RoomType: model.RoomGroup, Approved: true}
	require.NoError(t, repos.Conversation.Create(ctx, conv, []string{"A", "B", "C"}))
	require.NoError(t, repos.Relationship.Create(ctx, &model.Relationship{Uuid: "R1", SenderId: "A", ReceiverId: "B", Status: model.RelationshipBlocked}))

	d, err := New(zaptest.NewLogger(t)).Check(ctx, repos, "A", conv)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B", "C"}, d.Receivers)
}
