package conversation

import (
	"context"
	"testing"
	"time"

	"gated_chat_server/internal/dao/memory"
	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/infrastructure/identity"
	"gated_chat_server/internal/model"
	"gated_chat_server/internal/service/relationship"
	"gated_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setup(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()
	repos := memory.NewRepositories()
	ctx := context.Background()
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, repos.Profile.Upsert(ctx, &model.Profile{Uuid: id}))
	}
	lg := zaptest.NewLogger(t)
	rel := relationship.NewService(repos, identity.NewFollowDirectory(repos.Follow), lg)
	return NewService(repos, rel, lg), repos
}

func TestCreatePrivateSeedsRelationshipAndSettings(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()

	conv, err := svc.CreatePrivate(ctx, "A", "B")
	require.NoError(t, err)
	assert.True(t, conv.IsPrivate())
	assert.False(t, conv.Approved)
	assert.Equal(t, 0, conv.MessageLimit)
	assert.ElementsMatch(t, []string{"A", "B"}, conv.Profiles)

	rel, err := repos.Relationship.FindBetween(ctx, "B", "A")
	require.NoError(t, err)
	assert.Equal(t, model.RelationshipHidden, rel.Status)

	for _, id := range []string{"A", "B"} {
		_, err := repos.Settings.Find(ctx, id, conv.Uuid)
		assert.NoError(t, err)
	}

	_, err = svc.CreatePrivate(ctx, "B", "A")
	assert.True(t, errorx.IsConflict(err))
}

func TestCreatePrivateApprovedWhenRelationshipAccepted(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()
	require.NoError(t, repos.Follow.Create(ctx, &model.Follow{FollowerId: "A", FollowingId: "B", Status: model.FollowAccepted}))

	conv, err := svc.CreatePrivate(ctx, "A", "B")
	require.NoError(t, err)
	assert.True(t, conv.Approved)
}

func TestCreatePrivateValidation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreatePrivate(ctx, "A", "A")
	assert.Equal(t, errorx.KindValidation, errorx.KindOf(err))
	_, err = svc.CreatePrivate(ctx, "A", "")
	assert.Equal(t, errorx.KindValidation, errorx.KindOf(err))
	_, err = svc.CreatePrivate(ctx, "A", "ghost")
	assert.True(t, errorx.IsNotFound(err))
}

func TestCreateGroup(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()

	conv, err := svc.CreateGroup(ctx, "A", []string{"B", "C", "B"})
	require.NoError(t, err)
	assert.True(t, conv.Approved)
	assert.Equal(t, []string{"A", "B", "C"}, conv.Profiles)
	_, err = repos.Settings.Find(ctx, "C", conv.Uuid)
	assert.NoError(t, err)

	_, err = svc.CreateGroup(ctx, "A", []string{"A"})
	assert.Equal(t, errorx.KindValidation, errorx.KindOf(err))
}

func TestUpdateSettingsTimestamps(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return t0 }

	conv, err := svc.CreatePrivate(ctx, "A", "B")
	require.NoError(t, err)

	yes, no := true, false
	st, err := svc.UpdateSettings(ctx, "A", conv.Uuid, model.SettingsPatch{IsMuted: &yes})
	require.NoError(t, err)
	assert.True(t, st.IsMuted)
	require.NotNil(t, st.LastMutedAt)
	assert.Equal(t, t0, *st.LastMutedAt)

	svc.now = func() time.Time { return t0.Add(time.Hour) }
	st, err = svc.UpdateSettings(ctx, "A", conv.Uuid, model.SettingsPatch{IsMuted: &yes})
	require.NoError(t, err)
	assert.Equal(t, t0, *st.LastMutedAt)

	st, err = svc.UpdateSettings(ctx, "A", conv.Uuid, model.SettingsPatch{IsMuted: &no})
	require.NoError(t, err)
	assert.Nil(t, st.LastMutedAt)

	_, err = svc.UpdateSettings(ctx, "C", conv.Uuid, model.SettingsPatch{IsMuted: &yes})
	assert.ErrorIs(t, err, errorx.ErrNotParticipant)
}
