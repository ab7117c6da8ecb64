package identity

import (
	"context"
	"testing"

	"gated_chat_server/internal/dao/memory"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/errorx"
	"gated_chat_server/pkg/util/jwt"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestVerifierMirrorsProfile(t *testing.T) {
	jwt.Init("identity-secret-0123456789abcdef", 5)
	repos := memory.NewRepositories()
	v := NewVerifier(repos.Profile, zaptest.NewLogger(t))
	ctx := context.Background()

	token, err := jwt.GenerateProfileToken("P1", "alice", true)
	require.NoError(t, err)

	profile, err := v.Verify(ctx, "Bearer "+token)
	require.NoError(t, err)
	require.Equal(t, "P1", profile.Uuid)

	stored, err := repos.Profile.FindByUuid(ctx, "P1")
	require.NoError(t, err)
	require.True(t, stored.IsPrivate)
	require.Equal(t, "alice", stored.Nickname)
}

func TestVerifierRejectsGarbage(t *testing.T) {
	jwt.Init("identity-secret-0123456789abcdef", 5)
	v := NewVerifier(memory.NewRepositories().Profile, zaptest.NewLogger(t))

	_, err := v.Verify(context.Background(), "not-a-token")
	require.Equal(t, errorx.KindUnauthorized, errorx.KindOf(err))

	_, err = v.Verify(context.Background(), "")
	require.Equal(t, errorx.KindUnauthorized, errorx.KindOf(err))
}

func TestFollowStatusAndList(t *testing.T) {
	repos := memory.NewRepositories()
	ctx := context.Background()
	require.NoError(t, repos.Follow.Create(ctx, &model.Follow{FollowerId: "A", FollowingId: "B", Status: model.FollowAccepted}))
	require.NoError(t, repos.Follow.Create(ctx, &model.Follow{FollowerId: "C", FollowingId: "A", Status: model.FollowRequested}))
	require.NoError(t, repos.Follow.Create(ctx, &model.Follow{FollowerId: "D", FollowingId: "C", Status: model.FollowAccepted}))

	dir := NewFollowDirectory(repos.Follow)

	st, err := dir.GetFollowStatus(ctx, "A", "B")
	require.NoError(t, err)
	require.Equal(t, FollowStatus{P1FollowsP2: true, P1Accepted: true}, st)

	st, err = dir.GetFollowStatus(ctx, "A", "C")
	require.NoError(t, err)
	require.Equal(t, FollowStatus{P2FollowsP1: true}, st)

	following, err := dir.GetFollowList(ctx, "A", ListFollowing)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, following)

	followers, err := dir.GetFollowList(ctx, "A", ListFollowers)
	require.NoError(t, err)
	require.Equal(t, []string{"C"}, followers)

	shared, err := dir.SharedConnection(ctx, "A", "D")
	require.NoError(t, err)
	require.True(t, shared)

	shared, err = dir.SharedConnection(ctx, "B", "D")
	require.NoError(t, err)
	require.False(t, shared)
}
