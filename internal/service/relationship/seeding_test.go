package relationship

import (
	"testing"

	"gated_chat_server/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestSeedStatusTable(t *testing.T) {
	tests := []struct {
		name string
		in   SeedInput
		want model.RelationshipStatus
	}{
		{"p1 follows, both public", SeedInput{P1FollowsP2: true}, model.RelationshipAccepted},
		{"p1 follows, p1 private", SeedInput{P1FollowsP2: true, P1Private: true}, model.RelationshipAccepted},
		{"p1 follows, p2 private", SeedInput{P1FollowsP2: true, P2Private: true}, model.RelationshipPending},
		{"p1 follows, both private", SeedInput{P1FollowsP2: true, P1Private: true, P2Private: true}, model.RelationshipPending},
		{"p2 follows, both public", SeedInput{P2FollowsP1: true}, model.RelationshipAccepted},
		{"p2 follows, p2 private", SeedInput{P2FollowsP1: true, P2Private: true}, model.RelationshipPending},
		{"p2 follows, p1 private", SeedInput{P2FollowsP1: true, P1Private: true}, model.RelationshipAccepted},
		{"p2 follows, both private", SeedInput{P2FollowsP1: true, P1Private: true, P2Private: true}, model.RelationshipPending},
		{"both follow, p2 private", SeedInput{P1FollowsP2: true, P2FollowsP1: true, P2Private: true}, model.RelationshipPending},
		{"strangers", SeedInput{}, model.RelationshipHidden},
		{"strangers, private", SeedInput{P1Private: true}, model.RelationshipHidden},
		{"shared connection, public", SeedInput{SharedConnection: true}, model.RelationshipAccepted},
		{"shared connection, p2 private", SeedInput{SharedConnection: true, P2Private: true}, model.RelationshipPending},
		{"shared connection, p1 private", SeedInput{SharedConnection: true, P1Private: true}, model.RelationshipPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SeedStatus(tt.in))
		})
	}
}

func TestSeedStatusOverridesApplyInOrder(t *testing.T) {
	// 发起方有其它关注关系，强制 pending
	assert.Equal(t, model.RelationshipPending,
		SeedStatus(SeedInput{P1FollowsP2: true, RequesterHasFollowSignal: true}))
	assert.Equal(t, model.RelationshipPending,
		SeedStatus(SeedInput{RequesterHasFollowSignal: true}))

	// 第二条覆盖在第一条之后生效
	assert.Equal(t, model.RelationshipAccepted,
		SeedStatus(SeedInput{P1FollowsP2: true, RequesterHasFollowSignal: true, EitherAccepted: true}))

	// 有一方私密时第二条不生效
	assert.Equal(t, model.RelationshipPending,
		SeedStatus(SeedInput{P1FollowsP2: true, P2Private: true, EitherAccepted: true}))
	assert.Equal(t, model.RelationshipPending,
		SeedStatus(SeedInput{P1FollowsP2: true, P1Private: true, RequesterHasFollowSignal: true, EitherAccepted: true}))
}
