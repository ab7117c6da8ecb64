package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSettingsApplyTimestamps(t *testing.T) {
	yes, no := true, false
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	var s ConversationSettings
	s.Apply(SettingsPatch{IsBlocked: &yes}, t0)
	assert.True(t, s.IsBlocked)
	assert.Equal(t, t0, *s.LastBlockedAt)
	assert.Nil(t, s.LastMutedAt)

	// true -> true 不刷新时间
	s.Apply(SettingsPatch{IsBlocked: &yes}, t1)
	assert.Equal(t, t0, *s.LastBlockedAt)

	s.Apply(SettingsPatch{IsBlocked: &no, IsMuted: &yes}, t1)
	assert.False(t, s.IsBlocked)
	assert.Nil(t, s.LastBlockedAt)
	assert.Equal(t, t1, *s.LastMutedAt)

	// false -> false 保持为空
	s.Apply(SettingsPatch{IsTrashed: &no}, t1)
	assert.Nil(t, s.LastTrashedAt)
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("P2", "P1"), PairKey("P1", "P2"))
	assert.Equal(t, "P1:P2", PairKey("P2", "P1"))
}

func TestMessageRootId(t *testing.T) {
	root := int64(7)
	assert.Equal(t, int64(3), (&Message{Uuid: 3}).RootId())
	assert.Equal(t, root, (&Message{Uuid: 9, ForwardedFromId: &root}).RootId())
}
