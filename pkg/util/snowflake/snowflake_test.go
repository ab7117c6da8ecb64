package snowflake

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIDIsUnique(t *testing.T) {
	seen := make(map[int64]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestIDsAreStringsOnTheWire(t *testing.T) {
	data, err := json.Marshal(NewIDs([]int64{1790000000000000001, 7}))
	require.NoError(t, err)
	assert.JSONEq(t, `["1790000000000000001","7"]`, string(data))

	var ids IDs
	require.NoError(t, json.Unmarshal([]byte(`["1790000000000000001"]`), &ids))
	assert.Equal(t, []int64{1790000000000000001}, ids.Int64s())

	// 数字形式超过 2^53 时会丢精度，直接拒绝
	require.Error(t, json.Unmarshal([]byte(`[1790000000000000001]`), &ids))
}
