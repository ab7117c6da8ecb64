package snowflake

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

// Init 初始化雪花算法节点，应在程序启动时调用一次
// machineID 取值 0-1023，分布式部署时每台机器需唯一
func Init(machineID int64) {
	nodeOnce.Do(func() {
		if machineID < 0 || machineID > 1023 {
			zap.L().Warn("invalid snowflake machine id, using 1", zap.Int64("machineID", machineID))
			machineID = 1
		}
		var err error
		node, err = snowflake.NewNode(machineID)
		if err != nil {
			zap.L().Fatal("failed to initialize snowflake node", zap.Error(err))
		}
	})
}

// GenerateID 生成雪花 ID (int64)，消息 ID 使用
// 未显式 Init 时以 1 号机器初始化
func GenerateID() int64 {
	Init(1)
	return node.Generate().Int64()
}

// IDs 雪花 ID 列表，JSON 中每个元素都是字符串，避免前端 number 精度丢失
type IDs []snowflake.ID

// NewIDs 由 int64 列表构造
func NewIDs(ids []int64) IDs {
	out := make(IDs, len(ids))
	for i, id := range ids {
		out[i] = snowflake.ID(id)
	}
	return out
}

// Int64s 转回 int64 列表
func (ids IDs) Int64s() []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = id.Int64()
	}
	return out
}
