// Package layer 频道组发布订阅
// 连接加入若干组（chat:{profileId}、notification:{profileId}、activity），向组发送即推给组内所有连接
package layer

import "context"

// Receiver 组内的接收方，Receive 不能阻塞
type Receiver interface {
	Receive(group string, data []byte)
}

// Layer 频道组
type Layer interface {
	GroupAdd(ctx context.Context, group string, r Receiver) error
	GroupDiscard(ctx context.Context, group string, r Receiver) error
	// GroupSend 返回送达的接收方数量：内存实现为本机连接数，redis 实现为订阅该组的节点数
	GroupSend(ctx context.Context, group string, data []byte) (int, error)
	Close() error
}
