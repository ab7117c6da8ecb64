package mq

import (
	"sync"

	"github.com/segmentio/kafka-go"
)

// offsetTracker 记录各分区已取出未完成的消息
// 多个消费者并发处理同一个 reader 的消息，完成顺序与位点顺序无关；
// 只有从最小在途位点起连续完成的前缀才能提交，否则宕机重启会跳过仍在处理的消息
type offsetTracker struct {
	mu    sync.Mutex
	parts map[int]*partitionWindow
}

type partitionWindow struct {
	inflight []kafka.Message // 位点递增
	done     map[int64]bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{parts: make(map[int]*partitionWindow)}
}

// track 在 FetchMessage 之后调用
// 位点回退说明发生了重平衡，旧窗口作废
func (t *offsetTracker) track(msg kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.parts[msg.Partition]
	if !ok || (len(w.inflight) > 0 && msg.Offset <= w.inflight[len(w.inflight)-1].Offset) {
		w = &partitionWindow{done: make(map[int64]bool)}
		t.parts[msg.Partition] = w
	}
	w.inflight = append(w.inflight, msg)
	w.done[msg.Offset] = false
}

// complete 标记完成，返回可以提交的最高位点消息
func (t *offsetTracker) complete(msg kafka.Message) (kafka.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.parts[msg.Partition]
	if !ok {
		return kafka.Message{}, false
	}
	if _, tracked := w.done[msg.Offset]; !tracked {
		return kafka.Message{}, false
	}
	w.done[msg.Offset] = true

	n := 0
	for n < len(w.inflight) && w.done[w.inflight[n].Offset] {
		delete(w.done, w.inflight[n].Offset)
		n++
	}
	if n == 0 {
		return kafka.Message{}, false
	}
	mark := w.inflight[n-1]
	w.inflight = w.inflight[n:]
	return mark, true
}

// pending 在途条数
func (t *offsetTracker) pending(partition int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.parts[partition]; ok {
		return len(w.inflight)
	}
	return 0
}
