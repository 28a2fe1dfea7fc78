package snapshot

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize は購読者ごとのチャネルバッファの既定値。
const DefaultBufferSize = 32

type subscriber struct {
	filter Filter
	ch     chan Event
}

// MemoryBroker はプロセス内で購読者にイベントを配信するBroker。
// 受信が追いつかない購読者へのイベントは破棄し、発行側をブロックしない。
type MemoryBroker struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber
	nextID  uint64
	buffer  int
	dropped atomic.Int64
}

// NewMemoryBroker はMemoryBrokerを生成する。bufferが0以下の場合はDefaultBufferSizeを使う。
func NewMemoryBroker(buffer int) *MemoryBroker {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &MemoryBroker{
		subs:   make(map[uint64]*subscriber),
		buffer: buffer,
	}
}

// Publish は条件に合う全購読者にイベントを配信する。
func (b *MemoryBroker) Publish(_ context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs {
		if !s.filter.Match(event) {
			continue
		}
		select {
		case s.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe は購読を登録する。
func (b *MemoryBroker) Subscribe(ctx context.Context, filter Filter) (<-chan Event, func()) {
	s := &subscriber{
		filter: filter,
		ch:     make(chan Event, b.buffer),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(s.ch)
			b.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, cancel)

	return s.ch, func() {
		stop()
		cancel()
	}
}

// SubscriberCount は現在の購読者数を返す。
func (b *MemoryBroker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped は購読者の受信遅延により破棄したイベント数を返す。
func (b *MemoryBroker) Dropped() int64 {
	return b.dropped.Load()
}

var _ Broker = (*MemoryBroker)(nil)
