package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

// listenerBuffer is how many captured blocks a listener may lag behind.
// At 4096 samples per block this is about four seconds of audio.
const listenerBuffer = 16

// Broadcaster fans captured microphone blocks out to monitor peers and level
// meters. Publishing never waits on a listener: one that falls behind loses
// blocks and counts them.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[*Listener]struct{}
}

// Listener is one consumer of captured blocks.
type Listener struct {
	C       chan []float32
	done    chan struct{}
	dropped atomic.Uint64
}

// Done is closed when the listener is unsubscribed.
func (l *Listener) Done() <-chan struct{} { return l.done }

// Dropped returns how many blocks this listener missed by lagging.
func (l *Listener) Dropped() uint64 { return l.dropped.Load() }

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Listener]struct{})}
}

// Tap builds a recorder tap feeding a queue of the given depth, and returns
// the queue for Run. The tap runs on the capture path, so a full queue drops
// the block instead of waiting.
func Tap(depth int) (func(block []float32), <-chan []float32) {
	queue := make(chan []float32, depth)
	return func(block []float32) {
		select {
		case queue <- block:
		default:
		}
	}, queue
}

func (b *Broadcaster) Subscribe() *Listener {
	l := &Listener{
		C:    make(chan []float32, listenerBuffer),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe detaches l and closes its Done channel. Repeated calls are
// no-ops.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	_, ok := b.subs[l]
	delete(b.subs, l)
	b.mu.Unlock()
	if ok {
		close(l.done)
	}
}

func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Run publishes blocks from source until ctx is done or source is closed.
func (b *Broadcaster) Run(ctx context.Context, source <-chan []float32) {
	for {
		select {
		case <-ctx.Done():
			return
		case block, ok := <-source:
			if !ok {
				return
			}
			b.Publish(block)
		}
	}
}

// Publish hands block to every listener in capture order. Listeners share
// the slice read-only.
func (b *Broadcaster) Publish(block []float32) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for l := range b.subs {
		select {
		case l.C <- block:
		default:
			l.dropped.Add(1)
		}
	}
}
