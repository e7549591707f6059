// Package broadcast fans a stream of values out to subscribers that only
// care about the latest one.
package broadcast

import (
	"context"
	"sync"
)

// Hub delivers published values to every subscriber. Each subscription
// channel buffers one value; a slow reader skips straight to the newest.
// The zero value is ready to use.
type Hub[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

// Subscribe returns a channel that receives every value published after the
// call and is closed once ctx is done.
func (h *Hub[T]) Subscribe(ctx context.Context) <-chan T {
	return h.subscribe(ctx, nil)
}

// SubscribeWith is Subscribe with initial already waiting in the channel.
func (h *Hub[T]) SubscribeWith(ctx context.Context, initial T) <-chan T {
	return h.subscribe(ctx, &initial)
}

func (h *Hub[T]) subscribe(ctx context.Context, initial *T) <-chan T {
	ch := make(chan T, 1)
	if initial != nil {
		ch <- *initial
	}

	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[chan T]struct{})
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish offers v to all subscribers without blocking, replacing any value
// they have not read yet.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		offer(ch, v)
	}
}

// Len returns the number of live subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// offer must be called with the hub locked so ch has a single sender.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
