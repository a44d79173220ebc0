package credential

import (
	"context"
	"strings"
	"sync"
)

// PrefixLocker serialises credential issuance per prefix within one process.
type PrefixLocker struct {
	mu    sync.Mutex
	slots map[string]*prefixSlot
}

type prefixSlot struct {
	ch      chan struct{}
	waiters int
}

// NewPrefixLocker constructs an empty locker.
func NewPrefixLocker() *PrefixLocker {
	return &PrefixLocker{slots: make(map[string]*prefixSlot)}
}

// Lock blocks until the prefix is free or ctx is done. The returned func releases the prefix.
func (l *PrefixLocker) Lock(ctx context.Context, prefix string) (func(), error) {
	key := strings.ToUpper(prefix)

	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &prefixSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.waiters++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, slot, true) })
	}, nil
}

func (l *PrefixLocker) release(key string, slot *prefixSlot, held bool) {
	if held {
		<-slot.ch
	}
	l.mu.Lock()
	slot.waiters--
	if slot.waiters == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

// Held reports how many prefixes currently have holders or waiters.
func (l *PrefixLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
