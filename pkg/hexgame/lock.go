package hexgame

import (
	"context"
	"sync"
)

// LockKind names the animated transition holding the lock.
type LockKind int

const (
	LockMove LockKind = iota + 1
	LockCombat
)

func (k LockKind) String() string {
	switch k {
	case LockMove:
		return "move"
	case LockCombat:
		return "combat"
	default:
		return "none"
	}
}

// AnimationLock serializes every animated transition on a board. It is a
// single global lock: while a move animation plays no attack may start and
// vice versa. Acquisition never blocks; callers that must wait use Wait.
type AnimationLock struct {
	mu   sync.Mutex
	kind LockKind
	free chan struct{} // closed while the lock is free
}

// NewAnimationLock returns an unheld lock.
func NewAnimationLock() *AnimationLock {
	free := make(chan struct{})
	close(free)
	return &AnimationLock{free: free}
}

// TryAcquire takes the lock for kind. Returns false if any kind is held.
func (l *AnimationLock) TryAcquire(kind LockKind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.kind != 0 {
		return false
	}
	l.kind = kind
	l.free = make(chan struct{})
	return true
}

// Release frees the lock and wakes every waiter. Releasing a free lock is a no-op.
func (l *AnimationLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.kind == 0 {
		return
	}
	l.kind = 0
	close(l.free)
}

// Held returns the kind currently holding the lock.
func (l *AnimationLock) Held() (LockKind, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kind, l.kind != 0
}

// Free returns a channel that is closed once the lock is free. The channel
// belongs to the current hold; a later acquisition gets a new one.
func (l *AnimationLock) Free() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.free
}

// Wait blocks until the lock is free or ctx is done.
func (l *AnimationLock) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-l.Free():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// releaseWhen releases the lock once done closes. A nil or already closed
// channel releases before returning so headless callers observe a free lock
// as soon as the operation returns.
func (l *AnimationLock) releaseWhen(done <-chan struct{}) {
	if done == nil {
		l.Release()
		return
	}
	select {
	case <-done:
		l.Release()
	default:
		go func() {
			<-done
			l.Release()
		}()
	}
}
