package tasks

import (
	"context"
	"sync"
	"time"
)

// Slot is a fixed logical category of background work. At most one task is
// live per slot; spawning into an occupied slot cancels the old task first.
type Slot int

const (
	SlotRefreshAndroid Slot = iota
	SlotRefreshIOS
	SlotDetail
	SlotLogStream
	SlotFormOptions
	SlotUIRefresh

	// slotNone labels un-slotted one-shot work in panic reports.
	slotNone Slot = -1
)

func (s Slot) String() string {
	switch s {
	case SlotRefreshAndroid:
		return "refresh-android"
	case SlotRefreshIOS:
		return "refresh-ios"
	case SlotDetail:
		return "detail"
	case SlotLogStream:
		return "logstream"
	case SlotFormOptions:
		return "form-options"
	case SlotUIRefresh:
		return "ui-refresh"
	case slotNone:
		return "operation"
	default:
		return "slot(?)"
	}
}

type handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Coordinator owns the lifecycle of every background task. Each slot holds
// at most one cancellation handle; supersession and debouncing are built on
// cancelling the previous holder.
type Coordinator struct {
	mu    sync.Mutex
	root  context.Context
	slots map[Slot]*handle
	wg    sync.WaitGroup

	// onPanic is invoked (outside the coordinator lock) when task work
	// panics; the task itself dies quietly afterwards.
	onPanic func(slot Slot, v any)
}

// New builds a coordinator whose tasks all descend from root.
func New(root context.Context, onPanic func(Slot, any)) *Coordinator {
	if root == nil {
		root = context.Background()
	}
	if onPanic == nil {
		onPanic = func(Slot, any) {}
	}
	return &Coordinator{
		root:    root,
		slots:   make(map[Slot]*handle),
		onPanic: onPanic,
	}
}

// Spawn starts work in the slot, cancelling any live predecessor first.
// Cancellation is cooperative: the old task keeps running until it observes
// its context, but it can no longer outlive its replacement unnoticed
// because results are tag-checked at the store boundary.
func (c *Coordinator) Spawn(slot Slot, work func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(c.root)
	h := &handle{cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	if old, ok := c.slots[slot]; ok {
		old.cancel()
	}
	c.slots[slot] = h
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(h.done)
		defer func() {
			c.mu.Lock()
			if c.slots[slot] == h {
				delete(c.slots, slot)
			}
			c.mu.Unlock()
			cancel()
		}()
		defer func() {
			if v := recover(); v != nil {
				c.onPanic(slot, v)
			}
		}()
		work(ctx)
	}()
}

// SpawnAfter schedules work to start once delay has elapsed without another
// Spawn or SpawnAfter for the same slot. Every new call resets the timer
// (debounce, not throttle), so a burst collapses into one execution of the
// last requested work.
func (c *Coordinator) SpawnAfter(slot Slot, delay time.Duration, work func(ctx context.Context)) {
	c.Spawn(slot, func(ctx context.Context) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		work(ctx)
	})
}

// Go runs work outside any slot but still under the coordinator's root
// context and shutdown tracking. Used for one-shot device operations that
// must be cancelled on teardown but are never superseded.
func (c *Coordinator) Go(work func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(c.root)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		defer func() {
			if v := recover(); v != nil {
				c.onPanic(slotNone, v)
			}
		}()
		work(ctx)
	}()
}

// Cancel requests cancellation of the slot's live task, if any, without
// starting replacement work.
func (c *Coordinator) Cancel(slot Slot) {
	c.mu.Lock()
	h, ok := c.slots[slot]
	if ok {
		delete(c.slots, slot)
	}
	c.mu.Unlock()
	if ok {
		h.cancel()
	}
}

// CancelAll requests cancellation of every live task. Used on shutdown.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	handles := make([]*handle, 0, len(c.slots))
	for slot, h := range c.slots {
		handles = append(handles, h)
		delete(c.slots, slot)
	}
	c.mu.Unlock()
	for _, h := range handles {
		h.cancel()
	}
}

// Wait blocks until every spawned task has exited.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Shutdown cancels everything and waits for tasks to drain.
func (c *Coordinator) Shutdown() {
	c.CancelAll()
	c.Wait()
}
