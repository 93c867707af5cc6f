// Package viewer bridges grid sessions to a browser-hosted 3D viewer.
//
// Commands issued by the engine are fanned out to every connected listener
// (typically an SSE stream); the viewer page reports its selection back,
// which is delivered to the engine's selection subscribers.
package viewer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/JonMunkholm/ElementGrid/internal/core"
)

// Op names a viewer command.
type Op string

const (
	OpIsolate        Op = "isolate"
	OpHide           Op = "hide"
	OpSelect         Op = "select"
	OpClearSelection Op = "clearSelection"
	OpFitToView      Op = "fitToView"
	OpColor          Op = "color"
)

// Command is one instruction for the viewer page.
type Command struct {
	Seq   uint64  `json:"seq"`
	Op    Op      `json:"op"`
	IDs   []int64 `json:"ids,omitempty"`
	Color string  `json:"color,omitempty"`
}

// ListenerBuffer is the per-listener command buffer. A listener that falls
// this far behind misses commands rather than blocking the engine.
var ListenerBuffer = 32

// Bridge implements core.ViewerPort for one grid session.
type Bridge struct {
	GridID string

	seq     atomic.Uint64
	dropped atomic.Uint64

	mu        sync.Mutex
	listeners map[int]chan Command
	subs      map[int]func([]core.ViewerID)
	nextID    int
	selection []core.ViewerID
	closed    bool
}

// NewBridge creates a bridge for a grid session.
func NewBridge(gridID string) *Bridge {
	return &Bridge{
		GridID:    gridID,
		listeners: make(map[int]chan Command),
		subs:      make(map[int]func([]core.ViewerID)),
	}
}

// Listen registers a command listener. The channel is closed when the
// bridge closes or cancel is called.
func (b *Bridge) Listen() (<-chan Command, func()) {
	ch := make(chan Command, ListenerBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if l, ok := b.listeners[id]; ok {
				delete(b.listeners, id)
				close(l)
			}
		})
	}
}

// Listeners returns the number of connected listeners.
func (b *Bridge) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Dropped returns how many commands were discarded for slow listeners.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// Close disconnects all listeners and subscribers.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.listeners {
		close(ch)
		delete(b.listeners, id)
	}
	clear(b.subs)
}

// send fans cmd out to every listener without blocking.
func (b *Bridge) send(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd.Seq = b.seq.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.listeners {
		select {
		case ch <- cmd:
		default:
			b.dropped.Add(1)
			slog.Warn("viewer listener full, command dropped",
				"grid", b.GridID,
				"op", cmd.Op,
				"seq", cmd.Seq,
			)
		}
	}
	return nil
}

func (b *Bridge) Isolate(ctx context.Context, ids []int64) error {
	return b.send(ctx, Command{Op: OpIsolate, IDs: ids})
}

func (b *Bridge) Hide(ctx context.Context, ids []int64) error {
	return b.send(ctx, Command{Op: OpHide, IDs: ids})
}

func (b *Bridge) Select(ctx context.Context, ids []int64) error {
	return b.send(ctx, Command{Op: OpSelect, IDs: ids})
}

func (b *Bridge) ClearSelection(ctx context.Context) error {
	return b.send(ctx, Command{Op: OpClearSelection})
}

func (b *Bridge) FitToView(ctx context.Context, ids []int64) error {
	return b.send(ctx, Command{Op: OpFitToView, IDs: ids})
}

func (b *Bridge) ApplyColorByDiscipline(ctx context.Context, ids []int64, colorHex string) error {
	return b.send(ctx, Command{Op: OpColor, IDs: ids, Color: colorHex})
}

// GetSelection returns the selection most recently reported by the viewer.
func (b *Bridge) GetSelection(ctx context.Context) ([]core.ViewerID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.ViewerID(nil), b.selection...), nil
}

// SubscribeSelection registers fn for selection reports.
func (b *Bridge) SubscribeSelection(fn func([]core.ViewerID)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// ReportSelection records the viewer's current selection and delivers it to
// subscribers. Subscribers run on the caller's goroutine, outside the lock.
func (b *Bridge) ReportSelection(ids []core.ViewerID) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.selection = append([]core.ViewerID(nil), ids...)
	subs := make([]func([]core.ViewerID), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(ids)
	}
}
