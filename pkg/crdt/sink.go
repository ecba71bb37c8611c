package crdt

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("crdt sink closed")

// Sink receives commands one at a time, in emission order.
type Sink interface {
	Emit(ctx context.Context, cmd Command) error
}

type SinkFunc func(ctx context.Context, cmd Command) error

func (f SinkFunc) Emit(ctx context.Context, cmd Command) error { return f(ctx, cmd) }

// Applier persists every command derived from one block as a unit.
type Applier interface {
	Apply(ctx context.Context, at Point, cmds []Command) error
}

// Batch collects emitted commands so they can be applied per block.
type Batch struct {
	mu   sync.Mutex
	cmds []Command
}

func NewBatch() *Batch { return &Batch{} }

func (b *Batch) Emit(_ context.Context, cmd Command) error {
	b.mu.Lock()
	b.cmds = append(b.cmds, cmd)
	b.mu.Unlock()
	return nil
}

func (b *Batch) Commands() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Command, len(b.cmds))
	copy(out, b.cmds)
	return out
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cmds)
}

// Flush applies the collected commands to each applier in turn and resets the batch.
func (b *Batch) Flush(ctx context.Context, at Point, appliers ...Applier) error {
	cmds := b.Commands()
	for _, a := range appliers {
		if err := a.Apply(ctx, at, cmds); err != nil {
			return err
		}
	}
	b.mu.Lock()
	b.cmds = b.cmds[:0]
	b.mu.Unlock()
	return nil
}

// MultiApplier applies to every member, stopping at the first error.
type MultiApplier []Applier

func (m MultiApplier) Apply(ctx context.Context, at Point, cmds []Command) error {
	for i, a := range m {
		if err := a.Apply(ctx, at, cmds); err != nil {
			return fmt.Errorf("applier %d: %w", i, err)
		}
	}
	return nil
}

// LogApplier writes each command as a structured log line.
type LogApplier struct {
	Logger *zap.Logger
}

func (l LogApplier) Apply(_ context.Context, at Point, cmds []Command) error {
	for _, c := range cmds {
		l.Logger.Info("crdt command",
			zap.Uint64("height", at.Height),
			zap.String("op", c.Op.String()),
			zap.String("set", c.Set()),
			zap.String("value", c.Value))
	}
	return nil
}

// MemoryStore materializes commands into in-process sets. It implements both
// Sink and Applier.
type MemoryStore struct {
	mu     sync.RWMutex
	sets   map[string]map[string]struct{}
	log    []Command
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: map[string]map[string]struct{}{}}
}

func (m *MemoryStore) Emit(_ context.Context, cmd Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.apply(cmd)
	return nil
}

func (m *MemoryStore) Apply(_ context.Context, _ Point, cmds []Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, c := range cmds {
		m.apply(c)
	}
	return nil
}

func (m *MemoryStore) apply(c Command) {
	m.log = append(m.log, c)
	set := c.Set()
	switch c.Op {
	case OpAdd:
		if m.sets[set] == nil {
			m.sets[set] = map[string]struct{}{}
		}
		m.sets[set][c.Value] = struct{}{}
	case OpRemove:
		delete(m.sets[set], c.Value)
		if len(m.sets[set]) == 0 {
			delete(m.sets, set)
		}
	}
}

// Members returns the sorted members of set.
func (m *MemoryStore) Members(set string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sets[set]))
	for v := range m.sets[set] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Sets returns the sorted names of non-empty sets.
func (m *MemoryStore) Sets() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sets))
	for s := range m.sets {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Log returns every command received, in order.
func (m *MemoryStore) Log() []Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Command, len(m.log))
	copy(out, m.log)
	return out
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
