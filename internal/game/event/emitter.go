package event

import (
	"sync"

	"go.uber.org/zap"
)

// Emitter receives domain events. Implementations called from inside a tick
// must not block.
type Emitter interface {
	Emit(e Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(e Event)

// Emit implements Emitter.
func (f EmitterFunc) Emit(e Event) { f(e) }

// Nop discards every event.
var Nop Emitter = EmitterFunc(func(Event) {})

// Bus fans each event out to its sinks in registration order.
type Bus struct {
	mu    sync.RWMutex
	sinks []Emitter
}

// NewBus creates a Bus with the given sinks. Nil sinks are ignored.
func NewBus(sinks ...Emitter) *Bus {
	b := &Bus{}
	for _, s := range sinks {
		b.Add(s)
	}
	return b
}

// Add registers another sink.
func (b *Bus) Add(s Emitter) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Emit implements Emitter.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.sinks {
		s.Emit(e)
	}
}

// Buffer collects events until drained. The battle loop drains it once per
// tick to persist the tick's events; tests use it as a recorder.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Emitter.
func (b *Buffer) Emit(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

// Drain returns the buffered events in emission order and empties the buffer.
func (b *Buffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Events returns a copy of the buffered events without draining.
func (b *Buffer) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

// Count returns how many buffered events have kind k.
func (b *Buffer) Count(k Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Kind() == k {
			n++
		}
	}
	return n
}

// LogSink logs every event at debug level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
//
// Precondition: logger must not be nil.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		panic("event.NewLogSink: logger must not be nil")
	}
	return &LogSink{logger: logger}
}

// Emit implements Emitter.
func (s *LogSink) Emit(e Event) {
	if ce := s.logger.Check(zap.DebugLevel, "battle event"); ce != nil {
		ce.Write(zap.String("kind", string(e.Kind())), zap.Any("fields", e.Fields()))
	}
}
