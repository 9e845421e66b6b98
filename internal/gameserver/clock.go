package gameserver

import (
	"sync"
	"time"
)

// SimClock converts wall-clock tick intervals into simulation time and
// broadcasts every advance to subscribers.
type SimClock struct {
	scale float64

	mu          sync.Mutex
	now         time.Duration
	subscribers map[chan<- time.Duration]struct{}
}

// NewSimClock creates a clock at simulation time zero.
//
// Precondition: scale > 0.
// Postcondition: Returns a non-nil *SimClock.
func NewSimClock(scale float64) *SimClock {
	if scale <= 0 {
		panic("gameserver.NewSimClock: scale must be > 0")
	}
	return &SimClock{
		scale:       scale,
		subscribers: make(map[chan<- time.Duration]struct{}),
	}
}

// Now returns the current simulation time.
func (c *SimClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Subscribe registers ch to receive the simulation time after each Advance.
// If ch is full, the update is dropped for that subscriber.
//
// Precondition: ch must not be nil.
func (c *SimClock) Subscribe(ch chan<- time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[ch] = struct{}{}
}

// Unsubscribe removes ch from the subscriber list.
func (c *SimClock) Unsubscribe(ch chan<- time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, ch)
}

// Advance moves the clock forward by wall scaled into simulation time.
//
// Postcondition: Returns the simulation time elapsed by this advance.
func (c *SimClock) Advance(wall time.Duration) time.Duration {
	elapsed := time.Duration(float64(wall) * c.scale)
	c.mu.Lock()
	c.now += elapsed
	now := c.now
	subs := make([]chan<- time.Duration, 0, len(c.subscribers))
	for ch := range c.subscribers {
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- now:
		default:
		}
	}
	return elapsed
}
