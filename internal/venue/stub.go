package venue

import (
	"context"
	"sync"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"github.com/algotrade/execd/internal/event"
)

// StubClient is a minimal execution client with reconnect/resend support,
// suitable for tests and for paper-trading a strategy without a real
// venue connection. Tests drive venue behavior by calling Push to enqueue
// an event as if the venue had sent it.
type StubClient struct {
	mu        sync.Mutex
	connected bool
	pending   map[uint64]Command
	events    chan event.Envelope

	// ResendOnReconnect controls whether Reconnect resends pending
	// commands, mirroring the teacher's gateway stub's configurable
	// reconnect behavior.
	ResendOnReconnect bool
}

// NewStubClient creates a disconnected stub with the given event channel
// capacity.
func NewStubClient(eventQueueSize int) *StubClient {
	if eventQueueSize <= 0 {
		eventQueueSize = 64
	}
	return &StubClient{
		pending:           make(map[uint64]Command),
		events:            make(chan event.Envelope, eventQueueSize),
		ResendOnReconnect: true,
	}
}

func (c *StubClient) Connect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	logs.Infof("venue: stub connected")
	return nil
}

func (c *StubClient) Disconnect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	logs.Infof("venue: stub disconnected")
	return nil
}

func (c *StubClient) Dispose(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	close(c.events)
	return nil
}

// Send records cmd as pending (for resend on reconnect) and forwards it
// to the stub venue. Tests push the resulting acknowledgement themselves
// via Push.
func (c *StubClient) Send(_ context.Context, cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[cmd.CorrelationId] = cmd
	if !c.connected {
		return errors.Wrapf(ErrDisconnected, "send %s correlation %d", cmd.Kind, cmd.CorrelationId)
	}
	return nil
}

func (c *StubClient) Events() <-chan event.Envelope { return c.events }

// Push enqueues env as if the venue had sent it, and retires the pending
// command with the matching correlation id (if any), whatever the event
// kind — callers pass 0 when the event is not tied to an outstanding
// command (e.g. AccountState).
func (c *StubClient) Push(env event.Envelope, correlationID uint64) {
	c.mu.Lock()
	if correlationID != 0 {
		delete(c.pending, correlationID)
	}
	c.mu.Unlock()
	c.events <- env
}

// Reconnect marks the stub connected again and, if ResendOnReconnect is
// set, returns the commands still awaiting acknowledgement so the caller
// can resend them — grounded on the teacher's gateway reconnect/resend
// behavior.
func (c *StubClient) Reconnect() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	if !c.ResendOnReconnect {
		return nil
	}
	out := make([]Command, 0, len(c.pending))
	for _, cmd := range c.pending {
		out = append(out, cmd)
	}
	return out
}

// Pending reports how many commands are still awaiting acknowledgement.
func (c *StubClient) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
