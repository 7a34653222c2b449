// Package bridge mediates between the untrusted UI surface and the
// privileged handlers. Every request is validated against the channel
// catalogue and sanitized before any handler runs; unlisted channels
// never reach privileged code.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/hyperdeck/bridge/internal/channels"
	"github.com/hyperdeck/bridge/internal/sanitize"
)

var (
	// ErrChannelNotAllowed is the authorization failure: the channel
	// is unlisted or registered for a different direction.
	ErrChannelNotAllowed = errors.New("channel not allowed")
	// ErrNoHandler means the channel is whitelisted but nothing is
	// registered to serve it.
	ErrNoHandler = errors.New("no handler registered")
	// ErrInvalidArgs is wrapped by handlers rejecting a malformed
	// argument list.
	ErrInvalidArgs = errors.New("invalid arguments")
)

// Handler serves one invoke channel. Args arrive already sanitized.
type Handler func(ctx context.Context, args []any) (any, error)

// Sink consumes one send channel, best effort.
type Sink func(args []any)

// Subscriber receives pushed payloads for one receive channel.
type Subscriber func(payload any)

type subscription struct {
	id int64
	fn Subscriber
}

// Bridge routes invoke/send/receive traffic through the catalogue.
type Bridge struct {
	catalogue *channels.Catalogue

	mu          sync.RWMutex
	handlers    map[string]Handler
	sinks       map[string]Sink
	subscribers map[string][]subscription
	nextSubID   int64
}

// New creates a bridge over the given catalogue.
func New(catalogue *channels.Catalogue) *Bridge {
	return &Bridge{
		catalogue:   catalogue,
		handlers:    make(map[string]Handler),
		sinks:       make(map[string]Sink),
		subscribers: make(map[string][]subscription),
	}
}

// Handle registers the handler for an invoke channel.
func (b *Bridge) Handle(channel string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channel] = h
}

// HandleSend registers the sink for a send channel.
func (b *Bridge) HandleSend(channel string, s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks[channel] = s
}

// Invoke validates, sanitizes and dispatches a request/response call.
// Authorization failures reject before any handler contact.
func (b *Bridge) Invoke(ctx context.Context, channel string, args ...any) (any, error) {
	if !b.catalogue.IsAllowed(channel, channels.Invoke) {
		return nil, fmt.Errorf("%w: %q", ErrChannelNotAllowed, channel)
	}

	clean := sanitize.Values(args)

	b.mu.RLock()
	h, ok := b.handlers[channel]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoHandler, channel)
	}

	return h(ctx, clean)
}

// Send validates and dispatches a fire-and-forget message. Rejections
// are logged and dropped, never surfaced.
func (b *Bridge) Send(channel string, args ...any) {
	if !b.catalogue.IsAllowed(channel, channels.Send) {
		log.Printf("[bridge] dropped send to unlisted channel %q", channel)
		return
	}

	clean := sanitize.Values(args)

	b.mu.RLock()
	s, ok := b.sinks[channel]
	b.mu.RUnlock()
	if !ok {
		log.Printf("[bridge] no sink for send channel %q", channel)
		return
	}

	s(clean)
}

// Subscribe registers a callback for a receive channel and returns an
// idempotent unsubscribe closure. Delivery order is registration
// order.
func (b *Bridge) Subscribe(channel string, fn Subscriber) (func(), error) {
	if !b.catalogue.IsAllowed(channel, channels.Receive) {
		return nil, fmt.Errorf("%w: %q", ErrChannelNotAllowed, channel)
	}

	b.mu.Lock()
	b.nextSubID++
	id := b.nextSubID
	b.subscribers[channel] = append(b.subscribers[channel], subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.subscribers[channel]
			for i, s := range subs {
				if s.id == id {
					b.subscribers[channel] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
		})
	}, nil
}

// Publish pushes a payload to every subscriber of a receive channel,
// in registration order. Unlisted channels are dropped with a log
// line.
func (b *Bridge) Publish(channel string, payload any) {
	if !b.catalogue.IsAllowed(channel, channels.Receive) {
		log.Printf("[bridge] dropped publish to unlisted channel %q", channel)
		return
	}

	b.mu.RLock()
	subs := append([]subscription(nil), b.subscribers[channel]...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(payload)
	}
}

// Catalogue exposes the underlying whitelist.
func (b *Bridge) Catalogue() *channels.Catalogue {
	return b.catalogue
}
