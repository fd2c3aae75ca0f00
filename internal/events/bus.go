// Package events distributes bucket-completed notifications.
//
// The Bus delivers every event to in-process handlers synchronously, then forwards it
// to any mirrors such as the Kafka publisher.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
)

// Handler reacts to a completed bucket. Handlers must not block.
type Handler func(ctx context.Context, ev schema.BucketCompleted)

// Bus is an in-process publisher with optional external mirrors.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	mirrors  []contract.Publisher
	log      *slog.Logger
}

var _ contract.Publisher = &Bus{} // Compile-time check

// NewBus creates an empty bus.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = contract.DiscardLogger()
	}
	return &Bus{log: log.With(slog.String("component", "events"))}
}

// Subscribe registers an in-process handler.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// AddMirror forwards every published event to p as well.
func (b *Bus) AddMirror(p contract.Publisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mirrors = append(b.mirrors, p)
}

// Publish delivers ev to every handler, then to every mirror.
// Mirror failures are returned joined but never stop local delivery.
func (b *Bus) Publish(ctx context.Context, ev schema.BucketCompleted) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	mirrors := append([]contract.Publisher(nil), b.mirrors...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}

	var errs []error
	for _, m := range mirrors {
		if err := m.Publish(ctx, ev); err != nil {
			b.log.Warn("failed to mirror event",
				slog.String("bucket", ev.Bucket.Key()),
				slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("mirror publish: %w", errors.Join(errs...))
	}
	return nil
}

// Close closes every mirror.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for _, m := range b.mirrors {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.mirrors = nil
	return errors.Join(errs...)
}
