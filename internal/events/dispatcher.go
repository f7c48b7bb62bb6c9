package events

import (
	"context"
	"errors"
	"sync"
)

// HandlerFunc handles a push event.
type HandlerFunc func(context.Context, Event) error

// Subscription is the token returned by On. Pass it to Off to remove exactly
// that registration.
type Subscription struct {
	name    Name
	handler HandlerFunc
}

// Name returns the event the subscription listens to.
func (s *Subscription) Name() Name { return s.name }

// Registry maps event names to handlers in registration order.
type Registry struct {
	mu        sync.RWMutex
	listeners map[Name][]*Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{listeners: make(map[Name][]*Subscription)}
}

// On registers handler for name.
func (r *Registry) On(name Name, handler HandlerFunc) *Subscription {
	sub := &Subscription{name: name, handler: handler}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[name] = append(r.listeners[name], sub)
	return sub
}

// Off removes sub. Returns false if it was not registered.
func (r *Registry) Off(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.listeners[sub.name]
	for i, s := range subs {
		if s == sub {
			r.listeners[sub.name] = append(subs[:i:i], subs[i+1:]...)
			if len(r.listeners[sub.name]) == 0 {
				delete(r.listeners, sub.name)
			}
			return true
		}
	}
	return false
}

// Count returns the number of handlers registered for name.
func (r *Registry) Count(name Name) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[name])
}

// Publish invokes every handler registered for the event in order. All
// handlers run; their errors are joined.
func (r *Registry) Publish(ctx context.Context, event Event) error {
	r.mu.RLock()
	subs := append([]*Subscription(nil), r.listeners[event.Name]...)
	r.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
