package broadcast

import (
	"sort"
	"sync"
	"time"
)

// Subscriber is one broadcast recipient. Mutated only through Registry operations.
type Subscriber struct {
	ID      string
	Active  bool
	AddedAt time.Time
}

// Registry maps recipient identity to active/inactive state. Safe for concurrent
// operator actions alongside loop ticks.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
}

// NewRegistry seeds the registry; seeded subscribers start active.
func NewRegistry(ids []string) *Registry {
	r := &Registry{subs: make(map[string]Subscriber, len(ids))}
	for _, id := range ids {
		r.Add(id)
	}
	return r
}

// Add registers a subscriber as active. Re-adding an existing ID reactivates it
// without resetting AddedAt.
func (r *Registry) Add(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.subs[id]; ok {
		existing.Active = true
		r.subs[id] = existing
		return
	}
	r.subs[id] = Subscriber{ID: id, Active: true, AddedAt: time.Now().UTC()}
}

// Remove deletes the subscriber entirely.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}

// SetActive flips the delivery flag without losing the subscription record.
func (r *Registry) SetActive(id string, active bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return false
	}
	sub.Active = active
	r.subs[id] = sub
	return true
}

// Active returns active subscribers sorted by ID for deterministic fan-out order.
func (r *Registry) Active() []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		if sub.Active {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the total number of registered subscribers, active or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
