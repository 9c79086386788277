package notification

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository for tests and local runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Notification
	prefs map[string]Preferences
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]Notification),
		prefs: make(map[string]Preferences),
	}
}

func (r *MemoryRepository) Insert(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[n.ID] = n
	return nil
}

func (r *MemoryRepository) List(_ context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Notification
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) UnreadCount(_ context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, n := range r.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) MarkRead(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.Read = true
	r.items[id] = n
	return nil
}

func (r *MemoryRepository) MarkAllRead(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, n := range r.items {
		if n.UserID == userID && !n.Read {
			n.Read = true
			r.items[id] = n
		}
	}
	return nil
}

func (r *MemoryRepository) Preferences(_ context.Context, userID string) (Preferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prefs[userID]
	if !ok {
		return Preferences{}, ErrNoPreferences
	}
	return p, nil
}

func (r *MemoryRepository) SavePreferences(_ context.Context, prefs Preferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefs.UpdatedAt = time.Now().UTC()
	r.prefs[prefs.UserID] = prefs
	return nil
}
