package challenge

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository for tests and local runs.
type MemoryRepository struct {
	mu           sync.RWMutex
	challenges   map[string]Challenge
	participants map[string][]Participant
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		challenges:   make(map[string]Challenge),
		participants: make(map[string][]Participant),
	}
}

func (r *MemoryRepository) Create(_ context.Context, ch Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.challenges[ch.ID] = ch
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.challenges[id]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	return ch, nil
}

func (r *MemoryRepository) Update(_ context.Context, ch Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.challenges[ch.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = ch.Status
	stored.Pinned = ch.Pinned
	stored.ParticipantCount = ch.ParticipantCount
	stored.WinnerID = ch.WinnerID
	stored.UpdatedAt = time.Now().UTC()
	r.challenges[ch.ID] = stored
	return nil
}

func (r *MemoryRepository) List(_ context.Context, status Status, limit int) ([]Challenge, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Challenge
	for _, ch := range r.challenges {
		if status == "" || ch.Status == status {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) ListForUser(_ context.Context, userID string, limit int) ([]Challenge, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Challenge
	for _, ch := range r.challenges {
		if ch.ChallengerID == userID || ch.ChallengedID == userID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) AddParticipant(_ context.Context, p Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.challenges[p.ChallengeID]
	if !ok {
		return ErrNotFound
	}
	r.participants[p.ChallengeID] = append(r.participants[p.ChallengeID], p)
	ch.ParticipantCount++
	ch.UpdatedAt = time.Now().UTC()
	r.challenges[p.ChallengeID] = ch
	return nil
}

func (r *MemoryRepository) Participants(_ context.Context, challengeID string) ([]Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.participants[challengeID]
	out := make([]Participant, len(list))
	copy(out, list)
	return out, nil
}

func (r *MemoryRepository) HasParticipant(_ context.Context, challengeID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.participants[challengeID] {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}
