// Package memstore keeps users and trips in process memory. It backs tests
// and STORAGE_BACKEND=memory; nothing survives a restart.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"journal-service/internal/trips"
	"journal-service/internal/users"
)

// Users is an in-memory users.Repository. It is safe for concurrent use.
type Users struct {
	mu      sync.RWMutex
	byEmail map[string]users.User
}

func NewUsers() *Users {
	return &Users{byEmail: make(map[string]users.User)}
}

func (r *Users) Create(_ context.Context, u *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return users.ErrEmailTaken
	}
	u.ID = uuid.NewString()
	r.byEmail[u.Email] = *u
	return nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	return &u, nil
}

// Trips is an in-memory trips.Repository. It is safe for concurrent use.
type Trips struct {
	mu   sync.RWMutex
	recs []*trips.Record
}

func NewTrips() *Trips { return &Trips{} }

func (r *Trips) Insert(_ context.Context, rec *trips.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec.Clone())
	return nil
}

func (r *Trips) InsertMany(_ context.Context, recs []*trips.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		r.recs = append(r.recs, rec.Clone())
	}
	return nil
}

func (r *Trips) ListByOwner(_ context.Context, userID string) ([]*trips.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*trips.Record
	for _, rec := range r.recs {
		if v, ok := rec.Get("user_id"); ok && v == userID {
			cp := rec.Clone()
			cp.Delete("_id")
			out = append(out, cp)
		}
	}
	return out, nil
}
