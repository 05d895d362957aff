// Package identity resolves user ids to the attributes the conversation
// service gates on.
package identity

import (
	"context"
	"sync"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
)

type User struct {
	ID               string `json:"id"`
	IsAdmin          bool   `json:"is_admin"`
	HasActivePackage bool   `json:"has_active_package"`
	DisplayName      string `json:"display_name,omitempty"`
}

// CanMessage reports whether u may send or read history on their own entitlement.
func (u *User) CanMessage() bool {
	return u.IsAdmin || u.HasActivePackage
}

// Resolver returns apperr.ErrUserNotFound for unknown ids.
type Resolver interface {
	ResolveUser(ctx context.Context, id string) (*User, error)
}

// StaticResolver serves users from memory. Used for local runs and tests.
type StaticResolver struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewStaticResolver(users ...User) *StaticResolver {
	r := &StaticResolver{users: make(map[string]User, len(users))}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *StaticResolver) Put(u User) {
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
}

func (r *StaticResolver) ResolveUser(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.ErrUserNotFound
	}
	return &u, nil
}
