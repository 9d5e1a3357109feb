/*
Package chat contains the core of the chat room: presence tracking, the login and
disconnect protocol, message relay, and fan-out to connected clients.

This file defines the Registry, the set of users currently present in the room.
*/
package chat

import "kchat/internal/app/user"

// Registry is the insertion-ordered set of logged-in users, keyed by username.
//
// It is not safe for concurrent use. The Room confines every Registry access to its
// Run goroutine, which makes the Exists/Add pair of a login atomic.
type Registry struct {
	users []user.User
	index map[string]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make([]user.User, 0),
		index: make(map[string]struct{}),
	}
}

// Exists reports whether a user with exactly this username is registered.
func (r *Registry) Exists(username string) bool {
	_, ok := r.index[username]
	return ok
}

// Add appends u. The caller must have checked Exists first; adding a duplicate is ignored.
func (r *Registry) Add(u user.User) {
	if r.Exists(u.Username) {
		return
	}
	r.index[u.Username] = struct{}{}
	r.users = append(r.users, u)
}

// Remove deletes the user with this username. Absent usernames are a no-op.
func (r *Registry) Remove(username string) {
	if !r.Exists(username) {
		return
	}
	delete(r.index, username)

	for i, u := range r.users {
		if u.Username == username {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	return len(r.users)
}

// Snapshot returns a copy of the registered users in insertion order. It is never nil.
func (r *Registry) Snapshot() []user.User {
	out := make([]user.User, len(r.users))
	copy(out, r.users)
	return out
}
