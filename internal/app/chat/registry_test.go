package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kchat/internal/app/user"
)

func usernames(users []user.User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.Exists("alice"))
	assert.NotNil(t, r.Snapshot())
	assert.Empty(t, r.Snapshot())

	r.Add(user.User{Username: "alice", Avatar: "a.png"})
	r.Add(user.User{Username: "bob"})
	r.Add(user.User{Username: "carol"})

	assert.True(t, r.Exists("alice"))
	assert.False(t, r.Exists("Alice"), "usernames are compared exactly")
	assert.Equal(t, []string{"alice", "bob", "carol"}, usernames(r.Snapshot()))

	r.Add(user.User{Username: "bob", Avatar: "other.png"})
	assert.Equal(t, 3, r.Len(), "duplicate add is ignored")

	r.Remove("bob")
	r.Remove("nobody")
	assert.Equal(t, []string{"alice", "carol"}, usernames(r.Snapshot()))
	assert.False(t, r.Exists("bob"))

	snap := r.Snapshot()
	snap[0].Username = "mutated"
	assert.True(t, r.Exists("alice"))
	assert.Equal(t, "alice", r.Snapshot()[0].Username, "snapshot is a copy")
}
