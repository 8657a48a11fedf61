package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishToUserReachesOnlyThatUser(t *testing.T) {
	hub := NewHub()
	alice := NewClient("a1", "alice")
	alice2 := NewClient("a2", "alice")
	bob := NewClient("b1", "bob")
	hub.Register(alice)
	hub.Register(alice2)
	hub.Register(bob)
	assert.Equal(t, 3, hub.Connected())

	hub.PublishToUser("alice", "notification", map[string]string{"title": "hi"})

	for _, c := range []*Client{alice, alice2} {
		select {
		case ev := <-c.Events:
			assert.Equal(t, "notification", ev.EventType)
			assert.JSONEq(t, `{"title":"hi"}`, ev.Data)
		default:
			t.Fatalf("client %s got no event", c.ID)
		}
	}
	assert.Len(t, bob.Events, 0)
}

func TestUnregisterClosesChannel(t *testing.T) {
	hub := NewHub()
	c := NewClient("c1", "u1")
	hub.Register(c)
	hub.Unregister("c1")

	_, ok := <-c.Events
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Connected())

	// unknown ids are ignored
	hub.Unregister("c1")
}

func TestSendToUserDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := NewClient("c1", "u1")
	hub.Register(c)

	for i := 0; i < cap(c.Events); i++ {
		require.Equal(t, 1, hub.SendToUser("u1", Event{EventType: "ping"}))
	}
	assert.Equal(t, 0, hub.SendToUser("u1", Event{EventType: "ping"}))
}
