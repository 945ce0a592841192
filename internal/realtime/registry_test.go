package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcare/pkg/domain"
	"petcare/pkg/testutil"
)

func TestRegistry_IndexesByAccountAndRoom(t *testing.T) {
	r := NewRegistry()
	owner := testutil.Owner()
	phone := NewClient(owner, 4)
	laptop := NewClient(owner, 4)
	anon := NewClient(domain.Caller{}, 4)
	for _, c := range []*Client{phone, laptop, anon} {
		r.Add(c)
	}

	assert.Len(t, r.Lookup(owner.ID), 2)
	assert.Equal(t, 3, r.Len())
	assert.Len(t, r.All(), 3)

	assert.Equal(t, 2, r.JoinAccount("room-1", owner.ID))
	assert.Len(t, r.Members("room-1"), 2)

	r.Remove(phone)
	assert.Len(t, r.Lookup(owner.ID), 1)
	assert.Len(t, r.Members("room-1"), 1)
	_, open := <-phone.Events()
	assert.False(t, open, "removed client channel is closed")

	r.Remove(phone)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_AnonymousCannotJoinRooms(t *testing.T) {
	r := NewRegistry()
	anon := NewClient(domain.Caller{}, 1)
	r.Add(anon)

	require.ErrorIs(t, r.JoinClient("room-1", anon), ErrAnonymous)
	assert.Empty(t, r.Members("room-1"))
	assert.Empty(t, r.Lookup(domain.AccountID{}))
}

func TestClient_EnqueueNeverBlocks(t *testing.T) {
	c := NewClient(testutil.Vet(true), 1)
	assert.True(t, c.enqueue(Event{Type: EventNotification}))
	assert.False(t, c.enqueue(Event{Type: EventNotification}), "full buffer drops")

	c.close()
	assert.False(t, c.enqueue(Event{Type: EventNotification}), "closed client drops")
}
