package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"petcare/pkg/domain"
)

// ErrAnonymous is returned when an unauthenticated connection tries to join
// a room.
var ErrAnonymous = errors.New("anonymous connections cannot join rooms")

// Client is one open connection. Its identity is fixed when it opens.
type Client struct {
	id     string
	caller domain.Caller
	send   chan Event

	mu     sync.Mutex
	closed bool
}

func NewClient(caller domain.Caller, buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{
		id:     uuid.NewString(),
		caller: caller,
		send:   make(chan Event, buffer),
	}
}

func (c *Client) ID() string            { return c.id }
func (c *Client) Caller() domain.Caller { return c.caller }
func (c *Client) Events() <-chan Event  { return c.send }
func (c *Client) IsAnonymous() bool     { return !c.caller.IsAuthenticated() }

// enqueue never blocks. It reports false when the buffer is full or the
// client is gone.
func (c *Client) enqueue(e Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- e:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Registry indexes open connections by id, account and room. It is created
// by the server and handed to everything that delivers events.
type Registry struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	byAccount map[domain.AccountID]map[string]*Client
	rooms     map[string]map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients:   make(map[string]*Client),
		byAccount: make(map[domain.AccountID]map[string]*Client),
		rooms:     make(map[string]map[string]*Client),
	}
}

func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.id] = c
	if c.IsAnonymous() {
		return
	}
	set, ok := r.byAccount[c.caller.ID]
	if !ok {
		set = make(map[string]*Client)
		r.byAccount[c.caller.ID] = set
	}
	set[c.id] = c
}

// Remove drops the client from every index and closes its event channel.
func (r *Registry) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.id]; !ok {
		return
	}
	delete(r.clients, c.id)
	if set, ok := r.byAccount[c.caller.ID]; ok {
		delete(set, c.id)
		if len(set) == 0 {
			delete(r.byAccount, c.caller.ID)
		}
	}
	for room, members := range r.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	c.close()
}

// Lookup returns the open connections of an account.
func (r *Registry) Lookup(id domain.AccountID) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byAccount[id]
	out := make([]*Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// JoinClient subscribes a single connection to room.
func (r *Registry) JoinClient(room string, c *Client) error {
	if c.IsAnonymous() {
		return ErrAnonymous
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.id]; !ok {
		return nil
	}
	r.joinLocked(room, c)
	return nil
}

// JoinAccount subscribes every open connection of an account to room and
// returns how many joined.
func (r *Registry) JoinAccount(room string, id domain.AccountID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.byAccount[id]
	for _, c := range set {
		r.joinLocked(room, c)
	}
	return len(set)
}

func (r *Registry) joinLocked(room string, c *Client) {
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		r.rooms[room] = members
	}
	members[c.id] = c
}

func (r *Registry) Leave(room string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if members, ok := r.rooms[room]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
}

// Members returns the connections subscribed to room.
func (r *Registry) Members(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}
