package core

import "sync"

// Router delivers events to live clients: to one connection, to a room
// without its sender, or to a whole room. Delivery is best-effort and
// at-most-once; nothing is retried.
type Router struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]*Room
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		clients: make(map[string]*Client),
		rooms:   make(map[string]*Room),
	}
}

// Register makes a client addressable by its connection id.
func (r *Router) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
}

// Unregister forgets a client and drops it from every room group.
func (r *Router) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clients, id)
	for name, room := range r.rooms {
		if room.RemoveClient(id) && room.Empty() {
			delete(r.rooms, name)
		}
	}
}

// JoinGroup subscribes a registered client to a room's broadcasts.
func (r *Router) JoinGroup(room, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[id]
	if !ok {
		return false
	}
	group, ok := r.rooms[room]
	if !ok {
		group = NewRoom(room)
		r.rooms[room] = group
	}
	return group.AddClient(client)
}

// LeaveGroup unsubscribes a client from a room's broadcasts.
func (r *Router) LeaveGroup(room, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.rooms[room]
	if !ok {
		return false
	}
	removed := group.RemoveClient(id)
	if group.Empty() {
		delete(r.rooms, room)
	}
	return removed
}

// SendTo delivers an event to exactly one connection.
func (r *Router) SendTo(id string, event *Event) bool {
	r.mu.RLock()
	client, ok := r.clients[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return client.deliver(event)
}

// BroadcastExcluding delivers an event to every member of room except sender.
func (r *Router) BroadcastExcluding(room, sender string, event *Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group, ok := r.rooms[room]
	if !ok {
		return 0
	}
	return group.Broadcast(event, sender)
}

// BroadcastAll delivers an event to every member of room.
func (r *Router) BroadcastAll(room string, event *Event) int {
	return r.BroadcastExcluding(room, "", event)
}

// CloseAll closes every registered client.
func (r *Router) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		c.Close()
	}
}

// ClientCount returns the number of registered clients.
func (r *Router) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// GroupSize returns the number of clients subscribed to room.
func (r *Router) GroupSize(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if group, ok := r.rooms[room]; ok {
		return len(group.clients)
	}
	return 0
}
