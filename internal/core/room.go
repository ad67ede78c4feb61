package core

// Room is the fan-out group of live clients subscribed to one room.
// It is guarded by the owning Router.
type Room struct {
	Name    string
	clients map[string]*Client
}

// NewRoom constructs a room with no clients.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		clients: make(map[string]*Client),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c.ID]; exists {
		return false
	}
	r.clients[c.ID] = c
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(id string) bool {
	if _, exists := r.clients[id]; !exists {
		return false
	}
	delete(r.clients, id)
	return true
}

// Broadcast sends an event to every client in the room except exclude
// and returns how many accepted it.
func (r *Room) Broadcast(event *Event, exclude string) int {
	delivered := 0
	for id, client := range r.clients {
		if id == exclude {
			continue
		}
		// Dropped if slow consumer.
		if client.deliver(event) {
			delivered++
		}
	}
	return delivered
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
