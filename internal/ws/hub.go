package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Event types pushed to dashboards.
const (
	EventOrderChanged = "order.changed"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// OrderChanged is the payload of EventOrderChanged. It carries no order state:
// clients refetch from the dashboard API when they receive it.
type OrderChanged struct {
	Action string   `json:"action"`
	Codes  []string `json:"codes"`
}

// storeEvent routes an event to one store's room
type storeEvent struct {
	StoreID string
	Event   Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by store ID
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *storeEvent

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *storeEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, after closing
// every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for store, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, store)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.storeID] == nil {
				h.rooms[client.storeID] = make(map[*Client]bool)
			}
			h.rooms[client.storeID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.storeID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.storeID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				log.Printf("ERROR: marshal ws event: %v", err)
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.StoreID] {
				select {
				case client.send <- message:
				default:
					// slow client: drop it
					close(client.send)
					delete(h.rooms[event.StoreID], client)
					if len(h.rooms[event.StoreID]) == 0 {
						delete(h.rooms, event.StoreID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToStore queues an event for every client watching store. The event
// is dropped if the hub's queue is full.
func (h *Hub) BroadcastToStore(storeID string, event Event) {
	select {
	case h.broadcast <- &storeEvent{StoreID: storeID, Event: event}:
	default:
		log.Printf("ERROR: ws broadcast queue full, dropping %s for store %s", event.Type, storeID)
	}
}

// NotifyOrderChanged broadcasts an EventOrderChanged refetch signal.
func (h *Hub) NotifyOrderChanged(storeID, action string, codes ...string) {
	payload, err := json.Marshal(OrderChanged{Action: action, Codes: codes})
	if err != nil {
		log.Printf("ERROR: marshal order changed: %v", err)
		return
	}
	h.BroadcastToStore(storeID, Event{Type: EventOrderChanged, Payload: payload})
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
